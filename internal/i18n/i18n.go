// Package i18n loads the embedded UI translations and picks the language of
// each request.
package i18n

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sync"

	goi18n "github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var localeFS embed.FS

// Supported languages; the first is the fallback.
var Supported = []language.Tag{
	language.English,
	language.German,
}

var matcher = language.NewMatcher(Supported)

var (
	bundleOnce sync.Once
	bundle     *goi18n.Bundle
	bundleErr  error
)

func loadBundle() (*goi18n.Bundle, error) {
	bundleOnce.Do(func() {
		b := goi18n.NewBundle(language.English)
		b.RegisterUnmarshalFunc("yaml", yaml.Unmarshal)
		files, err := fs.ReadDir(localeFS, "locales")
		if err != nil {
			bundleErr = err
			return
		}
		for _, f := range files {
			if f.IsDir() {
				continue
			}
			data, err := localeFS.ReadFile("locales/" + f.Name())
			if err != nil {
				bundleErr = err
				return
			}
			if _, err := b.ParseMessageFileBytes(data, f.Name()); err != nil {
				bundleErr = fmt.Errorf("parse %s: %w", f.Name(), err)
				return
			}
		}
		bundle = b
	})
	return bundle, bundleErr
}

// Match returns the supported language code for the first candidate that
// names one. Candidates may be plain tags ("de") or Accept-Language values.
func Match(def string, candidates ...string) string {
	for _, c := range candidates {
		if c == "" {
			continue
		}
		tags, _, err := language.ParseAcceptLanguage(c)
		if err != nil || len(tags) == 0 {
			continue
		}
		_, idx, conf := matcher.Match(tags...)
		if conf != language.No {
			return Supported[idx].String()
		}
	}
	if IsSupported(def) {
		return def
	}
	return Supported[0].String()
}

func IsSupported(lang string) bool {
	for _, t := range Supported {
		if t.String() == lang {
			return true
		}
	}
	return false
}

// Translator renders message ids in one language.
type Translator struct {
	Lang string
	loc  *goi18n.Localizer
}

// New returns a translator for lang. Unknown ids render as the id itself.
func New(lang string) *Translator {
	b, err := loadBundle()
	if err != nil {
		return &Translator{Lang: lang}
	}
	return &Translator{Lang: lang, loc: goi18n.NewLocalizer(b, lang)}
}

// T translates id. data fills {{.Name}} placeholders.
func (t *Translator) T(id string, data ...map[string]any) string {
	if t == nil || t.loc == nil {
		return id
	}
	cfg := &goi18n.LocalizeConfig{MessageID: id}
	if len(data) > 0 {
		cfg.TemplateData = data[0]
	}
	msg, err := t.loc.Localize(cfg)
	if err != nil {
		return id
	}
	return msg
}

type contextKey struct{}

func WithTranslator(ctx context.Context, t *Translator) context.Context {
	return context.WithValue(ctx, contextKey{}, t)
}

// FromContext returns the request translator, or English.
func FromContext(ctx context.Context) *Translator {
	if t, ok := ctx.Value(contextKey{}).(*Translator); ok {
		return t
	}
	return New(Supported[0].String())
}
