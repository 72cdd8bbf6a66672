package server

import (
	"encoding/base64"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/securecookie"

	"github.com/QuocDuong16/headscale-dashboard/internal/config"
	"github.com/QuocDuong16/headscale-dashboard/internal/web"
)

const (
	cookieSession = "hs_session"
	cookieFlash   = "hs_flash"
	cookieLang    = "hs_lang"

	sessionTTL = 7 * 24 * time.Hour
)

// session is the browser's state: its cache namespace, the headscale API key
// and the CSRF token. It only ever lives in the encrypted cookie.
type session struct {
	ID    string `json:"id"`
	Token string `json:"token,omitempty"`
	CSRF  string `json:"csrf"`
}

func newSession() *session {
	return &session{ID: uuid.NewString(), CSRF: randomToken()}
}

func randomToken() string {
	return base64.RawURLEncoding.EncodeToString(securecookie.GenerateRandomKey(32))
}

type cookieJar struct {
	sc     *securecookie.SecureCookie
	secure bool
}

func newCookieJar(cfg config.Config) *cookieJar {
	sc := securecookie.New(cfg.SessionHashKey, cfg.SessionBlockKey)
	sc.SetSerializer(securecookie.JSONEncoder{})
	sc.MaxAge(int(sessionTTL.Seconds()))
	return &cookieJar{sc: sc, secure: cfg.SecureCookies}
}

func (j *cookieJar) set(w http.ResponseWriter, name, value string, httpOnly bool, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: httpOnly,
		Secure:   j.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	})
}

func (j *cookieJar) readSession(r *http.Request) (*session, bool) {
	ck, err := r.Cookie(cookieSession)
	if err != nil {
		return nil, false
	}
	var s session
	if err := j.sc.Decode(cookieSession, ck.Value, &s); err != nil || s.ID == "" || s.CSRF == "" {
		return nil, false
	}
	return &s, true
}

func (j *cookieJar) writeSession(w http.ResponseWriter, s *session) error {
	v, err := j.sc.Encode(cookieSession, s)
	if err != nil {
		return err
	}
	j.set(w, cookieSession, v, true, int(sessionTTL.Seconds()))
	return nil
}

func (j *cookieJar) setFlash(w http.ResponseWriter, f web.Flash) {
	v, err := j.sc.Encode(cookieFlash, f)
	if err != nil {
		return
	}
	j.set(w, cookieFlash, v, true, 60)
}

// popFlash returns the pending flash and clears it.
func (j *cookieJar) popFlash(w http.ResponseWriter, r *http.Request) *web.Flash {
	ck, err := r.Cookie(cookieFlash)
	if err != nil {
		return nil
	}
	j.set(w, cookieFlash, "", true, -1)
	var f web.Flash
	if err := j.sc.Decode(cookieFlash, ck.Value, &f); err != nil {
		return nil
	}
	return &f
}

func (j *cookieJar) setLang(w http.ResponseWriter, lang string) {
	j.set(w, cookieLang, lang, false, int((365 * 24 * time.Hour).Seconds()))
}
