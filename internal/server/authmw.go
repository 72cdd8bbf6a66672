package server

import (
	"context"
	"crypto/subtle"
	"net/http"

	"github.com/QuocDuong16/headscale-dashboard/internal/i18n"
)

type ctxKey string

const ctxSession ctxKey = "session"

func sessionFrom(r *http.Request) *session {
	if s, ok := r.Context().Value(ctxSession).(*session); ok {
		return s
	}
	return &session{}
}

// withSession loads the session cookie, issuing a fresh session when the
// cookie is missing or cannot be decoded.
func withSession(next http.Handler, jar *cookieJar) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, ok := jar.readSession(r)
		if !ok {
			s = newSession()
			_ = jar.writeSession(w, s)
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxSession, s)))
	})
}

// requireToken sends browsers without an API key to the login page.
func requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if sessionFrom(r).Token == "" {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireCSRF checks the session token on unsafe methods, taken from the
// "csrf" form field or the X-CSRF-Token header.
func requireCSRF(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		want := sessionFrom(r).CSRF
		got := r.Header.Get("X-CSRF-Token")
		if got == "" {
			got = r.PostFormValue("csrf")
		}
		if want == "" || subtle.ConstantTimeCompare([]byte(got), []byte(want)) != 1 {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withLocale picks the UI language from ?lang=, the language cookie or
// Accept-Language. An explicit ?lang= is remembered.
func withLocale(next http.Handler, jar *cookieJar, def string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("lang")
		if q != "" && i18n.IsSupported(q) {
			jar.setLang(w, q)
		}
		cookie := ""
		if ck, err := r.Cookie(cookieLang); err == nil {
			cookie = ck.Value
		}
		lang := i18n.Match(def, q, cookie, r.Header.Get("Accept-Language"))
		ctx := i18n.WithTranslator(r.Context(), i18n.New(lang))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
