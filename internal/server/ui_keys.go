package server

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/QuocDuong16/headscale-dashboard/internal/i18n"
	"github.com/QuocDuong16/headscale-dashboard/internal/listing"
	"github.com/QuocDuong16/headscale-dashboard/internal/web"
	"github.com/QuocDuong16/headscale-dashboard/pkg/headscale"
	"github.com/QuocDuong16/headscale-dashboard/pkg/validate"
)

type pendingRegistration struct {
	Key     headscale.PreAuthKey
	URL     string
	Command string
}

type preAuthKeysData struct {
	Users   []headscale.User
	User    string
	State   string
	Keys    []headscale.PreAuthKey
	Pending []pendingRegistration
}

type apiKeysData struct {
	Search string
	Keys   []headscale.APIKey
}

// registrationURL is the page a device opens to finish registration.
func registrationURL(serverURL, key string) string {
	return strings.TrimRight(serverURL, "/") + "/register/" + key
}

// registrationCommand is what an operator runs on the headscale host.
func registrationCommand(key, user string) string {
	return fmt.Sprintf("headscale nodes register --key %s --user %s", key, user)
}

func (s *Server) handlePreAuthKeys(w http.ResponseWriter, r *http.Request) {
	c, err := s.client(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	q := queries{c: c, cache: s.cacheFor(r)}
	users, err := q.users(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}

	v := r.URL.Query()
	data := preAuthKeysData{Users: users, User: v.Get("user"), State: v.Get("state")}
	if data.State == "" {
		data.State = "all"
	}
	if data.User == "" && len(users) > 0 {
		data.User = users[0].Name
	}
	now := time.Now()
	if data.User != "" {
		keys, err := q.preAuthKeys(r.Context(), data.User)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		data.Keys = listing.FilterPreAuthKeys(keys, data.State, now)
	}

	pending, err := q.pending(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	serverURL := s.cfg.ServerURL()
	for _, k := range pending {
		data.Pending = append(data.Pending, pendingRegistration{
			Key:     k,
			URL:     registrationURL(serverURL, k.Key),
			Command: registrationCommand(k.Key, k.User.Label()),
		})
	}

	s.render(w, http.StatusOK, "preauth_keys", s.page(w, r, "preauth-keys", "preauth.title", data))
}

func (s *Server) handleCreatePreAuthKey(w http.ResponseWriter, r *http.Request) {
	user, err := validate.Name(r.PostFormValue("user"))
	if err != nil {
		s.badInput(w, r, "/preauth-keys", err)
		return
	}
	back := "/preauth-keys?user=" + url.QueryEscape(user)
	expiration, err := validate.Expiration(r.PostFormValue("expiration"))
	if err != nil {
		s.badInput(w, r, back, err)
		return
	}
	req := headscale.CreatePreAuthKeyRequest{
		User:       user,
		Reusable:   r.PostFormValue("reusable") == "true",
		Ephemeral:  r.PostFormValue("ephemeral") == "true",
		Expiration: expiration,
		ACLTags:    validate.Tags(r.PostFormValue("tags")),
	}
	c, err := s.client(r)
	if err == nil {
		_, err = c.CreatePreAuthKey(r.Context(), req)
	}
	if err != nil {
		s.failMutation(w, r, back, err)
		return
	}
	tr := i18n.FromContext(r.Context())
	s.done(w, r, back, tr.T("toast.preauthCreated"), preAuthKey(user), keyPending)
}

func (s *Server) handleExpirePreAuthKey(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimSpace(r.PostFormValue("key"))
	user := strings.TrimSpace(r.PostFormValue("user"))
	back := "/preauth-keys"
	if user != "" {
		back += "?user=" + url.QueryEscape(user)
	}
	if key == "" {
		s.badInput(w, r, back, validate.ErrEmptyName)
		return
	}
	c, err := s.client(r)
	if err == nil {
		err = c.ExpirePreAuthKey(r.Context(), key, user)
	}
	if err != nil {
		s.failMutation(w, r, back, err)
		return
	}
	tr := i18n.FromContext(r.Context())
	s.done(w, r, back, tr.T("toast.preauthExpired"), keyPreAuthKeys, keyPending)
}

// handleRegistrationQR renders the registration URL of a key as a PNG.
func (s *Server) handleRegistrationQR(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		http.Error(w, "missing key", http.StatusBadRequest)
		return
	}
	png, err := qrcode.Encode(registrationURL(s.cfg.ServerURL(), key), qrcode.Medium, 256)
	if err != nil {
		s.logger.Error().Err(err).Msg("qr encode")
		http.Error(w, "qr encode failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "private, max-age=300")
	_, _ = w.Write(png)
}

func (s *Server) handleAPIKeys(w http.ResponseWriter, r *http.Request) {
	c, err := s.client(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	q := queries{c: c, cache: s.cacheFor(r)}
	keys, err := q.apiKeys(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	search := r.URL.Query().Get("q")
	s.render(w, http.StatusOK, "api_keys", s.page(w, r, "api-keys", "apikeys.title", apiKeysData{
		Search: search,
		Keys:   listing.FilterAPIKeys(keys, search),
	}))
}

// handleCreateAPIKey shows the new key once in the result toast.
func (s *Server) handleCreateAPIKey(w http.ResponseWriter, r *http.Request) {
	expiration, err := validate.Expiration(r.PostFormValue("expiration"))
	if err != nil {
		s.badInput(w, r, "/api-keys", err)
		return
	}
	c, err := s.client(r)
	if err != nil {
		s.failMutation(w, r, "/api-keys", err)
		return
	}
	created, err := c.CreateAPIKey(r.Context(), expiration)
	if err != nil {
		s.failMutation(w, r, "/api-keys", err)
		return
	}
	tr := i18n.FromContext(r.Context())
	s.cacheFor(r).Invalidate(keyAPIKeys)
	s.jar.setFlash(w, web.Flash{Kind: "success", Msg: tr.T("toast.apikeyCreated"), Secret: created.APIKey})
	http.Redirect(w, r, "/api-keys", http.StatusSeeOther)
}

func (s *Server) handleAPIKeyAction(w http.ResponseWriter, r *http.Request) {
	prefix := strings.TrimSpace(r.PostFormValue("prefix"))
	if prefix == "" {
		s.badInput(w, r, "/api-keys", validate.ErrEmptyName)
		return
	}
	c, err := s.client(r)
	if err != nil {
		s.failMutation(w, r, "/api-keys", err)
		return
	}
	var msgID string
	switch chi.URLParam(r, "action") {
	case "expire":
		err, msgID = c.ExpireAPIKey(r.Context(), prefix), "toast.apikeyExpired"
	case "delete":
		err, msgID = c.DeleteAPIKey(r.Context(), prefix), "toast.apikeyDeleted"
	default:
		http.NotFound(w, r)
		return
	}
	if err != nil {
		s.failMutation(w, r, "/api-keys", err)
		return
	}
	tr := i18n.FromContext(r.Context())
	s.done(w, r, "/api-keys", tr.T(msgID), keyAPIKeys)
}
