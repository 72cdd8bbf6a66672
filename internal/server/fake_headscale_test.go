package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/QuocDuong16/headscale-dashboard/internal/config"
	"github.com/QuocDuong16/headscale-dashboard/pkg/headscale"
)

const goodToken = "good-key"

// fakeHeadscale is a minimal headscale REST API backed by memory.
type fakeHeadscale struct {
	mu       sync.Mutex
	token    string
	machines []headscale.Machine
	users    []headscale.User
	policy   string
	preauth  []headscale.PreAuthKey
	apiKeys  []headscale.APIKey
	hits     map[string]int
	lastAuth string
	lastURL  string
}

func newFakeHeadscale(t *testing.T) (*fakeHeadscale, *httptest.Server) {
	t.Helper()
	now := time.Now()
	earlier := now.Add(-time.Hour)
	f := &fakeHeadscale{
		token: goodToken,
		users: []headscale.User{{ID: "1", Name: "alice"}, {ID: "2", Name: "bob"}},
		machines: []headscale.Machine{
			{ID: "1", Name: "alpha-host", User: headscale.User{ID: "1", Name: "alice"}, Online: true, LastSeen: &now,
				IPAddresses: []string{"100.64.0.1"}, AvailableRoutes: []string{"10.0.0.0/24"}},
			{ID: "2", Name: "beta-host", User: headscale.User{ID: "2", Name: "bob"}, LastSeen: &earlier,
				IPAddresses: []string{"100.64.0.2"}},
		},
		policy: "",
		preauth: []headscale.PreAuthKey{
			{ID: "1", Key: "alice-key-1", User: headscale.KeyOwner{User: headscale.User{ID: "1", Name: "alice"}}, CreatedAt: &earlier},
		},
		apiKeys: []headscale.APIKey{{ID: "1", Prefix: "abc123", CreatedAt: &earlier}},
		hits:    map[string]int{},
	}

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			f.mu.Lock()
			f.hits[r.Method+" "+r.URL.Path]++
			f.lastAuth = r.Header.Get("Authorization")
			f.lastURL = r.URL.String()
			token := f.token
			f.mu.Unlock()
			if r.URL.Path == "/api/v1/text" {
				next.ServeHTTP(w, r)
				return
			}
			if r.Header.Get("Authorization") != "Bearer "+token {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = io.WriteString(w, `{"message":"Unauthorized"}`)
				return
			}
			next.ServeHTTP(w, r)
		})
	})
	send := func(w http.ResponseWriter, v any) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(v)
	}
	r.Get("/api/v1/health", func(w http.ResponseWriter, r *http.Request) {
		send(w, headscale.Health{DatabaseConnectivity: true})
	})
	r.Get("/api/v1/text", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusTeapot)
		_, _ = io.WriteString(w, "plain failure")
	})
	r.Get("/api/v1/node", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		send(w, map[string]any{"nodes": f.machines})
	})
	r.Get("/api/v1/node/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		for _, m := range f.machines {
			if m.ID == chi.URLParam(r, "id") {
				send(w, map[string]any{"node": m})
				return
			}
		}
		w.WriteHeader(http.StatusNotFound)
		send(w, map[string]string{"message": "node not found"})
	})
	r.Delete("/api/v1/node/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		kept := f.machines[:0]
		for _, m := range f.machines {
			if m.ID != chi.URLParam(r, "id") {
				kept = append(kept, m)
			}
		}
		f.machines = kept
		send(w, map[string]any{})
	})
	r.Get("/api/v1/user", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		send(w, map[string]any{"users": f.users})
	})
	r.Post("/api/v1/user", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Name string `json:"name"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		defer f.mu.Unlock()
		u := headscale.User{ID: "9", Name: body.Name}
		f.users = append(f.users, u)
		send(w, map[string]any{"user": u})
	})
	r.Post("/api/v1/node/{id}/approve_routes", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Routes []string `json:"routes"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		defer f.mu.Unlock()
		for i := range f.machines {
			if f.machines[i].ID == chi.URLParam(r, "id") {
				f.machines[i].ApprovedRoutes = body.Routes
				send(w, map[string]any{"node": f.machines[i]})
				return
			}
		}
		w.WriteHeader(http.StatusNotFound)
		send(w, map[string]string{"message": "node not found"})
	})
	r.Post("/api/v1/user/{id}/rename/{name}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		for i := range f.users {
			if f.users[i].ID == chi.URLParam(r, "id") {
				f.users[i].Name = chi.URLParam(r, "name")
				send(w, map[string]any{"user": f.users[i]})
				return
			}
		}
		w.WriteHeader(http.StatusNotFound)
		send(w, map[string]string{"message": "user not found"})
	})
	r.Delete("/api/v1/user/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		kept := f.users[:0]
		for _, u := range f.users {
			if u.ID != chi.URLParam(r, "id") {
				kept = append(kept, u)
			}
		}
		f.users = kept
		send(w, map[string]any{})
	})
	r.Get("/api/v1/preauthkey", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		keys := []headscale.PreAuthKey{}
		for _, k := range f.preauth {
			if k.User.ID == r.URL.Query().Get("user") {
				keys = append(keys, k)
			}
		}
		send(w, map[string]any{"preAuthKeys": keys})
	})
	r.Post("/api/v1/preauthkey", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			User string `json:"user"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		defer f.mu.Unlock()
		now := time.Now()
		k := headscale.PreAuthKey{ID: "2", Key: "fresh-key", User: headscale.KeyOwner{User: headscale.User{ID: body.User}}, CreatedAt: &now}
		f.preauth = append(f.preauth, k)
		send(w, map[string]any{"preAuthKey": k})
	})
	r.Post("/api/v1/preauthkey/expire", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Key string `json:"key"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		defer f.mu.Unlock()
		past := time.Now().Add(-time.Minute)
		for i := range f.preauth {
			if f.preauth[i].Key == body.Key {
				f.preauth[i].Expiration = &past
			}
		}
		send(w, map[string]any{})
	})
	r.Get("/api/v1/apikey", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		send(w, map[string]any{"apiKeys": f.apiKeys})
	})
	r.Post("/api/v1/apikey", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.apiKeys = append(f.apiKeys, headscale.APIKey{ID: "2", Prefix: "new456"})
		send(w, headscale.CreateAPIKeyResponse{APIKey: "new456.secretpart"})
	})
	r.Post("/api/v1/apikey/expire", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		past := time.Now().Add(-time.Minute)
		for i := range f.apiKeys {
			f.apiKeys[i].Expiration = &past
		}
		send(w, map[string]any{})
	})
	r.Delete("/api/v1/apikey/{prefix}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		kept := f.apiKeys[:0]
		for _, k := range f.apiKeys {
			if k.Prefix != chi.URLParam(r, "prefix") {
				kept = append(kept, k)
			}
		}
		f.apiKeys = kept
		send(w, map[string]any{})
	})
	r.Get("/api/v1/policy", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		send(w, map[string]any{"policy": f.policy})
	})
	r.Put("/api/v1/policy", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Policy string `json:"policy"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		defer f.mu.Unlock()
		f.policy = body.Policy
		send(w, map[string]any{"policy": f.policy})
	})
	r.Post("/api/v1/echo", func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write(b)
	})

	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)
	return f, ts
}

func (f *fakeHeadscale) count(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[key]
}

func (f *fakeHeadscale) last() (url, auth string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastURL, f.lastAuth
}

func (f *fakeHeadscale) currentPolicy() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.policy
}

func (f *fakeHeadscale) setToken(token string) {
	f.mu.Lock()
	f.token = token
	f.mu.Unlock()
}

// newTestServer starts the dashboard against upstream (empty for none).
func newTestServer(t *testing.T, upstream string) (*Server, *httptest.Server) {
	t.Helper()
	t.Setenv("HEADSCALE_API_URL", upstream)
	t.Setenv("DASH_CONFIG", "")
	cfg := config.FromEnv()
	s, err := New(cfg)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	ts := httptest.NewServer(s.Routes())
	t.Cleanup(ts.Close)
	return s, ts
}

var csrfField = regexp.MustCompile(`name="csrf" value="([^"]+)"`)

// browser keeps cookies and the latest CSRF token like a real browser tab.
type browser struct {
	t    *testing.T
	base string
	c    *http.Client
	csrf string
	// header is added to every request.
	header http.Header
}

func newBrowser(t *testing.T, base string) *browser {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatal(err)
	}
	return &browser{t: t, base: base, c: &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}}
}

func (b *browser) do(req *http.Request) (*http.Response, string) {
	b.t.Helper()
	for k, v := range b.header {
		req.Header[k] = v
	}
	res, err := b.c.Do(req)
	if err != nil {
		b.t.Fatalf("%s %s: %v", req.Method, req.URL, err)
	}
	defer res.Body.Close()
	body, _ := io.ReadAll(res.Body)
	if m := csrfField.FindSubmatch(body); m != nil {
		b.csrf = string(m[1])
	}
	return res, string(body)
}

func (b *browser) get(path string) (*http.Response, string) {
	b.t.Helper()
	req, _ := http.NewRequest(http.MethodGet, b.base+path, nil)
	req.Header.Set("Accept-Language", "en")
	return b.do(req)
}

func (b *browser) post(path string, form url.Values) (*http.Response, string) {
	b.t.Helper()
	if form == nil {
		form = url.Values{}
	}
	if form.Get("csrf") == "" {
		form.Set("csrf", b.csrf)
	}
	req, _ := http.NewRequest(http.MethodPost, b.base+path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept-Language", "en")
	return b.do(req)
}

// login signs in with token and fails the test unless it succeeds.
func (b *browser) login(token string) {
	b.t.Helper()
	b.get("/login")
	res, body := b.post("/login", url.Values{"token": {token}})
	if res.StatusCode != http.StatusSeeOther {
		b.t.Fatalf("login: status %d body %s", res.StatusCode, body)
	}
	// the new session carries a new CSRF token
	b.get("/setup")
}
