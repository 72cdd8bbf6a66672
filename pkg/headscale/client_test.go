package headscale

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestClientInjectsBearerToken(t *testing.T) {
	var gotAuth, gotCT string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotCT = r.Header.Get("Content-Type")
		_, _ = w.Write([]byte(`{"databaseConnectivity":true}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "tok-123")
	h, err := c.Health(context.Background())
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	if !h.DatabaseConnectivity {
		t.Fatalf("unexpected health: %+v", h)
	}
	if gotAuth != "Bearer tok-123" {
		t.Fatalf("authorization header: %q", gotAuth)
	}
	if gotCT != "application/json" {
		t.Fatalf("content-type header: %q", gotCT)
	}
}

func TestClientWithoutTokenFailsBeforeIO(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	_, err := c.ListMachines(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized {
		t.Fatalf("expected 401 APIError, got %v", err)
	}
	if atomic.LoadInt32(&hits) != 0 {
		t.Fatalf("request reached the server")
	}
}

func TestClientClearsTokenOn401(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"code":16,"message":"Unauthorized"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "stale")
	called := 0
	c.OnTokenInvalid = func() { called++ }

	_, err := c.ListUsers(context.Background(), UserFilter{})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != 401 || apiErr.Message != "Unauthorized" {
		t.Fatalf("unexpected error: %+v", apiErr)
	}
	if c.Token() != "" {
		t.Fatalf("token not cleared")
	}
	if called != 1 {
		t.Fatalf("callback called %d times", called)
	}
}

func TestClientErrorMessageFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("not here"))
	}))
	defer srv.Close()

	_, err := New(srv.URL, "t").GetMachine(context.Background(), "9")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Message != "request failed with status code 404" {
		t.Fatalf("message: %q", apiErr.Message)
	}
}

func TestClientNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := New(url, "t").ListAPIKeys(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != 0 {
		t.Fatalf("expected transport APIError, got %v", err)
	}
}

func TestRenameMachineEscapesName(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		_, _ = w.Write([]byte(`{"node":{"id":"7","givenName":"web 01"}}`))
	}))
	defer srv.Close()

	m, err := New(srv.URL, "t").RenameMachine(context.Background(), "7", "web 01")
	if err != nil {
		t.Fatalf("rename: %v", err)
	}
	if gotPath != "/node/7/rename/web%2001" {
		t.Fatalf("path: %s", gotPath)
	}
	if m.GivenName != "web 01" {
		t.Fatalf("node: %+v", m)
	}
}

func TestGetPolicyTreats500AsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"message":"reading policy from path \"\": open : no such file or directory"}`))
	}))
	defer srv.Close()

	p, err := New(srv.URL, "t").GetPolicy(context.Background())
	if err != nil {
		t.Fatalf("get policy: %v", err)
	}
	if p != "{}" {
		t.Fatalf("policy: %q", p)
	}
}

func TestSetPolicyUsesPut(t *testing.T) {
	var method string
	var body map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		_ = json.NewDecoder(r.Body).Decode(&body)
		_ = json.NewEncoder(w).Encode(map[string]string{"policy": body["policy"]})
	}))
	defer srv.Close()

	out, err := New(srv.URL, "t").SetPolicy(context.Background(), `{"acls":[]}`)
	if err != nil {
		t.Fatalf("set policy: %v", err)
	}
	if method != http.MethodPut {
		t.Fatalf("method: %s", method)
	}
	if out != `{"acls":[]}` {
		t.Fatalf("policy: %s", out)
	}
}

func TestCreateAPIKeyOmitsUnsetExpiration(t *testing.T) {
	var raw []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ = io.ReadAll(r.Body)
		_, _ = w.Write([]byte(`{"apiKey":"abc.def"}`))
	}))
	defer srv.Close()

	res, err := New(srv.URL, "t").CreateAPIKey(context.Background(), nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if string(raw) != "{}\n" {
		t.Fatalf("body: %q", raw)
	}
	if res.APIKey != "abc.def" {
		t.Fatalf("response: %+v", res)
	}
}

func TestKeyOwnerDecodesIDOrObject(t *testing.T) {
	var keys []PreAuthKey
	data := `[{"id":"1","user":"4","key":"a"},{"id":"2","user":{"id":"5","name":"alice"},"key":"b"}]`
	if err := json.Unmarshal([]byte(data), &keys); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if keys[0].User.ID != "4" || keys[0].User.Label() != "4" {
		t.Fatalf("string owner: %+v", keys[0].User)
	}
	if keys[1].User.ID != "5" || keys[1].User.Label() != "alice" {
		t.Fatalf("object owner: %+v", keys[1].User)
	}
}

func TestPendingRegistrations(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	mux := http.NewServeMux()
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"users":[{"id":"1","name":"alice"},{"id":"2","name":"bob"}]}`))
	})
	mux.HandleFunc("/preauthkey", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("user") {
		case "1":
			_, _ = w.Write([]byte(`{"preAuthKeys":[
				{"id":"10","user":"1","key":"k-used","used":true},
				{"id":"11","user":"1","key":"k-old","expiration":"2025-02-01T00:00:00Z"},
				{"id":"12","user":"1","key":"k-a","createdAt":"2025-02-20T00:00:00Z"}]}`))
		case "2":
			_, _ = w.Write([]byte(`{"preAuthKeys":[
				{"id":"20","user":{"id":"2","name":"bob"},"key":"k-b","createdAt":"2025-02-25T00:00:00Z","expiration":"2025-04-01T00:00:00Z"}]}`))
		}
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	keys, err := New(srv.URL, "t").PendingRegistrations(context.Background(), now)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("expected 2 pending keys, got %d", len(keys))
	}
	if keys[0].Key != "k-b" || keys[1].Key != "k-a" {
		t.Fatalf("order: %s, %s", keys[0].Key, keys[1].Key)
	}
	if keys[1].User.Label() != "alice" {
		t.Fatalf("owner not filled: %+v", keys[1].User)
	}
}

func TestCreatePreAuthKeyResolvesUser(t *testing.T) {
	var body map[string]any
	mux := http.NewServeMux()
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"users":[{"id":"3","name":"carol"}]}`))
	})
	mux.HandleFunc("/preauthkey", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&body)
		_, _ = w.Write([]byte(`{"preAuthKey":{"id":"1","key":"secret","user":"3"}}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	k, err := New(srv.URL, "t").CreatePreAuthKey(context.Background(), CreatePreAuthKeyRequest{User: "carol", Reusable: true})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if body["user"] != "3" || body["reusable"] != true {
		t.Fatalf("body: %v", body)
	}
	if _, ok := body["aclTags"]; ok {
		t.Fatalf("empty tags should be omitted: %v", body)
	}
	if k.Key != "secret" {
		t.Fatalf("key: %+v", k)
	}

	_, err = New(srv.URL, "t").CreatePreAuthKey(context.Background(), CreatePreAuthKeyRequest{User: "nobody"})
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}
