package auth_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"git.sr.ht/~jakintosh/fbgraph/pkg/auth"
)

type staticSource struct {
	user *auth.User
	err  error
}

func (s staticSource) UserFromRequest(ctx context.Context, r *http.Request) (*auth.User, error) {
	return s.user, s.err
}

func TestMiddleware_StoresUser(t *testing.T) {
	t.Parallel()

	want := &auth.User{UID: "1", AccessToken: "tok"}
	var got *auth.User
	handler := auth.Middleware(staticSource{user: want})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = auth.UserFromContext(r.Context())
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if got != want {
		t.Errorf("UserFromContext = %+v, want %+v", got, want)
	}
}

func TestMiddleware_NoUser(t *testing.T) {
	t.Parallel()

	called := false
	handler := auth.Middleware(staticSource{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		if user := auth.UserFromContext(r.Context()); user != nil {
			t.Errorf("expected no user, got %+v", user)
		}
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if !called {
		t.Error("next handler was not called")
	}
}

func TestMiddleware_SourceError(t *testing.T) {
	t.Parallel()

	handler := auth.Middleware(staticSource{err: errors.New("down")})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("next handler should not be called")
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if rr.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusBadGateway)
	}
}

func TestAuthURL(t *testing.T) {
	t.Parallel()

	raw := auth.AuthURL("42", "https://app.example.com/callback", []string{"email", "user_friends"}, url.Values{"state": {"xyz"}})
	if !strings.HasPrefix(raw, "https://www.facebook.com/dialog/oauth?") {
		t.Fatalf("unexpected prefix: %s", raw)
	}

	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("failed to parse url: %v", err)
	}
	q := u.Query()
	if q.Get("client_id") != "42" {
		t.Errorf("client_id = %s", q.Get("client_id"))
	}
	if q.Get("redirect_uri") != "https://app.example.com/callback" {
		t.Errorf("redirect_uri = %s", q.Get("redirect_uri"))
	}
	if q.Get("scope") != "email,user_friends" {
		t.Errorf("scope = %s", q.Get("scope"))
	}
	if q.Get("state") != "xyz" {
		t.Errorf("state = %s", q.Get("state"))
	}

	// scope is left out when empty
	u, _ = url.Parse(auth.AuthURL("42", "https://app.example.com/", nil, nil))
	if u.Query().Has("scope") {
		t.Error("expected no scope parameter")
	}
}

func TestAuthURL_ExtraOverrides(t *testing.T) {
	t.Parallel()

	extra := url.Values{
		"client_id":    {"99"},
		"redirect_uri": {"https://other.example.com/"},
		"display":      {"popup"},
	}
	u, err := url.Parse(auth.AuthURL("42", "https://app.example.com/", []string{"email"}, extra))
	if err != nil {
		t.Fatalf("failed to parse url: %v", err)
	}
	q := u.Query()
	if got := q["client_id"]; len(got) != 1 || got[0] != "99" {
		t.Errorf("client_id = %v, want [99]", got)
	}
	if got := q["redirect_uri"]; len(got) != 1 || got[0] != "https://other.example.com/" {
		t.Errorf("redirect_uri = %v", got)
	}
	if q.Get("scope") != "email" || q.Get("display") != "popup" {
		t.Errorf("unexpected query: %v", q)
	}

	// extra is not modified
	if extra.Get("client_id") != "99" || len(extra) != 3 {
		t.Errorf("extra was modified: %v", extra)
	}
}
