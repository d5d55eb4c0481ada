// Package testutil provides test environment setup and utilities for internal package tests.
package testutil

import (
	"bytes"
	"fmt"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"git.sr.ht/~jakintosh/fbgraph/internal/app"
	"git.sr.ht/~jakintosh/fbgraph/internal/credentials"
	"git.sr.ht/~jakintosh/fbgraph/internal/session"
	"git.sr.ht/~jakintosh/fbgraph/pkg/graph"
	"git.sr.ht/~jakintosh/fbgraph/pkg/graphtest"
)

const (
	TestAppID     = "1234"
	TestAppSecret = "topsecret"
	TestCanvasURL = "https://apps.example.com/canvas"
)

var codeCounter atomic.Int64

// TestEnv provides all dependencies needed for testing
type TestEnv struct {
	Graph       *graphtest.Server
	Credentials *credentials.Store
	Sessions    *session.Codec
	App         *app.App
	Router      http.Handler
}

// SetupTestEnv creates an isolated example app backed by a fake Graph API
func SetupTestEnv(
	t *testing.T,
) *TestEnv {
	t.Helper()

	srv := graphtest.NewServer(t, TestAppID, TestAppSecret)
	creds := credentials.Static(credentials.Credentials{
		AppID:     TestAppID,
		AppSecret: TestAppSecret,
	})

	// fixed key keeps failures reproducible
	sessions, err := session.NewCodec(
		bytes.Repeat([]byte{0x42}, session.KeySize),
		session.CookieOptions{
			Secure:   false,
			SameSite: http.SameSiteLaxMode,
			Path:     "/",
		},
	)
	if err != nil {
		t.Fatalf("failed to create session codec: %v", err)
	}

	a, err := app.New(app.Options{
		Credentials: creds,
		Sessions:    sessions,
		GraphOptions: []graph.Option{
			graph.WithEndpoint(srv.Endpoint()),
			graph.WithTimeout(5 * time.Second),
		},
		CanvasURL: TestCanvasURL,
		Scope:     []string{"email", "publish_actions"},
	})
	if err != nil {
		t.Fatalf("failed to create app: %v", err)
	}

	return &TestEnv{
		Graph:       srv,
		Credentials: creds,
		Sessions:    sessions,
		App:         a,
		Router:      a.Router(),
	}
}

// AddUser registers a user object with the fake Graph API
func (env *TestEnv) AddUser(
	t *testing.T,
	uid string,
	name string,
) {
	t.Helper()
	env.Graph.AddObject(uid, map[string]any{"name": name})
}

// SDKCookie returns a signed request cookie, as the JavaScript SDK would set
// it, carrying a fresh code for uid
func (env *TestEnv) SDKCookie(
	t *testing.T,
	uid string,
) *http.Cookie {
	t.Helper()
	code := fmt.Sprintf("code-%d", codeCounter.Add(1))
	env.Graph.AddCode(code, uid)
	cookie, err := env.Graph.Cookie(uid, code)
	if err != nil {
		t.Fatalf("failed to mint sdk cookie: %v", err)
	}
	return cookie
}

// SessionCookie returns a session cookie for uid holding a token the fake
// Graph API accepts
func (env *TestEnv) SessionCookie(
	t *testing.T,
	uid string,
) *http.Cookie {
	t.Helper()
	value, err := env.Sessions.Seal(session.Session{
		UID:         uid,
		AccessToken: env.Graph.IssueToken(uid),
		Expires:     time.Now().Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("failed to seal session: %v", err)
	}
	return &http.Cookie{Name: session.CookieName, Value: value}
}
