// Package app is a small web application that signs users in with the
// JavaScript SDK cookie and reads their profile through the Graph API.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"git.sr.ht/~jakintosh/fbgraph/internal/credentials"
	"git.sr.ht/~jakintosh/fbgraph/internal/session"
	"git.sr.ht/~jakintosh/fbgraph/pkg/auth"
	"git.sr.ht/~jakintosh/fbgraph/pkg/graph"
)

// sessions without a known expiry are kept for a day
const defaultSessionLifetime = 24 * time.Hour

type Options struct {
	Credentials  *credentials.Store
	Sessions     *session.Codec
	GraphOptions []graph.Option

	// CanvasURL is where the OAuth dialog sends the user back to.
	CanvasURL string
	Scope     []string
}

type App struct {
	credentials *credentials.Store
	sessions    *session.Codec
	graphOpts   []graph.Option
	canvasURL   string
	scope       []string
	now         func() time.Time
}

func New(opts Options) (*App, error) {
	if opts.Credentials == nil {
		return nil, errors.New("app: credentials are required")
	}
	if opts.Sessions == nil {
		return nil, errors.New("app: session codec is required")
	}
	return &App{
		credentials: opts.Credentials,
		sessions:    opts.Sessions,
		graphOpts:   opts.GraphOptions,
		canvasURL:   opts.CanvasURL,
		scope:       opts.Scope,
		now:         time.Now,
	}, nil
}

// authenticator is built per request so rotated credentials apply at once.
func (a *App) authenticator() *auth.Authenticator {
	c := a.credentials.Get()
	return auth.NewAuthenticator(c.AppID, c.AppSecret, graph.New(a.graphOpts...))
}

func (a *App) graphClient(accessToken string) *graph.Client {
	opts := append([]graph.Option{}, a.graphOpts...)
	opts = append(opts, graph.WithAccessToken(accessToken))
	return graph.New(opts...)
}

// credentialSource resolves SDK users with the current app credentials.
type credentialSource struct {
	app *App
}

var _ auth.UserSource = credentialSource{}

func (c credentialSource) UserFromRequest(
	ctx context.Context,
	r *http.Request,
) (*auth.User, error) {
	return c.app.authenticator().UserFromRequest(ctx, r)
}

/*
withUser resolves the signed-in user. An existing session cookie wins; without
one auth.Middleware verifies the SDK cookie and exchanges its code, and the
result is sealed into a new session so the single-use code is never needed
again.
*/
func (a *App) withUser(next http.Handler) http.Handler {
	fromSDK := auth.Middleware(credentialSource{app: a})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if user := auth.UserFromContext(r.Context()); user != nil {
				a.startSession(w, r, user)
			}
			next.ServeHTTP(w, r)
		}),
	)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s := a.sessions.FromRequest(r); s != nil {
			user := &auth.User{UID: s.UID, AccessToken: s.AccessToken}
			if !s.Expires.IsZero() {
				user.ExpiresIn = s.Expires.Sub(a.now())
			}
			next.ServeHTTP(w, r.WithContext(auth.WithUser(r.Context(), user)))
			return
		}
		fromSDK.ServeHTTP(w, r)
	})
}

func (a *App) startSession(
	w http.ResponseWriter,
	r *http.Request,
	user *auth.User,
) {
	lifetime := user.ExpiresIn
	if lifetime <= 0 {
		lifetime = defaultSessionLifetime
	}
	err := a.sessions.SetCookie(w, session.Session{
		UID:         user.UID,
		AccessToken: user.AccessToken,
		Expires:     a.now().Add(lifetime),
	})
	if err != nil {
		logAppErr(r, "couldn't seal session: "+err.Error())
	}
}

// requireUser answers 401 for requests that withUser did not resolve.
func requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth.UserFromContext(r.Context()) == nil {
			writeError(w, http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func returnJSON(data any, w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	err := json.NewEncoder(w).Encode(data)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
}

func writeError(w http.ResponseWriter, status int) {
	http.Error(w, http.StatusText(status), status)
}

// writeGraphError maps a failed Graph call onto a response. API refusals are
// the caller's problem, everything else is an upstream failure.
func writeGraphError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *graph.APIError
	switch {
	case errors.As(err, &apiErr):
		logAppErr(r, "graph refused: "+apiErr.Error())
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{
				"message": apiErr.Message,
				"type":    apiErr.Type,
				"code":    apiErr.Code,
			},
		})
	case errors.Is(err, context.DeadlineExceeded):
		logAppErr(r, "graph timed out")
		writeError(w, http.StatusGatewayTimeout)
	default:
		logAppErr(r, err.Error())
		writeError(w, http.StatusBadGateway)
	}
}

func logAppErr(r *http.Request, msg string) {
	log.Printf("%s %s: %s\n", r.Method, r.RequestURI, msg)
}
