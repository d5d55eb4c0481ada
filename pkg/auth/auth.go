package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"git.sr.ht/~jakintosh/fbgraph/pkg/graph"
	"git.sr.ht/~jakintosh/fbgraph/pkg/signedrequest"
)

type LogLevel int

const (
	LogLevelNone LogLevel = iota
	LogLevelError
	LogLevelInfo
	LogLevelDebug
)
const LogLevelDefault = LogLevelError

var _logLevel LogLevel = LogLevelDefault

func _log(level LogLevel, format string, v ...any) {
	if _logLevel >= level {
		log.Printf(format, v...)
	}
}

func SetLogLevel(logLevel LogLevel) {
	_logLevel = logLevel
}

var ErrExchange = errors.New("failed to exchange code")

const cookiePrefix = "fbsr_"

// CookieName is the name of the cookie the JavaScript SDK sets for appID.
func CookieName(appID string) string {
	return cookiePrefix + appID
}

// User is a visitor authenticated through the SDK cookie.
type User struct {
	UID         string
	AccessToken string
	// ExpiresIn is zero when the API did not report an expiry.
	ExpiresIn time.Duration
}

// Exchanger trades an authorization code for an access token.
// *graph.Client implements it.
type Exchanger interface {
	GetAccessTokenFromCode(
		ctx context.Context,
		code string,
		redirectURI string,
		appID string,
		secret string,
	) (
		*graph.AccessToken,
		error,
	)
}

// Authenticator resolves the current user from the SDK cookie of one app.
type Authenticator struct {
	appID     string
	secret    string
	exchanger Exchanger
}

// NewAuthenticator builds an Authenticator. A nil exchanger uses a default
// graph.Client.
func NewAuthenticator(
	appID string,
	secret string,
	exchanger Exchanger,
) *Authenticator {
	if exchanger == nil {
		exchanger = graph.New()
	}
	return &Authenticator{
		appID:     appID,
		secret:    secret,
		exchanger: exchanger,
	}
}

func (a *Authenticator) AppID() string { return a.appID }

/*
UserFromRequest returns the user logged in through the JavaScript SDK, or nil
if there is none.

A missing cookie, a cookie that fails verification, a payload without a code
and a code the API refuses (expired or already used) all mean "no user" and
return nil, nil. Only failures to reach the API, cancellation of ctx, and a
misconfigured secret are returned as errors.
*/
func (a *Authenticator) UserFromRequest(
	ctx context.Context,
	r *http.Request,
) (
	*User,
	error,
) {
	cookie, err := r.Cookie(CookieName(a.appID))
	if err != nil {
		return nil, nil
	}
	return a.UserFromSignedRequest(ctx, cookie.Value)
}

// UserFromCookies is UserFromRequest for callers holding cookies directly.
func (a *Authenticator) UserFromCookies(
	ctx context.Context,
	cookies []*http.Cookie,
) (
	*User,
	error,
) {
	name := CookieName(a.appID)
	for _, cookie := range cookies {
		if cookie.Name == name {
			return a.UserFromSignedRequest(ctx, cookie.Value)
		}
	}
	return nil, nil
}

// UserFromSignedRequest runs the same flow on a raw signed request.
func (a *Authenticator) UserFromSignedRequest(
	ctx context.Context,
	signed string,
) (
	*User,
	error,
) {
	if signed == "" {
		return nil, nil
	}

	payload, err := signedrequest.Parse(signed, a.secret)
	if errors.Is(err, signedrequest.ErrSecretNotASCII) {
		return nil, err
	}
	if err != nil {
		var ctxErr interface{ Context() string }
		if errors.As(err, &ctxErr) {
			_log(LogLevelDebug, "auth: rejected signed request: %s\n", ctxErr.Context())
		}
		return nil, nil
	}

	code := payload.Code()
	if code == "" {
		_log(LogLevelDebug, "auth: signed request for %s carries no code\n", payload.UserID())
		return nil, nil
	}

	token, err := a.exchanger.GetAccessTokenFromCode(ctx, code, "", a.appID, a.secret)
	if err != nil {
		var apiErr *graph.APIError
		if errors.As(err, &apiErr) {
			_log(LogLevelInfo, "auth: code exchange refused for %s: %s\n", payload.UserID(), apiErr.Message)
			return nil, nil
		}
		_log(LogLevelError, "auth: code exchange failed: %v\n", err)
		return nil, fmt.Errorf("%w: %w", ErrExchange, err)
	}

	return &User{
		UID:         payload.UserID(),
		AccessToken: token.Token,
		ExpiresIn:   token.ExpiresIn,
	}, nil
}
