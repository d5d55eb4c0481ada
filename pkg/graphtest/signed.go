package graphtest

import (
	"net/http"
	"time"

	"git.sr.ht/~jakintosh/fbgraph/pkg/auth"
	"git.sr.ht/~jakintosh/fbgraph/pkg/signedrequest"
)

// SignedRequest mints a signed request for userID as the JavaScript SDK would.
// An empty code leaves the field out.
func (s *Server) SignedRequest(userID string, code string) (string, error) {
	return SignedRequest(s.Secret, userID, code)
}

// Cookie wraps a signed request in the fbsr_<app-id> cookie.
func (s *Server) Cookie(userID string, code string) (*http.Cookie, error) {
	return Cookie(s.AppID, s.Secret, userID, code)
}

// SignedRequest mints a signed request for userID signed with secret.
func SignedRequest(secret string, userID string, code string) (string, error) {
	payload := map[string]any{
		"algorithm": signedrequest.Algorithm,
		"user_id":   userID,
		"issued_at": time.Now().Unix(),
	}
	if code != "" {
		payload["code"] = code
	}
	return signedrequest.Sign(payload, secret)
}

// Cookie builds the SDK cookie for appID carrying a signed request.
func Cookie(
	appID string,
	secret string,
	userID string,
	code string,
) (
	*http.Cookie,
	error,
) {
	value, err := SignedRequest(secret, userID, code)
	if err != nil {
		return nil, err
	}
	return &http.Cookie{
		Name:  auth.CookieName(appID),
		Value: value,
		Path:  "/",
	}, nil
}
