package auth

import (
	"context"
	"net/url"
	"strings"

	"git.sr.ht/~jakintosh/fbgraph/pkg/graph"
)

const dialogURL = "https://www.facebook.com/dialog/oauth"

// AuthURL builds the OAuth dialog URL that sends the user back to
// redirectURI. Scopes are joined with commas. Extra parameters are applied
// last and replace any parameter of the same name.
func AuthURL(
	appID string,
	redirectURI string,
	scope []string,
	extra url.Values,
) string {
	params := url.Values{}
	params.Set("client_id", appID)
	params.Set("redirect_uri", redirectURI)
	if len(scope) > 0 {
		params.Set("scope", strings.Join(scope, ","))
	}
	for k, vs := range extra {
		params[k] = append([]string(nil), vs...)
	}
	return dialogURL + "?" + params.Encode()
}

// GetAccessTokenFromCode exchanges code using a default graph client.
func GetAccessTokenFromCode(
	ctx context.Context,
	code string,
	redirectURI string,
	appID string,
	secret string,
) (
	*graph.AccessToken,
	error,
) {
	return graph.New().GetAccessTokenFromCode(ctx, code, redirectURI, appID, secret)
}

// GetAppAccessToken fetches an app access token using a default graph client.
func GetAppAccessToken(
	ctx context.Context,
	appID string,
	secret string,
) (
	string,
	error,
) {
	return graph.New().GetAppAccessToken(ctx, appID, secret)
}
