package graph

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// AccessToken is the result of an OAuth token exchange.
type AccessToken struct {
	Token     string
	TokenType string
	// ExpiresIn is zero when the token does not expire or the API did not say.
	ExpiresIn time.Duration
}

// GetAppAccessToken returns an app access token for appID.
func (c *Client) GetAppAccessToken(
	ctx context.Context,
	appID string,
	secret string,
) (
	string,
	error,
) {
	res, err := c.Request(ctx, "oauth/access_token", RequestOptions{
		Args: url.Values{
			"grant_type":    {"client_credentials"},
			"client_id":     {appID},
			"client_secret": {secret},
		},
	})
	if err != nil {
		return "", err
	}
	token := res.String("access_token")
	if token == "" {
		return "", fmt.Errorf("%w: missing access_token", ErrResponse)
	}
	return token, nil
}

// GetAccessTokenFromCode exchanges an authorization code, from the OAuth
// dialog or from a signed request, for a user access token. Codes from
// signed requests use an empty redirectURI.
func (c *Client) GetAccessTokenFromCode(
	ctx context.Context,
	code string,
	redirectURI string,
	appID string,
	secret string,
) (
	*AccessToken,
	error,
) {
	res, err := c.Request(ctx, "oauth/access_token", RequestOptions{
		Args: url.Values{
			"code":          {code},
			"redirect_uri":  {redirectURI},
			"client_id":     {appID},
			"client_secret": {secret},
		},
	})
	if err != nil {
		return nil, err
	}
	return accessTokenFromResponse(res)
}

// ExtendAccessToken trades the client's short-lived user token for a
// long-lived one.
func (c *Client) ExtendAccessToken(
	ctx context.Context,
	appID string,
	secret string,
) (
	*AccessToken,
	error,
) {
	if c.accessToken == "" {
		return nil, ErrAccessTokenRequired
	}
	res, err := c.Request(ctx, "oauth/access_token", RequestOptions{
		Args: url.Values{
			"client_id":         {appID},
			"client_secret":     {secret},
			"grant_type":        {"fb_exchange_token"},
			"fb_exchange_token": {c.accessToken},
		},
	})
	if err != nil {
		return nil, err
	}
	return accessTokenFromResponse(res)
}

func accessTokenFromResponse(res Response) (*AccessToken, error) {
	token := res.String("access_token")
	if token == "" {
		return nil, fmt.Errorf("%w: missing access_token", ErrResponse)
	}

	// newer versions answer with JSON expires_in, older ones with a
	// query string "expires"
	var expires any
	if v, ok := res["expires_in"]; ok {
		expires = v
	} else {
		expires = res["expires"]
	}

	return &AccessToken{
		Token:     token,
		TokenType: res.String("token_type"),
		ExpiresIn: seconds(expires),
	}, nil
}

func seconds(v any) time.Duration {
	switch v := v.(type) {
	case float64:
		return time.Duration(v) * time.Second
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0
		}
		return time.Duration(n) * time.Second
	default:
		return 0
	}
}
