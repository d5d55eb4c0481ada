// Package signedrequest verifies and issues the signed requests that the
// JavaScript SDK stores in the fbsr_<app-id> cookie.
//
// A signed request is two base64url segments joined by a period: the
// HMAC-SHA256 signature, then the JSON payload. Padding is stripped from both
// segments. The signature is computed over the encoded payload segment, not
// over the decoded JSON, using the application secret as the key.
//
// # Verifying
//
//	payload, err := signedrequest.Parse(cookie.Value, appSecret)
//	if err != nil {
//	    // not authenticated
//	    return
//	}
//	userID := payload.UserID()
//	code := payload.Code()
//
// Every rejection satisfies errors.Is(err, signedrequest.ErrInvalid). The
// reason is only available for logging, through the Context method:
//
//	var ctx interface{ Context() string }
//	if errors.As(err, &ctx) {
//	    log.Println(ctx.Context())
//	}
//
// A secret containing non-ASCII bytes is a configuration error and yields
// [ErrSecretNotASCII] instead.
//
// # Issuing
//
// Sign produces a signed request in the same format. It exists mostly for
// tests that need to simulate the SDK cookie:
//
//	token, err := signedrequest.Sign(map[string]any{
//	    "user_id": "123",
//	    "code":    "abc",
//	}, appSecret)
package signedrequest
