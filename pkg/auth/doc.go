// Package auth authenticates visitors who logged in through the JavaScript
// SDK, and builds OAuth dialog URLs.
//
// The SDK stores a signed request in a cookie named fbsr_<app-id>. The
// signed request carries the user id and a one-time authorization code.
// An Authenticator verifies the cookie with the app secret and exchanges the
// code for an access token.
//
// # Quick Start
//
//	a := auth.NewAuthenticator(appID, appSecret, nil)
//
//	func handler(w http.ResponseWriter, r *http.Request) {
//	    user, err := a.UserFromRequest(r.Context(), r)
//	    if err != nil {
//	        // the graph API could not be reached
//	        http.Error(w, "Bad Gateway", http.StatusBadGateway)
//	        return
//	    }
//	    if user == nil {
//	        // not logged in
//	        http.Redirect(w, r, auth.AuthURL(appID, callbackURL, nil, nil), http.StatusSeeOther)
//	        return
//	    }
//
//	    g := graph.New(graph.WithAccessToken(user.AccessToken))
//	    profile, err := g.GetObject(r.Context(), "me", nil)
//	    ...
//	}
//
// # What Counts As Logged In
//
// A missing cookie, a cookie that fails signature verification, and a code
// the API refuses (codes are single-use and expire quickly) are all the
// ordinary "nobody is logged in" case: UserFromRequest returns nil, nil.
// Errors are reserved for network failures and cancellation, which are
// wrapped in [ErrExchange], and for a secret containing non-ASCII bytes.
//
// Because codes are single-use, applications usually keep the exchanged
// token in their own session rather than calling UserFromRequest on every
// request.
//
// # Middleware
//
// Middleware stores the user in the request context:
//
//	r.Use(auth.Middleware(a))
//
//	func handler(w http.ResponseWriter, r *http.Request) {
//	    if user := auth.UserFromContext(r.Context()); user != nil {
//	        ...
//	    }
//	}
//
// # Logging
//
// Rejections are logged through the standard logger, gated by SetLogLevel.
// Secrets and tokens are never logged.
package auth
