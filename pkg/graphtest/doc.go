// Package graphtest provides an in-process fake of the Graph API and helpers
// for minting SDK cookies, so applications can test their login and graph
// code without network access.
//
// # Basic Usage
//
//	func TestLogin(t *testing.T) {
//	    srv := graphtest.NewServer(t, "app-id", "app-secret")
//	    srv.AddCode("code-1", "1001")
//	    srv.AddObject("1001", map[string]any{"name": "Alice"})
//
//	    a := auth.NewAuthenticator("app-id", "app-secret",
//	        graph.New(graph.WithEndpoint(srv.Endpoint())))
//
//	    cookie, _ := srv.Cookie("1001", "code-1")
//	    req := httptest.NewRequest("GET", "/", nil)
//	    req.AddCookie(cookie)
//
//	    user, err := a.UserFromRequest(req.Context(), req)
//	    // user.UID == "1001"
//	}
//
// Codes are single-use, like the real API: a second exchange fails with
// "Code has expired".
package graphtest
