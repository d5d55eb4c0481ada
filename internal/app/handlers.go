package app

import (
	"net/http"
	"net/url"

	"git.sr.ht/~jakintosh/fbgraph/pkg/auth"
	"git.sr.ht/~jakintosh/fbgraph/pkg/graph"
)

type homeModel struct {
	AppID    string
	LoginURL string
	User     *auth.User
	Name     string
}

func (a *App) Home() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		creds := a.credentials.Get()
		model := homeModel{
			AppID:    creds.AppID,
			LoginURL: auth.AuthURL(creds.AppID, a.canvasURL, a.scope, nil),
			User:     auth.UserFromContext(r.Context()),
		}

		if model.User != nil {
			profile, err := a.graphClient(model.User.AccessToken).
				GetObject(r.Context(), "me", url.Values{"fields": {"name"}})
			if err != nil {
				logAppErr(r, "couldn't load profile: "+err.Error())
			} else {
				model.Name = profile.String("name")
			}
		}

		renderTemplate(w, r, "home.html", model)
	}
}

// Login sends the browser to the OAuth dialog.
func (a *App) Login() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		creds := a.credentials.Get()
		http.Redirect(w, r, auth.AuthURL(creds.AppID, a.canvasURL, a.scope, nil), http.StatusSeeOther)
	}
}

/*
Canvas handles the POST a canvas page receives, which carries the signed
request in the "signed_request" form field rather than in a cookie.
*/
func (a *App) Canvas() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			logAppErr(r, "bad form")
			writeError(w, http.StatusBadRequest)
			return
		}

		signed := r.PostForm.Get("signed_request")
		user, err := a.authenticator().UserFromSignedRequest(r.Context(), signed)
		if err != nil {
			logAppErr(r, err.Error())
			writeError(w, http.StatusBadGateway)
			return
		}
		if user == nil {
			writeError(w, http.StatusUnauthorized)
			return
		}

		a.startSession(w, r, user)
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}

func (a *App) Me() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := auth.UserFromContext(r.Context())
		profile, err := a.graphClient(user.AccessToken).GetObject(r.Context(), "me", r.URL.Query())
		if err != nil {
			writeGraphError(w, r, err)
			return
		}
		returnJSON(profile, w)
	}
}

func (a *App) Friends() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := auth.UserFromContext(r.Context())
		friends, err := a.graphClient(user.AccessToken).GetConnections(r.Context(), "me", "friends", nil)
		if err != nil {
			writeGraphError(w, r, err)
			return
		}
		returnJSON(friends, w)
	}
}

// Post writes the "message" form field to the user's wall, optionally with a
// link attachment.
func (a *App) Post() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			logAppErr(r, "bad form")
			writeError(w, http.StatusBadRequest)
			return
		}
		message := r.PostForm.Get("message")
		if message == "" {
			logAppErr(r, "missing required 'message' field")
			writeError(w, http.StatusBadRequest)
			return
		}

		var attachment *graph.Attachment
		if link := r.PostForm.Get("link"); link != "" {
			attachment = &graph.Attachment{Link: link}
		}

		user := auth.UserFromContext(r.Context())
		res, err := a.graphClient(user.AccessToken).PutWallPost(r.Context(), message, attachment, "")
		if err != nil {
			writeGraphError(w, r, err)
			return
		}
		returnJSON(res, w)
	}
}

func (a *App) Logout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a.sessions.ClearCookie(w)
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}
