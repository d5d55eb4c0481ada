package app

import (
	"net/http"

	"github.com/gorilla/mux"
)

func (a *App) Router() http.Handler {
	r := mux.NewRouter()
	r.Use(a.withUser)

	r.HandleFunc("/", a.Home()).Methods("GET")
	r.HandleFunc("/login", a.Login()).Methods("GET")
	r.HandleFunc("/canvas", a.Canvas()).Methods("POST")
	r.HandleFunc("/logout", a.Logout()).Methods("POST")

	// routes that need a user
	s := r.PathPrefix("/api").Subrouter()
	s.Use(requireUser)
	s.Handle("/me", a.Me()).Methods("GET")
	s.Handle("/friends", a.Friends()).Methods("GET")
	s.Handle("/feed", a.Post()).Methods("POST")

	return r
}
