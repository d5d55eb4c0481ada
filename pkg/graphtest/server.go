package graphtest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/mux"
)

// LongLivedExpiry is the expires_in, in seconds, of tokens the server issues.
const LongLivedExpiry = 5183944

// Post is a write received by the server.
type Post struct {
	Parent     string
	Connection string
	Form       url.Values
	// FileSize is the size of the uploaded "file" part, if any.
	FileSize int
}

// Server is an in-process fake of the Graph API. It understands the token
// exchange endpoints, object and connection reads, writes and deletes.
type Server struct {
	*httptest.Server

	AppID  string
	Secret string

	mu                sync.Mutex
	queryStringTokens bool
	codes             map[string]string // code -> user id
	tokens            map[string]string // access token -> user id ("" for app tokens)
	objects           map[string]map[string]any
	connections       map[string][]any
	pictures          map[string][]byte
	posts             []Post
	deleted           []string
	issued            int
}

// NewServer starts a fake Graph API for the given app credentials. It is
// closed automatically when the test ends.
func NewServer(
	t testing.TB,
	appID string,
	secret string,
) *Server {
	s := &Server{
		AppID:       appID,
		Secret:      secret,
		codes:       make(map[string]string),
		tokens:      make(map[string]string),
		objects:     make(map[string]map[string]any),
		connections: make(map[string][]any),
		pictures:    make(map[string][]byte),
	}
	s.Server = httptest.NewServer(s.router())
	t.Cleanup(s.Close)
	return s
}

// Endpoint is the base URL to hand to graph.WithEndpoint.
func (s *Server) Endpoint() string {
	return s.URL + "/"
}

// SetQueryStringTokens makes token endpoints answer with the legacy
// text/plain query string instead of JSON.
func (s *Server) SetQueryStringTokens(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queryStringTokens = enabled
}

// AddCode registers a single-use authorization code for userID and returns
// the access token the exchange will produce.
func (s *Server) AddCode(code string, userID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[code] = userID
	return s.tokenFor(code, userID)
}

// IssueToken registers a valid user access token without a code exchange.
func (s *Server) IssueToken(userID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issued++
	token := fmt.Sprintf("token-%s-%d", userID, s.issued)
	s.tokens[token] = userID
	return token
}

// AddObject registers an object. The id field is filled in when absent.
func (s *Server) AddObject(id string, fields map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		obj[k] = v
	}
	if _, ok := obj["id"]; !ok {
		obj["id"] = id
	}
	s.objects[id] = obj
}

// AddConnection appends items to the connection of id.
func (s *Server) AddConnection(id string, connection string, items ...map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := id + "/" + connection
	for _, item := range items {
		s.connections[key] = append(s.connections[key], item)
	}
}

// AddPicture makes GET /{id}/picture answer with a PNG body.
func (s *Server) AddPicture(id string, png []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pictures[id] = png
}

// Posts returns the writes received so far.
func (s *Server) Posts() []Post {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Post(nil), s.posts...)
}

// Deleted returns the ids deleted so far.
func (s *Server) Deleted() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.deleted...)
}

func (s *Server) tokenFor(code string, userID string) string {
	return fmt.Sprintf("token-%s-%s", userID, code)
}

func (s *Server) router() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/oauth/access_token", s.handleAccessToken).Methods(http.MethodGet)
	r.HandleFunc("/", s.handleObjects).Methods(http.MethodGet)
	r.HandleFunc("/{id}", s.handleObject).Methods(http.MethodGet)
	r.HandleFunc("/{id}", s.handleDelete).Methods(http.MethodDelete)
	r.HandleFunc("/{id}", s.handleUpload).Methods(http.MethodPost)
	r.HandleFunc("/{id}/{connection}", s.handleConnection).Methods(http.MethodGet)
	r.HandleFunc("/{id}/{connection}", s.handlePost).Methods(http.MethodPost)

	return r
}

func (s *Server) handleAccessToken(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("client_id") != s.AppID || q.Get("client_secret") != s.Secret {
		writeError(w, http.StatusBadRequest, "Error validating client secret.", "OAuthException", 1)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch q.Get("grant_type") {
	case "client_credentials":
		token := s.AppID + "|app-token"
		s.tokens[token] = ""
		writeJSON(w, http.StatusOK, map[string]any{
			"access_token": token,
			"token_type":   "bearer",
		})
		return

	case "fb_exchange_token":
		userID, ok := s.tokens[q.Get("fb_exchange_token")]
		if !ok {
			writeError(w, http.StatusBadRequest, "Invalid OAuth access token.", "OAuthException", 190)
			return
		}
		s.issued++
		token := fmt.Sprintf("long-%s-%d", userID, s.issued)
		s.tokens[token] = userID
		s.writeToken(w, token)
		return
	}

	code := q.Get("code")
	userID, ok := s.codes[code]
	if !ok {
		writeError(w, http.StatusBadRequest, "Code has expired", "OAuthException", 0)
		return
	}
	delete(s.codes, code)

	token := s.tokenFor(code, userID)
	s.tokens[token] = userID
	s.writeToken(w, token)
}

func (s *Server) writeToken(w http.ResponseWriter, token string) {
	if s.queryStringTokens {
		w.Header().Set("Content-Type", "text/plain; charset=UTF-8")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "access_token=%s&expires=%d", url.QueryEscape(token), LongLivedExpiry)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": token,
		"token_type":   "bearer",
		"expires_in":   LongLivedExpiry,
	})
}

func (s *Server) handleObjects(w http.ResponseWriter, r *http.Request) {
	ids := r.URL.Query().Get("ids")
	if ids == "" {
		writeError(w, http.StatusBadRequest, "Unsupported get request.", "GraphMethodException", 100)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	result := make(map[string]any)
	for _, id := range strings.Split(ids, ",") {
		obj, ok := s.objects[s.resolve(r, id)]
		if !ok {
			writeError(w, http.StatusNotFound, fmt.Sprintf("(#803) Some of the aliases you requested do not exist: %s", id), "OAuthException", 803)
			return
		}
		result[id] = obj
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleObject(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.resolve(r, mux.Vars(r)["id"])
	obj, ok := s.objects[id]
	if !ok {
		writeError(w, http.StatusNotFound, "Unsupported get request.", "GraphMethodException", 100)
		return
	}
	writeJSON(w, http.StatusOK, obj)
}

func (s *Server) handleConnection(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.resolve(r, vars["id"])
	if vars["connection"] == "picture" {
		if png, ok := s.pictures[id]; ok {
			w.Header().Set("Content-Type", "image/png")
			w.WriteHeader(http.StatusOK)
			w.Write(png)
			return
		}
	}

	items := s.connections[id+"/"+vars["connection"]]
	if items == nil {
		items = []any{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": items})
}

func (s *Server) handlePost(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "malformed form", "GraphMethodException", 100)
		return
	}
	vars := mux.Vars(r)
	s.record(w, r, Post{
		Parent:     vars["id"],
		Connection: vars["connection"],
		Form:       r.PostForm,
	})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "malformed upload", "GraphMethodException", 100)
		return
	}
	post := Post{
		Parent:     mux.Vars(r)["id"],
		Connection: "photos",
		Form:       url.Values(r.MultipartForm.Value),
	}
	if file, _, err := r.FormFile("file"); err == nil {
		data, _ := io.ReadAll(file)
		file.Close()
		post.FileSize = len(data)
	}
	s.record(w, r, post)
}

func (s *Server) record(w http.ResponseWriter, r *http.Request, post Post) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.authorized(post.Form.Get("access_token")) {
		writeError(w, http.StatusBadRequest, "An active access token must be used to query information about the current user.", "OAuthException", 2500)
		return
	}
	post.Parent = s.resolveToken(post.Form.Get("access_token"), post.Parent)
	s.posts = append(s.posts, post)
	writeJSON(w, http.StatusOK, map[string]any{
		"id": fmt.Sprintf("%s_%d", post.Parent, len(s.posts)),
	})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.authorized(r.URL.Query().Get("access_token")) {
		writeError(w, http.StatusBadRequest, "An active access token must be used to query information about the current user.", "OAuthException", 2500)
		return
	}
	id := mux.Vars(r)["id"]
	delete(s.objects, id)
	s.deleted = append(s.deleted, id)
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) authorized(token string) bool {
	_, ok := s.tokens[token]
	return ok
}

// resolve maps "me" to the user owning the request's access token.
func (s *Server) resolve(r *http.Request, id string) string {
	return s.resolveToken(r.URL.Query().Get("access_token"), id)
}

func (s *Server) resolveToken(token string, id string) string {
	if id != "me" {
		return id
	}
	if userID, ok := s.tokens[token]; ok && userID != "" {
		return userID
	}
	return id
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(
	w http.ResponseWriter,
	status int,
	message string,
	errType string,
	code int,
) {
	body := map[string]any{
		"message": message,
		"type":    errType,
	}
	if code != 0 {
		body["code"] = code
	}
	writeJSON(w, status, map[string]any{"error": body})
}
