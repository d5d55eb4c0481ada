package graph_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"git.sr.ht/~jakintosh/fbgraph/pkg/graph"
	"git.sr.ht/~jakintosh/fbgraph/pkg/graphtest"
	"github.com/google/go-cmp/cmp"
)

const (
	testAppID  = "1234"
	testSecret = "topsecret"
)

func setupGraph(t *testing.T) (*graphtest.Server, *graph.Client) {
	t.Helper()
	srv := graphtest.NewServer(t, testAppID, testSecret)
	token := srv.IssueToken("1001")
	srv.AddObject("1001", map[string]any{"name": "Alice"})
	c := graph.New(
		graph.WithEndpoint(srv.Endpoint()),
		graph.WithAccessToken(token),
	)
	return srv, c
}

// serve answers every request with the given content type and body.
func serve(t *testing.T, status int, contentType string, body string) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if contentType != "" {
			w.Header().Set("Content-Type", contentType)
		}
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(ts.Close)
	return ts
}

func expectAPIError(t *testing.T, err error) *graph.APIError {
	t.Helper()
	var apiErr *graph.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *graph.APIError, got %T: %v", err, err)
	}
	return apiErr
}

func TestNew_Defaults(t *testing.T) {
	t.Parallel()

	c := graph.New()
	if c.Endpoint() != graph.DefaultEndpoint {
		t.Errorf("Endpoint = %s, want %s", c.Endpoint(), graph.DefaultEndpoint)
	}
	if c.AccessToken() != "" {
		t.Errorf("AccessToken = %s, want empty", c.AccessToken())
	}

	// endpoint gets a trailing slash
	c = graph.New(graph.WithEndpoint("http://localhost:1234/v2.1"))
	if c.Endpoint() != "http://localhost:1234/v2.1/" {
		t.Errorf("Endpoint = %s", c.Endpoint())
	}
}

func TestGetObject_Me(t *testing.T) {
	t.Parallel()
	_, c := setupGraph(t)

	// "me" resolves to the token's owner
	obj, err := c.GetObject(context.Background(), "me", nil)
	if err != nil {
		t.Fatalf("GetObject failed: %v", err)
	}
	want := graph.Response{"id": "1001", "name": "Alice"}
	if diff := cmp.Diff(want, obj); diff != "" {
		t.Errorf("object mismatch (-want +got):\n%s", diff)
	}
}

func TestGetObject_NotFound(t *testing.T) {
	t.Parallel()
	_, c := setupGraph(t)

	_, err := c.GetObject(context.Background(), "nope", nil)
	apiErr := expectAPIError(t, err)
	if apiErr.Type != "GraphMethodException" {
		t.Errorf("Type = %s", apiErr.Type)
	}
	if apiErr.Code != 100 {
		t.Errorf("Code = %d, want 100", apiErr.Code)
	}
}

func TestGetObjects(t *testing.T) {
	t.Parallel()
	srv, c := setupGraph(t)
	srv.AddObject("2002", map[string]any{"name": "Bob"})

	res, err := c.GetObjects(context.Background(), []string{"1001", "2002"}, nil)
	if err != nil {
		t.Fatalf("GetObjects failed: %v", err)
	}
	if len(res) != 2 {
		t.Fatalf("expected 2 objects, got %d", len(res))
	}
	bob, _ := res["2002"].(map[string]any)
	if bob["name"] != "Bob" {
		t.Errorf("2002 = %v", res["2002"])
	}

	// an unknown id fails the whole call
	_, err = c.GetObjects(context.Background(), []string{"1001", "missing"}, nil)
	expectAPIError(t, err)
}

func TestGetConnections(t *testing.T) {
	t.Parallel()
	srv, c := setupGraph(t)
	srv.AddConnection("1001", "friends",
		map[string]any{"id": "2", "name": "Bob"},
		map[string]any{"id": "3", "name": "Carol"},
	)

	res, err := c.GetConnections(context.Background(), "me", "friends", url.Values{"limit": {"10"}})
	if err != nil {
		t.Fatalf("GetConnections failed: %v", err)
	}
	if len(res.Data()) != 2 {
		t.Errorf("expected 2 friends, got %d", len(res.Data()))
	}

	// unknown connections are empty
	res, err = c.GetConnections(context.Background(), "me", "photos", nil)
	if err != nil {
		t.Fatalf("GetConnections failed: %v", err)
	}
	if len(res.Data()) != 0 {
		t.Errorf("expected no photos, got %d", len(res.Data()))
	}
}

func TestGetPicture_Image(t *testing.T) {
	t.Parallel()
	srv, c := setupGraph(t)

	png := []byte("\x89PNG\r\n\x1a\nfake")
	srv.AddPicture("1001", png)

	// image responses carry the bytes, the mime type and the url
	res, err := c.GetConnections(context.Background(), "1001", "picture", nil)
	if err != nil {
		t.Fatalf("GetConnections failed: %v", err)
	}
	data, _ := res["data"].([]byte)
	if !bytes.Equal(data, png) {
		t.Errorf("data = %q, want %q", data, png)
	}
	if res.String("mime-type") != "image/png" {
		t.Errorf("mime-type = %s", res.String("mime-type"))
	}
	if !strings.HasPrefix(res.String("url"), srv.URL+"/1001/picture") {
		t.Errorf("url = %s", res.String("url"))
	}
}

func TestWrites_RequireAccessToken(t *testing.T) {
	t.Parallel()
	srv, _ := setupGraph(t)
	c := graph.New(graph.WithEndpoint(srv.Endpoint()))
	ctx := context.Background()

	calls := map[string]func() error{
		"PutObject": func() error {
			_, err := c.PutObject(ctx, "me", "feed", url.Values{"message": {"hi"}})
			return err
		},
		"PutLike": func() error {
			_, err := c.PutLike(ctx, "1")
			return err
		},
		"DeleteObject": func() error {
			_, err := c.DeleteObject(ctx, "1")
			return err
		},
		"PutPhoto": func() error {
			_, err := c.PutPhoto(ctx, strings.NewReader("img"), "a.png", "", "", nil)
			return err
		},
		"ExtendAccessToken": func() error {
			_, err := c.ExtendAccessToken(ctx, testAppID, testSecret)
			return err
		},
	}
	for name, call := range calls {
		if err := call(); !errors.Is(err, graph.ErrAccessTokenRequired) {
			t.Errorf("%s: expected ErrAccessTokenRequired, got %v", name, err)
		}
	}

	if len(srv.Posts()) != 0 || len(srv.Deleted()) != 0 {
		t.Error("no request should have reached the server")
	}
}

func TestPutWallPost(t *testing.T) {
	t.Parallel()
	srv, c := setupGraph(t)

	res, err := c.PutWallPost(context.Background(), "Hello, world", &graph.Attachment{
		Name: "Link name",
		Link: "http://www.example.com/",
	}, "")
	if err != nil {
		t.Fatalf("PutWallPost failed: %v", err)
	}
	if res.String("id") == "" {
		t.Error("expected post id")
	}

	posts := srv.Posts()
	if len(posts) != 1 {
		t.Fatalf("expected 1 post, got %d", len(posts))
	}
	post := posts[0]
	if post.Parent != "1001" || post.Connection != "feed" {
		t.Errorf("post target = %s/%s", post.Parent, post.Connection)
	}
	if post.Form.Get("message") != "Hello, world" {
		t.Errorf("message = %s", post.Form.Get("message"))
	}
	if post.Form.Get("name") != "Link name" || post.Form.Get("link") != "http://www.example.com/" {
		t.Errorf("attachment = %v", post.Form)
	}
	if post.Form.Has("caption") {
		t.Error("empty attachment fields should be left out")
	}
	if post.Form.Get("access_token") != c.AccessToken() {
		t.Error("access token should be sent in the body")
	}
}

func TestPutCommentAndLike(t *testing.T) {
	t.Parallel()
	srv, c := setupGraph(t)
	ctx := context.Background()

	if _, err := c.PutComment(ctx, "post-1", "First!"); err != nil {
		t.Fatalf("PutComment failed: %v", err)
	}
	if _, err := c.PutLike(ctx, "post-1"); err != nil {
		t.Fatalf("PutLike failed: %v", err)
	}

	posts := srv.Posts()
	if len(posts) != 2 {
		t.Fatalf("expected 2 posts, got %d", len(posts))
	}
	if posts[0].Connection != "comments" || posts[0].Form.Get("message") != "First!" {
		t.Errorf("comment = %+v", posts[0])
	}
	if posts[1].Connection != "likes" || posts[1].Parent != "post-1" {
		t.Errorf("like = %+v", posts[1])
	}
}

func TestDeleteObjectAndRequest(t *testing.T) {
	t.Parallel()
	srv, c := setupGraph(t)
	ctx := context.Background()

	if _, err := c.DeleteObject(ctx, "post-1"); err != nil {
		t.Fatalf("DeleteObject failed: %v", err)
	}
	if _, err := c.DeleteRequest(ctx, "1001", "req-9"); err != nil {
		t.Fatalf("DeleteRequest failed: %v", err)
	}

	want := []string{"post-1", "req-9_1001"}
	if diff := cmp.Diff(want, srv.Deleted()); diff != "" {
		t.Errorf("deleted mismatch (-want +got):\n%s", diff)
	}
}

func TestPutPhoto(t *testing.T) {
	t.Parallel()
	srv, c := setupGraph(t)

	image := bytes.Repeat([]byte{0xff}, 1024)
	_, err := c.PutPhoto(context.Background(), bytes.NewReader(image), "cat.jpg", "my cat", "", nil)
	if err != nil {
		t.Fatalf("PutPhoto failed: %v", err)
	}

	posts := srv.Posts()
	if len(posts) != 1 {
		t.Fatalf("expected 1 upload, got %d", len(posts))
	}
	if posts[0].FileSize != len(image) {
		t.Errorf("FileSize = %d, want %d", posts[0].FileSize, len(image))
	}
	if posts[0].Form.Get("message") != "my cat" {
		t.Errorf("message = %s", posts[0].Form.Get("message"))
	}
	if posts[0].Parent != "1001" {
		t.Errorf("Parent = %s, want 1001", posts[0].Parent)
	}
}

func TestGetAppAccessToken(t *testing.T) {
	t.Parallel()
	srv, _ := setupGraph(t)
	c := graph.New(graph.WithEndpoint(srv.Endpoint()))

	token, err := c.GetAppAccessToken(context.Background(), testAppID, testSecret)
	if err != nil {
		t.Fatalf("GetAppAccessToken failed: %v", err)
	}
	if token != testAppID+"|app-token" {
		t.Errorf("token = %s", token)
	}

	// wrong secret
	_, err = c.GetAppAccessToken(context.Background(), testAppID, "nope")
	apiErr := expectAPIError(t, err)
	if apiErr.Message != "Error validating client secret." {
		t.Errorf("Message = %s", apiErr.Message)
	}
}

func TestGetAccessTokenFromCode(t *testing.T) {
	t.Parallel()
	srv, _ := setupGraph(t)
	c := graph.New(graph.WithEndpoint(srv.Endpoint()))
	ctx := context.Background()

	want := srv.AddCode("abc", "1001")
	token, err := c.GetAccessTokenFromCode(ctx, "abc", "", testAppID, testSecret)
	if err != nil {
		t.Fatalf("GetAccessTokenFromCode failed: %v", err)
	}
	if token.Token != want {
		t.Errorf("Token = %s, want %s", token.Token, want)
	}
	if token.TokenType != "bearer" {
		t.Errorf("TokenType = %s", token.TokenType)
	}
	if token.ExpiresIn != graphtest.LongLivedExpiry*time.Second {
		t.Errorf("ExpiresIn = %v", token.ExpiresIn)
	}

	// codes are single use
	_, err = c.GetAccessTokenFromCode(ctx, "abc", "", testAppID, testSecret)
	apiErr := expectAPIError(t, err)
	if apiErr.Message != "Code has expired" || apiErr.Type != "OAuthException" {
		t.Errorf("unexpected error: %+v", apiErr)
	}
}

func TestExtendAccessToken(t *testing.T) {
	t.Parallel()
	_, c := setupGraph(t)

	token, err := c.ExtendAccessToken(context.Background(), testAppID, testSecret)
	if err != nil {
		t.Fatalf("ExtendAccessToken failed: %v", err)
	}
	if !strings.HasPrefix(token.Token, "long-1001-") {
		t.Errorf("Token = %s", token.Token)
	}
}

func TestResponse_QueryString(t *testing.T) {
	t.Parallel()
	ts := serve(t, http.StatusOK, "text/plain; charset=UTF-8", "access_token=abc%7Cdef&expires=5183999")

	res, err := graph.New(graph.WithEndpoint(ts.URL)).Request(context.Background(), "oauth/access_token", graph.RequestOptions{})
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	want := graph.Response{"access_token": "abc|def", "expires": "5183999"}
	if diff := cmp.Diff(want, res); diff != "" {
		t.Errorf("response mismatch (-want +got):\n%s", diff)
	}
}

func TestResponse_UnknownText(t *testing.T) {
	t.Parallel()
	ts := serve(t, http.StatusInternalServerError, "text/html", "<html>oops</html>")

	_, err := graph.New(graph.WithEndpoint(ts.URL)).Request(context.Background(), "x", graph.RequestOptions{})
	apiErr := expectAPIError(t, err)
	if apiErr.Message != "Maintype was not text, image, or querystring" {
		t.Errorf("Message = %s", apiErr.Message)
	}
	if apiErr.Data != "<html>oops</html>" {
		t.Errorf("Data = %v", apiErr.Data)
	}
}

func TestResponse_JavascriptContentType(t *testing.T) {
	t.Parallel()
	ts := serve(t, http.StatusOK, "text/javascript; charset=UTF-8", `{"id":"5"}`)

	res, err := graph.New(graph.WithEndpoint(ts.URL)).GetObject(context.Background(), "5", nil)
	if err != nil {
		t.Fatalf("GetObject failed: %v", err)
	}
	if res.String("id") != "5" {
		t.Errorf("id = %s", res.String("id"))
	}
}

func TestResponse_NonObjectJSON(t *testing.T) {
	t.Parallel()
	ts := serve(t, http.StatusOK, "application/json", `true`)

	res, err := graph.New(graph.WithEndpoint(ts.URL)).DeleteObject(context.Background(), "5")
	if !errors.Is(err, graph.ErrAccessTokenRequired) {
		t.Fatalf("expected ErrAccessTokenRequired, got %v", err)
	}

	res, err = graph.New(graph.WithEndpoint(ts.URL), graph.WithAccessToken("t")).DeleteObject(context.Background(), "5")
	if err != nil {
		t.Fatalf("DeleteObject failed: %v", err)
	}
	if res["data"] != true {
		t.Errorf("data = %v", res["data"])
	}
}

func TestResponse_BadJSON(t *testing.T) {
	t.Parallel()
	ts := serve(t, http.StatusOK, "application/json", `{"id":`)

	_, err := graph.New(graph.WithEndpoint(ts.URL)).GetObject(context.Background(), "5", nil)
	if !errors.Is(err, graph.ErrResponse) {
		t.Errorf("expected ErrResponse, got %v", err)
	}
}

func TestResponse_FalsyErrorIgnored(t *testing.T) {
	t.Parallel()
	ts := serve(t, http.StatusOK, "application/json", `{"id":"5","error":null}`)

	if _, err := graph.New(graph.WithEndpoint(ts.URL)).GetObject(context.Background(), "5", nil); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRequest_SendsArgsAndToken(t *testing.T) {
	t.Parallel()

	var got url.Values
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{}`))
	}))
	defer ts.Close()

	c := graph.New(graph.WithEndpoint(ts.URL), graph.WithAccessToken("tok"))
	if _, err := c.GetObject(context.Background(), "me", url.Values{"fields": {"id,name"}}); err != nil {
		t.Fatalf("GetObject failed: %v", err)
	}
	if got.Get("fields") != "id,name" || got.Get("access_token") != "tok" {
		t.Errorf("query = %v", got)
	}
}

func TestRequest_Timeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer ts.Close()
	defer close(release)

	c := graph.New(graph.WithEndpoint(ts.URL), graph.WithTimeout(50*time.Millisecond))
	_, err := c.GetObject(context.Background(), "slow", nil)
	if !errors.Is(err, graph.ErrRequest) {
		t.Errorf("expected ErrRequest, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected DeadlineExceeded, got %v", err)
	}
}

func TestRequest_Cancelled(t *testing.T) {
	t.Parallel()
	ts := serve(t, http.StatusOK, "application/json", `{}`)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := graph.New(graph.WithEndpoint(ts.URL)).GetObject(ctx, "me", nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
