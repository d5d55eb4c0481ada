package graph

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Response is a decoded Graph API response. JSON objects decode directly;
// other JSON values are stored under "data". Image responses carry "data"
// ([]byte), "mime-type" and "url".
type Response map[string]any

// String returns the value at key if it is a string.
func (r Response) String(key string) string {
	s, _ := r[key].(string)
	return s
}

// Data returns the "data" list of a connection response.
func (r Response) Data() []any {
	d, _ := r["data"].([]any)
	return d
}

func parseResponse(res *http.Response) (Response, error) {
	contentType := res.Header.Get("Content-Type")

	var ret Response
	switch {
	case strings.Contains(contentType, "image/"):
		content, err := io.ReadAll(res.Body)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read image: %v", ErrResponse, err)
		}
		ret = Response{
			"data":      content,
			"mime-type": contentType,
			"url":       res.Request.URL.String(),
		}

	case strings.Contains(contentType, "json") || strings.Contains(contentType, "javascript"):
		var decoded any
		if err := json.NewDecoder(res.Body).Decode(&decoded); err != nil {
			return nil, fmt.Errorf("%w: failed to decode json: %v", ErrResponse, err)
		}
		if m, ok := decoded.(map[string]any); ok {
			ret = Response(m)
		} else {
			ret = Response{"data": decoded}
		}

	default:
		text, err := io.ReadAll(res.Body)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read body: %v", ErrResponse, err)
		}
		query, err := url.ParseQuery(string(text))
		if err != nil || !query.Has("access_token") {
			e := newAPIError(string(text))
			e.Message = "Maintype was not text, image, or querystring"
			return nil, e
		}
		ret = Response{"access_token": query.Get("access_token")}
		if query.Has("expires") {
			ret["expires"] = query.Get("expires")
		}
	}

	if truthy(ret["error"]) {
		return nil, newAPIError(map[string]any(ret))
	}
	return ret, nil
}

func truthy(v any) bool {
	switch v := v.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	case float64:
		return v != 0
	case map[string]any:
		return len(v) > 0
	case []any:
		return len(v) > 0
	default:
		return true
	}
}
