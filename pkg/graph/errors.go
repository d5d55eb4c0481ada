package graph

import (
	"encoding/json"
	"fmt"
)

// APIError is a failure reported by the Graph API itself, as opposed to a
// transport failure (see [ErrRequest]).
type APIError struct {
	// Code is the numeric error_code, or zero when the response had none.
	Code int
	// Type is the error type, e.g. "OAuthException", when reported.
	Type    string
	Message string
	// Data is the decoded response body, or the raw body text.
	Data any
}

func (e *APIError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("graph api error (%s): %s", e.Type, e.Message)
	}
	return fmt.Sprintf("graph api error: %s", e.Message)
}

func newAPIError(data any) *APIError {
	e := &APIError{Data: data}
	body, _ := data.(map[string]any)
	e.Code = errorCode(body)
	e.Type = errorType(body)
	e.Message = errorMessage(body, data)
	return e
}

// messageLookups are tried in order; the first field present wins.
var messageLookups = [][]string{
	{"error_description"}, // OAuth 2.0 draft 10
	{"error", "message"},  // OAuth 2.0 draft 00
	{"error_msg"},         // REST server style
}

func errorMessage(body map[string]any, raw any) string {
	for _, path := range messageLookups {
		if v, ok := lookup(body, path...); ok {
			return stringify(v)
		}
	}
	return stringify(raw)
}

func errorCode(body map[string]any) int {
	for _, path := range [][]string{{"error_code"}, {"error", "code"}} {
		if v, ok := lookup(body, path...); ok {
			if n, ok := v.(float64); ok {
				return int(n)
			}
		}
	}
	return 0
}

func errorType(body map[string]any) string {
	if v, ok := lookup(body, "error", "type"); ok {
		return stringify(v)
	}
	// OAuth 2.0 style bodies carry the type as a bare string
	if v, ok := lookup(body, "error"); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func lookup(body map[string]any, path ...string) (any, bool) {
	var cur any = body
	for _, key := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = m[key]; !ok {
			return nil, false
		}
	}
	return cur, true
}

func stringify(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(b)
	}
}
