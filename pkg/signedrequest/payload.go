package signedrequest

import (
	"encoding/json"
	"maps"
	"time"
)

// Payload is the decoded body of a verified signed request. The fields the
// JavaScript SDK is known to set have typed accessors; everything else is
// reachable through Get and Fields.
type Payload struct {
	fields map[string]any
}

func (p *Payload) Algorithm() string  { return p.stringField("algorithm") }
func (p *Payload) UserID() string     { return p.stringField("user_id") }
func (p *Payload) Code() string       { return p.stringField("code") }
func (p *Payload) OAuthToken() string { return p.stringField("oauth_token") }
func (p *Payload) IssuedAt() time.Time {
	return p.timeField("issued_at")
}
func (p *Payload) Expires() time.Time {
	return p.timeField("expires")
}

// Get returns the raw decoded value for key.
func (p *Payload) Get(key string) (any, bool) {
	v, ok := p.fields[key]
	return v, ok
}

// Fields returns a copy of the full decoded mapping. Numbers are kept as
// json.Number.
func (p *Payload) Fields() map[string]any {
	return maps.Clone(p.fields)
}

// user_id is a string in current payloads but was numeric in older ones.
func (p *Payload) stringField(key string) string {
	switch v := p.fields[key].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	default:
		return ""
	}
}

func (p *Payload) timeField(key string) time.Time {
	switch v := p.fields[key].(type) {
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return time.Unix(n, 0)
		}
		if f, err := v.Float64(); err == nil {
			return time.Unix(int64(f), 0)
		}
		return time.Time{}
	default:
		return time.Time{}
	}
}
