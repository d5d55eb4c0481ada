// Package session stores the signed-in user of the example application in an
// encrypted cookie.
//
// Signed request codes can only be exchanged once, so after the first
// successful exchange the resulting user and access token are sealed with
// NaCl secretbox and kept client side until they expire.
package session

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"golang.org/x/crypto/nacl/secretbox"
)

const (
	CookieName = "fbgraph_session"
	KeySize    = 32
	nonceSize  = 24
)

var (
	ErrKeySize        = errors.New("session key must be 32 bytes")
	ErrSessionInvalid = errors.New("session invalid")
	ErrSessionExpired = errors.New("session expired")
)

type Session struct {
	UID         string    `json:"uid"`
	AccessToken string    `json:"access_token"`
	Expires     time.Time `json:"expires"`
}

type CookieOptions struct {
	Secure   bool
	SameSite http.SameSite
	Path     string
}

func DefaultCookieOptions() CookieOptions {
	return CookieOptions{
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
	}
}

type Codec struct {
	key     [KeySize]byte
	cookies CookieOptions
	now     func() time.Time
}

func NewCodec(
	key []byte,
	cookies CookieOptions,
) (
	*Codec,
	error,
) {
	if len(key) != KeySize {
		return nil, ErrKeySize
	}
	c := &Codec{
		cookies: cookies,
		now:     time.Now,
	}
	copy(c.key[:], key)
	if !cookies.Secure {
		log.Printf("WARNING: session cookies are not marked Secure\n")
	}
	return c, nil
}

// NewKey returns a random key suitable for NewCodec.
func NewKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, err
	}
	return key, nil
}

func (c *Codec) Seal(s Session) (string, error) {
	plaintext, err := json.Marshal(s)
	if err != nil {
		return "", err
	}

	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := secretbox.Seal(nonce[:], plaintext, &nonce, &c.key)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

func (c *Codec) Open(value string) (*Session, error) {
	sealed, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("%w: bad encoding", ErrSessionInvalid)
	}
	if len(sealed) < nonceSize+secretbox.Overhead {
		return nil, fmt.Errorf("%w: too short", ErrSessionInvalid)
	}

	var nonce [nonceSize]byte
	copy(nonce[:], sealed[:nonceSize])
	plaintext, ok := secretbox.Open(nil, sealed[nonceSize:], &nonce, &c.key)
	if !ok {
		return nil, fmt.Errorf("%w: authentication failed", ErrSessionInvalid)
	}

	s := new(Session)
	if err := json.Unmarshal(plaintext, s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSessionInvalid, err)
	}
	if !s.Expires.IsZero() && !c.now().Before(s.Expires) {
		return nil, ErrSessionExpired
	}
	return s, nil
}

// SetCookie seals s into the session cookie. The cookie lives as long as the
// access token it carries.
func (c *Codec) SetCookie(w http.ResponseWriter, s Session) error {
	value, err := c.Seal(s)
	if err != nil {
		return err
	}

	cookie := c.cookie(value)
	if !s.Expires.IsZero() {
		cookie.MaxAge = int(s.Expires.Sub(c.now()).Seconds())
	}
	http.SetCookie(w, cookie)
	return nil
}

// FromRequest returns the session carried by r, or nil if there is none or
// it cannot be opened.
func (c *Codec) FromRequest(r *http.Request) *Session {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}
	s, err := c.Open(cookie.Value)
	if err != nil {
		log.Printf("discarding session cookie: %v\n", err)
		return nil
	}
	return s
}

func (c *Codec) ClearCookie(w http.ResponseWriter) {
	cookie := c.cookie("")
	cookie.MaxAge = -1
	http.SetCookie(w, cookie)
}

func (c *Codec) cookie(value string) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     c.cookies.Path,
		SameSite: c.cookies.SameSite,
		Secure:   c.cookies.Secure,
		HttpOnly: true,
	}
}
