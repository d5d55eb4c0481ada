package signedrequest

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Algorithm is the only signing algorithm accepted in the payload.
const Algorithm = "HMAC-SHA256"

type validateError struct {
	context string
	err     error
}

// Context describes why the signed request was rejected. It is meant for
// logs; callers should only branch on [ErrInvalid].
func (e *validateError) Context() string {
	return e.context
}
func (e *validateError) Error() string {
	return fmt.Sprintf("%v", e.err)
}
func (e *validateError) Unwrap() error {
	return e.err
}

var (
	// ErrInvalid is returned for every rejected signed request: malformed
	// structure, unsupported algorithm and signature mismatch alike.
	ErrInvalid = errors.New("signed request invalid")

	// ErrSecretNotASCII is returned when the shared secret contains bytes
	// outside of 7-bit ASCII.
	ErrSecretNotASCII = errors.New("secret must be ascii")
)

func reject(format string, v ...any) *validateError {
	return &validateError{
		context: fmt.Sprintf(format, v...),
		err:     ErrInvalid,
	}
}

// Parse verifies signedRequest against secret and returns its payload.
//
// Any error other than [ErrSecretNotASCII] satisfies errors.Is(err, ErrInvalid).
func Parse(signedRequest string, secret string) (*Payload, error) {
	key, err := secretKey(secret)
	if err != nil {
		return nil, err
	}

	encSignature, encPayload, err := splitSegments(signedRequest)
	if err != nil {
		return nil, err
	}

	signature, err := decodeSegment(encSignature)
	if err != nil {
		return nil, reject("signature segment malformed: %v", err)
	}
	data, err := decodeSegment(encPayload)
	if err != nil {
		return nil, reject("payload segment malformed: %v", err)
	}

	fields, err := decodePayload(data)
	if err != nil {
		return nil, err
	}

	payload := &Payload{fields: fields}
	if alg := strings.ToUpper(payload.Algorithm()); alg != Algorithm {
		return nil, reject("unsupported algorithm: %q", alg)
	}

	if !hmac.Equal(signature, computeSignature(key, encPayload)) {
		return nil, reject("signature mismatch")
	}

	return payload, nil
}

// Sign encodes payload and signs it with secret, producing a signed request
// in the same format [Parse] accepts. The algorithm field is set when absent.
func Sign(payload map[string]any, secret string) (string, error) {
	key, err := secretKey(secret)
	if err != nil {
		return "", err
	}

	fields := make(map[string]any, len(payload)+1)
	for k, v := range payload {
		fields[k] = v
	}
	if _, ok := fields["algorithm"]; !ok {
		fields["algorithm"] = Algorithm
	}

	data, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("json marshal failure: %v", err)
	}

	encPayload := base64.RawURLEncoding.EncodeToString(data)
	encSignature := base64.RawURLEncoding.EncodeToString(computeSignature(key, encPayload))
	return encSignature + "." + encPayload, nil
}

// decodePayload keeps numbers as json.Number so large user ids survive.
func decodePayload(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	fields := make(map[string]any)
	if err := dec.Decode(&fields); err != nil {
		return nil, reject("payload not a json object: %v", err)
	}
	if fields == nil {
		return nil, reject("payload is null")
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, reject("trailing data after payload")
	}
	return fields, nil
}

func secretKey(secret string) ([]byte, error) {
	for i := 0; i < len(secret); i++ {
		if secret[i] > 0x7f {
			return nil, ErrSecretNotASCII
		}
	}
	return []byte(secret), nil
}

func splitSegments(signedRequest string) (
	signature string,
	payload string,
	err error,
) {
	signature, payload, found := strings.Cut(signedRequest, ".")
	if !found {
		err = reject("signed request expected two parts, found no delimiter")
		return
	}
	return
}

// decodeSegment restores the stripped '=' padding before decoding.
func decodeSegment(segment string) ([]byte, error) {
	if pad := (4 - len(segment)%4) % 4; pad > 0 {
		segment += strings.Repeat("=", pad)
	}
	data, err := base64.URLEncoding.DecodeString(segment)
	if err != nil {
		return nil, fmt.Errorf("invalid base64 encoding: %v", err)
	}
	return data, nil
}

func computeSignature(key []byte, encPayload string) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(encPayload))
	return mac.Sum(nil)
}
