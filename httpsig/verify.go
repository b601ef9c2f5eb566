/*
Copyright 2026 Dima Krasner

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/


package httpsig

import (
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/dimkr/fedcore/data"
)

// Signature is a parsed signature that still needs to be verified using the sender's key.
type Signature struct {
	KeyID string

	s         string
	signature []byte
}

const (
	minKeyBits = 2048
	maxKeyBits = 8192
)

var (
	ErrWrongHost = errors.New("wrong host")
	ErrExpired   = errors.New("date is too old")
	ErrFuture    = errors.New("date is in the future")
	ErrDigest    = errors.New("digest mismatch")
)

var signatureAttrRegex = regexp.MustCompile(`\b([^"=,]+)="([^"]+)"`)

// Extract parses the signature of a request to domain, checks its freshness and the body
// digest, and rebuilds the signed string. body is nil for requests without a body.
func Extract(r *http.Request, body []byte, domain string, now time.Time, maxAge time.Duration) (*Signature, error) {
	host := r.Header.Get("Host")
	if host == "" {
		host = r.Host
		r.Header.Set("Host", host)
	}
	if host == "" {
		return nil, fmt.Errorf("%w: host", ErrMissingField)
	} else if host != domain {
		return nil, fmt.Errorf("%w: %s", ErrWrongHost, host)
	}

	date := r.Header.Get("Date")
	if date == "" {
		return nil, fmt.Errorf("%w: date", ErrMissingField)
	}

	t, err := time.Parse(http.TimeFormat, date)
	if err != nil {
		return nil, fmt.Errorf("invalid date: %w", err)
	}

	if now.Sub(t) > maxAge {
		return nil, ErrExpired
	} else if t.Sub(now) > maxAge {
		return nil, ErrFuture
	}

	values := r.Header.Values("Signature")
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: signature", ErrMissingField)
	} else if len(values) > 1 {
		return nil, errors.New("more than one signature")
	}

	attrs := map[string]string{}
	for _, m := range signatureAttrRegex.FindAllStringSubmatch(values[0], -1) {
		name := strings.TrimSpace(m[1])
		if _, dup := attrs[name]; dup {
			return nil, errors.New("duplicate attribute: " + name)
		}
		switch name {
		case "keyId", "headers", "signature", "algorithm":
			attrs[name] = m[2]
		default:
			return nil, errors.New("unsupported attribute: " + name)
		}
	}

	for _, name := range []string{"keyId", "headers", "signature"} {
		if attrs[name] == "" {
			return nil, fmt.Errorf("%w: %s", ErrMissingField, name)
		}
	}

	rawSignature, err := base64.StdEncoding.DecodeString(attrs["signature"])
	if err != nil {
		return nil, fmt.Errorf("failed to decode signature: %w", err)
	}

	headers := data.OrderedMap[string, struct{}]{}
	for _, h := range strings.Fields(strings.ToLower(attrs["headers"])) {
		if !headers.Store(h, struct{}{}) {
			return nil, errors.New("duplicate header: " + h)
		}
	}

	for _, h := range []string{"(request-target)", "host", "date"} {
		if !headers.Contains(h) {
			return nil, errors.New(h + " is not signed")
		}
	}

	if body != nil {
		if !headers.Contains("digest") {
			return nil, errors.New("digest is not signed")
		}

		if r.Header.Get("Digest") != digest(body) {
			return nil, ErrDigest
		}
	}

	s, err := buildSignatureString(r, headers.Keys())
	if err != nil {
		return nil, err
	}

	return &Signature{
		KeyID:     attrs["keyId"],
		s:         s,
		signature: rawSignature,
	}, nil
}

// Verify verifies a signature using an RSA public key.
func (s *Signature) Verify(key any) error {
	rsaKey, ok := key.(*rsa.PublicKey)
	if !ok {
		return fmt.Errorf("%w: %T", ErrInvalidKey, key)
	}

	if bits := rsaKey.N.BitLen(); bits < minKeyBits || bits > maxKeyBits {
		return fmt.Errorf("%w: %d bits", ErrInvalidKey, bits)
	}

	hash := sha256.Sum256([]byte(s.s))
	return rsa.VerifyPKCS1v15(rsaKey, crypto.SHA256, hash[:], s.signature)
}
