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
	"bytes"
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var (
	ErrNoKeyID      = errors.New("empty key ID")
	ErrInvalidKey   = errors.New("invalid key")
	ErrMissingField = errors.New("missing signature field")
)

var (
	getHeaders  = []string{"(request-target)", "host", "date"}
	postHeaders = []string{"(request-target)", "host", "date", "content-type", "digest"}
)

func digest(body []byte) string {
	hash := sha256.Sum256(body)
	return "SHA-256=" + base64.StdEncoding.EncodeToString(hash[:])
}

// Sign adds Date, Host, Digest (for POST requests) and Signature headers to an outgoing
// request. POST requests must have a Content-Type.
func Sign(r *http.Request, key Key, now time.Time) error {
	if key.ID == "" {
		return ErrNoKeyID
	}

	rsaKey, ok := key.PrivateKey.(*rsa.PrivateKey)
	if !ok {
		return fmt.Errorf("%w: %T", ErrInvalidKey, key.PrivateKey)
	}

	headers := getHeaders
	if r.Method == http.MethodPost {
		var body []byte
		if r.Body != nil {
			var err error
			if body, err = io.ReadAll(r.Body); err != nil {
				return fmt.Errorf("failed to read body: %w", err)
			}
			r.Body.Close()
		}

		r.Body = io.NopCloser(bytes.NewReader(body))
		r.Header.Set("Digest", digest(body))
		headers = postHeaders
	}

	r.Header.Set("Date", now.UTC().Format(http.TimeFormat))
	r.Header.Set("Host", r.URL.Host)

	s, err := buildSignatureString(r, headers)
	if err != nil {
		return err
	}

	hash := sha256.Sum256([]byte(s))
	sig, err := rsa.SignPKCS1v15(nil, rsaKey, crypto.SHA256, hash[:])
	if err != nil {
		return fmt.Errorf("failed to sign request: %w", err)
	}

	r.Header.Set(
		"Signature",
		fmt.Sprintf(
			`keyId="%s",algorithm="rsa-sha256",headers="%s",signature="%s"`,
			key.ID,
			strings.Join(headers, " "),
			base64.StdEncoding.EncodeToString(sig),
		),
	)

	return nil
}
