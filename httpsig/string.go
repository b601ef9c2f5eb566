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
	"errors"
	"net/http"
	"net/textproto"
	"slices"
	"strings"
)

// buildSignatureString builds the string covered by a signature: one "name: value" line
// per signed header, in order.
func buildSignatureString(r *http.Request, headers []string) (string, error) {
	lines := make([]string, 0, len(headers))

	for _, h := range headers {
		if h == "(request-target)" {
			lines = append(lines, "(request-target): "+strings.ToLower(r.Method)+" "+r.URL.RequestURI())
			continue
		}

		if h == "" || h[0] == '(' {
			return "", errors.New("unsupported header: " + h)
		}

		values := slices.Clone(r.Header.Values(textproto.CanonicalMIMEHeaderKey(h)))
		if len(values) == 0 {
			return "", errors.New("unspecified header: " + h)
		}

		for i, v := range values {
			values[i] = strings.TrimSpace(v)
		}

		lines = append(lines, strings.ToLower(h)+": "+strings.Join(values, ", "))
	}

	return strings.Join(lines, "\n"), nil
}
