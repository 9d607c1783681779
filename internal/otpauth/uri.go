// Copyright (c) 2026 Tessera Team
// Tessera - two-factor authentication code manager
// This source code is licensed under the MIT license found in the LICENSE file.

// package otpauth parses and builds the otpauth:// URI representation of an
// account, the de facto QR-code payload format for TOTP provisioning.
package otpauth

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/tessera-auth/tessera/internal/model"
	"github.com/tessera-auth/tessera/internal/otp"
)

// scheme prefix accepted by Parse. HOTP-type URIs are deliberately not
// parsed: Tessera only emits and consumes TOTP.
const totpPrefix = "otpauth://totp/"

// ParseError reports a malformed otpauth URI or a missing mandatory field.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string { return "otpauth: " + e.Reason }

// NewID returns a fresh unique account id. The codec never trusts an id
// embedded in a URI since none exists in the standard format.
func NewID() string { return uuid.NewString() }

// Parse decodes an otpauth://totp/ URI into an Account with a freshly
// assigned id. The secret parameter is mandatory; digits and period fall
// back silently to their defaults on missing or unparsable values, matching
// common QR-producer leniency.
func Parse(raw string) (model.Account, error) {
	var a model.Account
	if !strings.HasPrefix(raw, totpPrefix) {
		return a, &ParseError{Reason: "not an otpauth://totp/ URI"}
	}
	u, err := url.Parse(raw)
	if err != nil {
		return a, &ParseError{Reason: fmt.Sprintf("unparsable URI: %v", err)}
	}

	q := u.Query()
	secret := q.Get("secret")
	if secret == "" {
		return a, &ParseError{Reason: "missing secret"}
	}

	// The label is the URL-decoded path component after the prefix. When an
	// issuer parameter is present and the label carries the conventional
	// "issuer:" prefix, the account name is the remainder.
	label := strings.TrimPrefix(u.Path, "/")
	issuer := q.Get("issuer")
	name := label
	if issuer != "" && strings.HasPrefix(label, issuer+":") {
		name = strings.TrimPrefix(label, issuer+":")
	}

	a = model.Account{
		ID:          NewID(),
		Issuer:      issuer,
		AccountName: name,
		Secret:      otp.NormalizeSecret(secret),
		Digits:      intParam(q.Get("digits"), model.DefaultDigits),
		Period:      intParam(q.Get("period"), model.DefaultPeriod),
		Algorithm:   model.DefaultAlgorithm,
	}
	// Unrecognized algorithm values are preserved verbatim; the generator
	// resolves anything it does not know to SHA1.
	if alg := q.Get("algorithm"); alg != "" {
		a.Algorithm = alg
	}
	return a, nil
}

// intParam parses a decimal query parameter, silently falling back to def on
// absence or garbage.
func intParam(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

// Build renders the account as an otpauth://totp/ URI. All parameters are
// emitted even when equal to their defaults, for maximal compatibility with
// strict consumers. Reserved characters in the label and parameters are
// percent-encoded so Parse(Build(a)) round-trips every field except the id.
func Build(a model.Account) string {
	u := url.URL{
		Scheme: "otpauth",
		Host:   "totp",
		Path:   "/" + a.Label(),
	}
	q := url.Values{}
	q.Set("secret", a.Secret)
	q.Set("issuer", a.Issuer)
	q.Set("digits", strconv.Itoa(a.Digits))
	q.Set("period", strconv.Itoa(a.Period))
	q.Set("algorithm", a.Algorithm)
	u.RawQuery = q.Encode()
	return u.String()
}
