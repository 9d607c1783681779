// Copyright (c) 2026 Tessera Team
// Tessera - two-factor authentication code manager
// This source code is licensed under the MIT license found in the LICENSE file.

// package otp implements RFC 4226 (HOTP) and RFC 6238 (TOTP) code
// generation. Generation is a pure function of the account, the wall-clock
// time and nothing else; failures surface as typed errors and never as a
// fabricated placeholder code.
package otp

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base32"
	"encoding/binary"
	"fmt"
	"hash"
	"strings"
	"time"

	"github.com/tessera-auth/tessera/internal/model"
)

// b32 is the RFC 4648 alphabet without padding. Secrets are stored without
// padding; DecodeSecret additionally tolerates inputs that kept it.
var b32 = base32.StdEncoding.WithPadding(base32.NoPadding)

// DecodeError reports a malformed Base32 secret.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string { return fmt.Sprintf("invalid secret: %v", e.Err) }
func (e *DecodeError) Unwrap() error { return e.Err }

// NormalizeSecret prepares a manually entered secret for storage: spaces,
// hyphens and underscores are stripped and the result is upper-cased.
func NormalizeSecret(raw string) string {
	r := strings.NewReplacer(" ", "", "-", "", "_", "")
	return strings.ToUpper(r.Replace(raw))
}

// DecodeSecret decodes a stored Base32 secret into raw key bytes. Stripped
// padding is the canonical form but trailing '=' from lenient producers is
// accepted.
func DecodeSecret(secret string) ([]byte, error) {
	s := strings.TrimRight(strings.ToUpper(secret), "=")
	key, err := b32.DecodeString(s)
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	return key, nil
}

// hashForAlgorithm maps an account's algorithm name to an HMAC hash
// constructor. Unrecognized names (and the empty string) resolve to SHA1,
// matching what authenticator apps do with unknown values.
func hashForAlgorithm(name string) func() hash.Hash {
	switch strings.ToUpper(name) {
	case "SHA256":
		return sha256.New
	case "SHA512":
		return sha512.New
	default:
		return sha1.New
	}
}

// Generate derives the code for the given account at nowMillis (Unix
// milliseconds). The counter is the number of whole period-second windows
// elapsed since the epoch, using floor division.
func Generate(a model.Account, nowMillis int64) (string, error) {
	key, err := DecodeSecret(a.Secret)
	if err != nil {
		return "", err
	}
	period := a.Period
	if period <= 0 {
		period = model.DefaultPeriod
	}
	digits := a.Digits
	if digits <= 0 {
		digits = model.DefaultDigits
	}
	counter := uint64(nowMillis/1000) / uint64(period)
	return hotp(key, counter, digits, hashForAlgorithm(a.Algorithm)), nil
}

// GenerateTime is a convenience wrapper over Generate for callers holding a
// time.Time.
func GenerateTime(a model.Account, t time.Time) (string, error) {
	return Generate(a, t.UnixMilli())
}

// hotp computes the RFC 4226 truncated code for a single counter value.
func hotp(key []byte, counter uint64, digits int, h func() hash.Hash) string {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, counter)

	mac := hmac.New(h, key)
	mac.Write(buf)
	sum := mac.Sum(nil)

	// Dynamic truncation: low nibble of the last byte selects a 4-byte
	// window; the top bit is masked to get a 31-bit unsigned integer.
	offset := sum[len(sum)-1] & 0x0F
	bin := binary.BigEndian.Uint32(sum[offset:offset+4]) & 0x7FFFFFFF

	mod := uint64(1)
	for i := 0; i < digits; i++ {
		mod *= 10
	}
	return fmt.Sprintf("%0*d", digits, uint64(bin)%mod)
}

// Validate reports whether code matches the account at time t, accepting a
// clock skew of +/- skew windows. Comparison is constant-time per candidate.
func Validate(a model.Account, code string, t time.Time, skew int) (bool, error) {
	period := a.Period
	if period <= 0 {
		period = model.DefaultPeriod
	}
	for i := -skew; i <= skew; i++ {
		at := t.Add(time.Duration(i*period) * time.Second)
		want, err := GenerateTime(a, at)
		if err != nil {
			return false, err
		}
		if subtle.ConstantTimeCompare([]byte(want), []byte(code)) == 1 {
			return true, nil
		}
	}
	return false, nil
}

// NewSecret generates a random seed of n bytes and returns it Base32-encoded
// without padding. RFC 4226 recommends at least 20 bytes for HMAC-SHA1;
// shorter requests are bumped to that.
func NewSecret(n int) (string, error) {
	if n < 20 {
		n = 20
	}
	raw := make([]byte, n)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate secret: %w", err)
	}
	return b32.EncodeToString(raw), nil
}
