// Copyright (c) 2026 Tessera Team
// Tessera - two-factor authentication code manager
// This source code is licensed under the MIT license found in the LICENSE file.

// package model defines the core data types shared across Tessera.
// An Account is the unit of storage: one TOTP seed plus the parameters
// needed to derive codes from it.
package model

import (
	"encoding/json"
	"fmt"
)

// Defaults for the optional account parameters. These match what the vast
// majority of provisioning QR codes emit (Google Authenticator conventions).
const (
	DefaultDigits    = 6
	DefaultPeriod    = 30
	DefaultAlgorithm = "SHA1"
)

// Account represents a single enrolled service. Accounts are immutable value
// objects once constructed; editing is modeled as remove-then-add so the
// store's change history stays simple.
type Account struct {
	ID          string `json:"id"`
	Issuer      string `json:"issuer"`
	AccountName string `json:"accountName"`
	Secret      string `json:"secret"`
	Digits      int    `json:"digits"`
	Period      int    `json:"period"`
	Algorithm   string `json:"algorithm"`
}

// String returns a human-readable identifier for display and logs.
// The secret is never part of it.
func (a Account) String() string {
	if a.Issuer != "" {
		return fmt.Sprintf("%s (%s)", a.Issuer, a.AccountName)
	}
	return a.AccountName
}

// Label returns the otpauth-style label: "issuer:accountName" when an issuer
// is present, the bare account name otherwise.
func (a Account) Label() string {
	if a.Issuer != "" {
		return a.Issuer + ":" + a.AccountName
	}
	return a.AccountName
}

// ValidationError reports an account field that is out of range at
// construction time.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid account %s: %s", e.Field, e.Reason)
}

// Validate checks the construction-time invariants: digits must be 6, 7 or 8
// and the period must be a positive number of seconds. Secret decodability is
// checked separately at the boundaries (see otp.DecodeSecret) so this package
// stays free of crypto concerns.
func (a Account) Validate() error {
	switch a.Digits {
	case 6, 7, 8:
	default:
		return &ValidationError{Field: "digits", Reason: fmt.Sprintf("must be 6, 7 or 8, got %d", a.Digits)}
	}
	if a.Period <= 0 {
		return &ValidationError{Field: "period", Reason: fmt.Sprintf("must be positive, got %d", a.Period)}
	}
	return nil
}

// ApplyDefaults returns a copy of the account with zero-valued optional
// parameters replaced by the standard defaults.
func (a Account) ApplyDefaults() Account {
	if a.Digits == 0 {
		a.Digits = DefaultDigits
	}
	if a.Period == 0 {
		a.Period = DefaultPeriod
	}
	if a.Algorithm == "" {
		a.Algorithm = DefaultAlgorithm
	}
	return a
}

// DecodeAccounts parses a persisted JSON array of accounts. It is strict:
// the result is either a slice of fully valid accounts or a typed error,
// never a partially populated object silently carrying defaults for
// required fields. Defaults are applied only for absent optional fields
// (digits, period, algorithm) and the result is validated afterwards.
func DecodeAccounts(data []byte) ([]Account, error) {
	var raw []Account
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("malformed account data: %w", err)
	}
	out := make([]Account, 0, len(raw))
	for i, a := range raw {
		if a.ID == "" {
			return nil, &ValidationError{Field: "id", Reason: fmt.Sprintf("missing in entry %d", i)}
		}
		if a.Secret == "" {
			return nil, &ValidationError{Field: "secret", Reason: fmt.Sprintf("missing in entry %d", i)}
		}
		a = a.ApplyDefaults()
		if err := a.Validate(); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		out = append(out, a)
	}
	return out, nil
}

// EncodeAccounts serializes the full ordered collection to JSON. The inverse
// of DecodeAccounts.
func EncodeAccounts(accounts []Account) ([]byte, error) {
	if accounts == nil {
		accounts = []Account{}
	}
	return json.Marshal(accounts)
}
