// Copyright (c) 2026 Tessera Team
// Tessera - two-factor authentication code manager
// This source code is licensed under the MIT license found in the LICENSE file.
package model

// Envelope is the portable backup container wrapping a full account
// collection for export/import. It is produced fresh on every backup
// request and never partially updated.
type Envelope struct {
	// Version identifies the envelope format. "1.0" is the plaintext
	// Base64 form; "2.0" is the password-sealed form.
	Version string `json:"version"`

	// Timestamp is the ISO-8601 creation time of the backup.
	Timestamp string `json:"timestamp"`

	// Accounts is the ordered account collection. Only present in v1
	// envelopes; v2 carries the same payload sealed inside Data.
	Accounts []Account `json:"accounts,omitempty"`

	// Salt, Nonce and Data carry the key-derivation salt, the AES-GCM
	// nonce and the sealed payload of a v2 envelope, all Base64-encoded.
	Salt  string `json:"salt,omitempty"`
	Nonce string `json:"nonce,omitempty"`
	Data  string `json:"data,omitempty"`
}
