// Copyright (c) 2026 Tessera Team
// Tessera - two-factor authentication code manager
// This source code is licensed under the MIT license found in the LICENSE file.

// package backup encodes and decodes the portable envelope wrapping a full
// account collection. Two formats exist: the legacy v1 envelope is plain
// Base64 over JSON and offers no confidentiality; v2 seals the payload with
// AES-256-GCM under an argon2id-derived key. Encode picks the format from
// the password: empty stays v1-compatible, non-empty produces v2.
package backup

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/crypto/argon2"

	"github.com/tessera-auth/tessera/internal/model"
	"github.com/tessera-auth/tessera/internal/security"
)

// Envelope format versions.
const (
	VersionPlain  = "1.0"
	VersionSealed = "2.0"
)

// argon2id parameters for the v2 key derivation.
const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	keyLen       = 32
	saltLen      = 16
	nonceLen     = 12
)

// BackupError reports a failure during envelope encode or decode, naming
// the stage that failed.
type BackupError struct {
	Stage string
	Err   error
}

func (e *BackupError) Error() string { return fmt.Sprintf("backup %s failed: %v", e.Stage, e.Err) }
func (e *BackupError) Unwrap() error { return e.Err }

// Encode serializes the account collection into an envelope string. With an
// empty password the result is the v1 plaintext form: Base64 of the UTF-8
// JSON `{version, timestamp, accounts}`. With a non-empty password the
// payload is sealed into a v2 envelope instead.
func Encode(accounts []model.Account, password security.Secret) (string, error) {
	if accounts == nil {
		accounts = []model.Account{}
	}
	ts := time.Now().UTC().Format(time.RFC3339)

	if len(password) == 0 {
		env := model.Envelope{Version: VersionPlain, Timestamp: ts, Accounts: accounts}
		data, err := json.Marshal(env)
		if err != nil {
			return "", &BackupError{Stage: "encode", Err: err}
		}
		return base64.StdEncoding.EncodeToString(data), nil
	}

	payload, err := json.Marshal(accounts)
	if err != nil {
		return "", &BackupError{Stage: "encode", Err: err}
	}

	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", &BackupError{Stage: "encode", Err: err}
	}
	nonce := make([]byte, nonceLen)
	if _, err := rand.Read(nonce); err != nil {
		return "", &BackupError{Stage: "encode", Err: err}
	}

	sealed, err := seal(payload, password.Bytes(), salt, nonce)
	if err != nil {
		return "", &BackupError{Stage: "encode", Err: err}
	}

	env := model.Envelope{
		Version:   VersionSealed,
		Timestamp: ts,
		Salt:      base64.StdEncoding.EncodeToString(salt),
		Nonce:     base64.StdEncoding.EncodeToString(nonce),
		Data:      base64.StdEncoding.EncodeToString(sealed),
	}
	data, err := json.Marshal(env)
	if err != nil {
		return "", &BackupError{Stage: "encode", Err: err}
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// Decode reverses Encode. Malformed Base64 or JSON surfaces a BackupError
// naming the stage; a single malformed account entry fails the whole decode,
// since a partial restore of secret material is worse than an all-or-nothing
// error. The caller appends the result to the store; Decode itself never
// mutates anything.
func Decode(envelope string, password security.Secret) ([]model.Account, error) {
	data, err := base64.StdEncoding.DecodeString(envelope)
	if err != nil {
		return nil, &BackupError{Stage: "base64 decode", Err: err}
	}
	var env model.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, &BackupError{Stage: "json decode", Err: err}
	}

	switch env.Version {
	case VersionPlain, "":
		// Legacy envelopes may predate the version field.
		raw, err := json.Marshal(env.Accounts)
		if err != nil {
			return nil, &BackupError{Stage: "json decode", Err: err}
		}
		accounts, err := model.DecodeAccounts(raw)
		if err != nil {
			return nil, &BackupError{Stage: "account decode", Err: err}
		}
		return accounts, nil

	case VersionSealed:
		if len(password) == 0 {
			return nil, &BackupError{Stage: "decrypt", Err: fmt.Errorf("envelope is password-protected")}
		}
		salt, err := base64.StdEncoding.DecodeString(env.Salt)
		if err != nil {
			return nil, &BackupError{Stage: "decrypt", Err: fmt.Errorf("malformed salt: %w", err)}
		}
		nonce, err := base64.StdEncoding.DecodeString(env.Nonce)
		if err != nil {
			return nil, &BackupError{Stage: "decrypt", Err: fmt.Errorf("malformed nonce: %w", err)}
		}
		sealed, err := base64.StdEncoding.DecodeString(env.Data)
		if err != nil {
			return nil, &BackupError{Stage: "decrypt", Err: fmt.Errorf("malformed payload: %w", err)}
		}
		payload, err := open(sealed, password.Bytes(), salt, nonce)
		if err != nil {
			return nil, &BackupError{Stage: "decrypt", Err: fmt.Errorf("wrong password or corrupt envelope: %w", err)}
		}
		accounts, err := model.DecodeAccounts(payload)
		if err != nil {
			return nil, &BackupError{Stage: "account decode", Err: err}
		}
		return accounts, nil

	default:
		return nil, &BackupError{Stage: "json decode", Err: fmt.Errorf("unsupported envelope version %q", env.Version)}
	}
}

// seal encrypts plaintext with AES-256-GCM under an argon2id-derived key.
func seal(plaintext, password, salt, nonce []byte) ([]byte, error) {
	aead, err := newAEAD(password, salt)
	if err != nil {
		return nil, err
	}
	return aead.Seal(nil, nonce, plaintext, nil), nil
}

// open reverses seal. Authentication failure means a wrong password or a
// tampered envelope.
func open(ciphertext, password, salt, nonce []byte) ([]byte, error) {
	aead, err := newAEAD(password, salt)
	if err != nil {
		return nil, err
	}
	return aead.Open(nil, nonce, ciphertext, nil)
}

func newAEAD(password, salt []byte) (cipher.AEAD, error) {
	key := argon2.IDKey(password, salt, argonTime, argonMemory, argonThreads, keyLen)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
