// Copyright (c) 2026 Tessera Team
// Tessera - two-factor authentication code manager
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestUriBuildCmd(t *testing.T) {
	setupTestVault(t)
	executeCommand(t, "add", "--issuer", "Example", "--account", "alice", "--secret", "JBSWY3DPEHPK3PXP")

	output := executeCommand(t, "uri", "build", "Example:alice")
	uri := strings.TrimSpace(output)
	if !strings.HasPrefix(uri, "otpauth://totp/") {
		t.Fatalf("unexpected URI: %s", uri)
	}
	for _, frag := range []string{"secret=JBSWY3DPEHPK3PXP", "issuer=Example", "digits=6", "period=30", "algorithm=SHA1"} {
		if !strings.Contains(uri, frag) {
			t.Fatalf("URI missing %q: %s", frag, uri)
		}
	}
}

func TestUriBuildCmd_QRFile(t *testing.T) {
	setupTestVault(t)
	executeCommand(t, "add", "--issuer", "Example", "--account", "alice", "--secret", "JBSWY3DPEHPK3PXP")

	file := filepath.Join(t.TempDir(), "qr.png")
	executeCommand(t, "uri", "build", "Example:alice", "--qr", file)

	data, err := os.ReadFile(file)
	if err != nil {
		t.Fatalf("QR file not written: %v", err)
	}
	// PNG signature.
	if len(data) < 8 || data[0] != 0x89 || string(data[1:4]) != "PNG" {
		t.Fatalf("QR file is not a PNG")
	}
}

func TestUriBuildCmd_UnknownAccount(t *testing.T) {
	setupTestVault(t)

	if _, err := executeCommandErr(t, "uri", "build", "nope"); err == nil {
		t.Fatalf("expected error for unknown account")
	}
}

// uri parse inspects without enrolling.
func TestUriParseCmd(t *testing.T) {
	setupTestVault(t)

	uri := "otpauth://totp/Example:alice@example.com?secret=JBSWY3DPEHPK3PXP&issuer=Example&digits=8&period=60&algorithm=SHA256"
	output := executeCommand(t, "uri", "parse", uri)
	for _, frag := range []string{"issuer:    Example", "account:   alice@example.com", "digits:    8", "period:    60s", "algorithm: SHA256"} {
		if !strings.Contains(output, frag) {
			t.Fatalf("parse output missing %q:\n%s", frag, output)
		}
	}

	// Nothing was stored.
	list := executeCommand(t, "list")
	if !strings.Contains(list, "No accounts stored.") {
		t.Fatalf("uri parse mutated the store: %s", list)
	}
}

func TestUriParseCmd_Invalid(t *testing.T) {
	setupTestVault(t)

	if _, err := executeCommandErr(t, "uri", "parse", "otpauth://totp/x?issuer=NoSecret"); err == nil {
		t.Fatalf("expected error for URI without secret")
	}
}
