// Copyright (c) 2026 Tessera Team
// Tessera - two-factor authentication code manager
// This source code is licensed under the MIT license found in the LICENSE file.

// Backup commands. Two surfaces exist: export/import move the portable
// envelope string (the format QR-less hand-offs and other Tessera-compatible
// apps consume), while backup/restore write and read zstd-compressed JSON
// files for local archival.
package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	log "github.com/charmbracelet/log"
	"github.com/klauspost/compress/zstd"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/tessera-auth/tessera/internal/backup"
	"github.com/tessera-auth/tessera/internal/model"
	"github.com/tessera-auth/tessera/internal/security"
	"github.com/tessera-auth/tessera/internal/state"
)

var (
	backupPassword string
	askPassword    bool
)

// readBackupPassword resolves the password for export/import: the --password
// flag wins, --ask-pass prompts on the terminal, otherwise the empty
// password selects the plaintext v1 envelope. A password prompted for once
// is kept in the session mailbox so a later export or import in the same
// process (a TUI-initiated one included) reuses it instead of re-prompting.
func readBackupPassword(confirm bool) (security.Secret, error) {
	if backupPassword != "" {
		return security.FromString(backupPassword), nil
	}
	if !askPassword {
		return nil, nil
	}
	if cached := state.PasswordCache.Get(); cached != nil {
		return security.FromBytes(cached), nil
	}
	fmt.Fprint(os.Stderr, "Password: ")
	pass, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("could not read password: %w", err)
	}
	if confirm {
		fmt.Fprint(os.Stderr, "Confirm password: ")
		again, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return nil, fmt.Errorf("could not read password: %w", err)
		}
		if string(pass) != string(again) {
			return nil, fmt.Errorf("passwords do not match")
		}
		for i := range again {
			again[i] = 0
		}
	}
	state.PasswordCache.Set(pass)
	secret := security.FromBytes(pass)
	for i := range pass {
		pass[i] = 0
	}
	return secret, nil
}

// exportCmd emits the portable envelope string for the full collection.
var exportCmd = &cobra.Command{
	Use:   "export [output-file]",
	Short: "Export all accounts as a portable envelope string",
	Long: `Exports the full account collection as a single Base64 envelope string.

Without a password the envelope is a plaintext encoding: anyone holding the
string holds the secrets. Pass --ask-pass or --password to seal it with
AES-256-GCM under an argon2id-derived key.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := readBackupPassword(true)
		if err != nil {
			return err
		}
		defer password.Zero()

		envelope, err := backup.Encode(accountStore.Accounts(), password)
		if err != nil {
			return err
		}
		if len(args) == 1 {
			if err := os.WriteFile(args[0], []byte(envelope), 0o600); err != nil {
				return err
			}
			log.Infof("Wrote envelope to %s", args[0])
			return nil
		}
		fmt.Println(envelope)
		return nil
	},
}

// importCmd restores accounts from an envelope string or file. Restore is
// additive: existing accounts stay, imported ones are appended, and no
// deduplication happens.
var importCmd = &cobra.Command{
	Use:   "import <envelope-or-file>",
	Short: "Import accounts from an envelope string or file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		envelope := strings.TrimSpace(args[0])
		if data, err := os.ReadFile(args[0]); err == nil {
			envelope = strings.TrimSpace(string(data))
		}

		password, err := readBackupPassword(false)
		if err != nil {
			return err
		}
		defer password.Zero()

		accounts, err := backup.Decode(envelope, password)
		if err != nil {
			return err
		}
		if err := accountStore.Restore(cmd.Context(), accounts); err != nil {
			return err
		}
		log.Infof("Imported %d accounts (store now holds %d)", len(accounts), accountStore.Len())
		return nil
	},
}

// backupCmd writes a zstd-compressed JSON backup file of the collection.
var backupCmd = &cobra.Command{
	Use:   "backup [output-file]",
	Short: "Create a compressed (zstd) JSON backup of the account collection",
	Long: `Writes the full account collection as a Zstandard-compressed JSON file.

If no output file is specified, a default filename
'tessera-backup-YYYY-MM-DD.json.zst' is used. The file contains the account
secrets in plaintext; treat it like a password database.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		filename := fmt.Sprintf("tessera-backup-%s.json.zst", time.Now().Format("2006-01-02"))
		if len(args) == 1 {
			filename = args[0]
		}
		env := model.Envelope{
			Version:   backup.VersionPlain,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Accounts:  accountStore.Accounts(),
		}
		if err := writeCompressedBackup(filename, &env); err != nil {
			return err
		}
		log.Infof("Wrote backup of %d accounts to %s", len(env.Accounts), filename)
		return nil
	},
}

// restoreCmd reads a zstd backup file and appends its accounts to the store.
var restoreCmd = &cobra.Command{
	Use:   "restore <backup-file.zst>",
	Short: "Restore accounts from a compressed JSON backup",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := readCompressedBackup(args[0])
		if err != nil {
			return err
		}
		raw, err := json.Marshal(env.Accounts)
		if err != nil {
			return err
		}
		accounts, err := model.DecodeAccounts(raw)
		if err != nil {
			return fmt.Errorf("backup file contains invalid accounts: %w", err)
		}
		if err := accountStore.Restore(cmd.Context(), accounts); err != nil {
			return err
		}
		log.Infof("Restored %d accounts (store now holds %d)", len(accounts), accountStore.Len())
		return nil
	},
}

// writeCompressedBackup writes the envelope to a zstd-compressed file.
func writeCompressedBackup(filename string, env *model.Envelope) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return err
		}
	}
	file, err := os.OpenFile(filename, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("could not create backup file: %w", err)
	}
	defer func() { _ = file.Close() }()

	zstdWriter, err := zstd.NewWriter(file)
	if err != nil {
		return fmt.Errorf("could not create zstd writer: %w", err)
	}
	if err := json.NewEncoder(zstdWriter).Encode(env); err != nil {
		_ = zstdWriter.Close()
		return fmt.Errorf("could not encode json to zstd writer: %w", err)
	}
	return zstdWriter.Close()
}

// readCompressedBackup handles reading and decoding a zstd-compressed JSON
// backup file.
func readCompressedBackup(filename string) (*model.Envelope, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("could not open backup file: %w", err)
	}
	defer func() { _ = file.Close() }()

	zstdReader, err := zstd.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("could not create zstd reader: %w", err)
	}
	defer zstdReader.Close()

	var env model.Envelope
	if err := json.NewDecoder(zstdReader).Decode(&env); err != nil {
		return nil, fmt.Errorf("could not decode json from zstd reader: %w", err)
	}
	return &env, nil
}

func init() {
	for _, c := range []*cobra.Command{exportCmd, importCmd} {
		c.Flags().StringVarP(&backupPassword, "password", "p", "", "Envelope password (empty keeps the plaintext format)")
		c.Flags().BoolVar(&askPassword, "ask-pass", false, "Prompt for the envelope password on the terminal")
	}
	applyDefaultFlags(exportCmd)
	applyDefaultFlags(importCmd)
	applyDefaultFlags(backupCmd)
	applyDefaultFlags(restoreCmd)
}
