// Copyright (c) 2026 Tessera Team
// Tessera - two-factor authentication code manager
// This source code is licensed under the MIT license found in the LICENSE file.

// Account management commands: add, list, remove, code, new-secret.
package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tessera-auth/tessera/internal/i18n"
	"github.com/tessera-auth/tessera/internal/model"
	"github.com/tessera-auth/tessera/internal/otp"
	"github.com/tessera-auth/tessera/internal/otpauth"
	"github.com/tessera-auth/tessera/internal/scheduler"
)

var (
	addIssuer    string
	addAccount   string
	addSecret    string
	addURI       string
	addDigits    int
	addPeriod    int
	addAlgorithm string
)

// addCmd enrolls an account, either from an otpauth:// URI (--uri, the QR
// payload) or from manual fields. Manual secrets are normalized: spaces,
// hyphens and underscores stripped, upper-cased.
var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Add an account from an otpauth:// URI or manual fields",
	RunE: func(cmd *cobra.Command, args []string) error {
		var a model.Account
		if addURI != "" {
			parsed, err := otpauth.Parse(addURI)
			if err != nil {
				return err
			}
			a = parsed
		} else {
			secret := otp.NormalizeSecret(addSecret)
			if secret == "" {
				return fmt.Errorf("%s", i18n.T("cli.error_missing_secret"))
			}
			a = model.Account{
				ID:          otpauth.NewID(),
				Issuer:      addIssuer,
				AccountName: addAccount,
				Secret:      secret,
				Digits:      addDigits,
				Period:      addPeriod,
				Algorithm:   addAlgorithm,
			}.ApplyDefaults()
		}
		if _, err := otp.DecodeSecret(a.Secret); err != nil {
			return err
		}
		if err := a.Validate(); err != nil {
			return err
		}
		if err := accountStore.Add(cmd.Context(), a); err != nil {
			return err
		}
		fmt.Printf("Added %s (id: %s)\n", a.String(), a.ID)
		return nil
	},
}

// listCmd prints the stored accounts in insertion order.
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored accounts",
	RunE: func(cmd *cobra.Command, args []string) error {
		accounts := accountStore.Accounts()
		if len(accounts) == 0 {
			fmt.Println("No accounts stored.")
			return nil
		}
		for _, a := range accounts {
			fmt.Printf("%-36s  %-30s digits=%d period=%ds %s\n", a.ID, a.String(), a.Digits, a.Period, a.Algorithm)
		}
		return nil
	},
}

// removeCmd deletes an account by id or label.
var removeCmd = &cobra.Command{
	Use:   "remove <id|issuer:name>",
	Short: "Remove an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := findAccount(args[0])
		if err != nil {
			return err
		}
		if err := accountStore.Remove(cmd.Context(), a.ID); err != nil {
			return err
		}
		fmt.Printf("Removed %s\n", a.String())
		return nil
	},
}

// codeCmd derives and prints the current code for one account.
var codeCmd = &cobra.Command{
	Use:   "code <id|issuer:name>",
	Short: "Print the current code for an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := findAccount(args[0])
		if err != nil {
			return err
		}
		now := time.Now()
		code, err := otp.GenerateTime(a, now)
		if err != nil {
			return err
		}
		fmt.Printf("%s (expires in %ds)\n", code, scheduler.Remaining(a.Period, now))
		return nil
	},
}

// newSecretCmd generates a fresh random seed for enrolling a service that
// lets the user pick the secret.
var newSecretCmd = &cobra.Command{
	Use:   "new-secret",
	Short: "Generate a random Base32 secret",
	RunE: func(cmd *cobra.Command, args []string) error {
		n, _ := cmd.Flags().GetInt("bytes")
		s, err := otp.NewSecret(n)
		if err != nil {
			return err
		}
		fmt.Println(s)
		return nil
	},
}

// findAccount resolves a user-supplied identifier against the store: exact
// id first, then the issuer:name label, then the bare account name.
func findAccount(identifier string) (model.Account, error) {
	accounts := accountStore.Accounts()
	for _, a := range accounts {
		if a.ID == identifier {
			return a, nil
		}
	}
	for _, a := range accounts {
		if a.Label() == identifier {
			return a, nil
		}
	}
	for _, a := range accounts {
		if a.AccountName == identifier {
			return a, nil
		}
	}
	return model.Account{}, fmt.Errorf("%s: %q", i18n.T("cli.error_not_found"), identifier)
}

func init() {
	addCmd.Flags().StringVar(&addURI, "uri", "", "otpauth:// URI (QR code payload)")
	addCmd.Flags().StringVar(&addIssuer, "issuer", "", "Service name")
	addCmd.Flags().StringVar(&addAccount, "account", "", "Account name at the service")
	addCmd.Flags().StringVar(&addSecret, "secret", "", "Base32 secret (separators tolerated)")
	addCmd.Flags().IntVar(&addDigits, "digits", model.DefaultDigits, "Code length (6, 7 or 8)")
	addCmd.Flags().IntVar(&addPeriod, "period", model.DefaultPeriod, "Code validity window in seconds")
	addCmd.Flags().StringVar(&addAlgorithm, "algorithm", model.DefaultAlgorithm, "HMAC hash (SHA1, SHA256, SHA512)")

	newSecretCmd.Flags().Int("bytes", 20, "Seed length in bytes (minimum 20)")

	applyDefaultFlags(addCmd)
	applyDefaultFlags(listCmd)
	applyDefaultFlags(removeCmd)
	applyDefaultFlags(codeCmd)
}
