// Copyright (c) 2026 Tessera Team
// Tessera - two-factor authentication code manager
// This source code is licensed under the MIT license found in the LICENSE file.

// otpauth:// URI commands: rebuild the provisioning URI for a stored
// account (optionally as a QR code image) and inspect a URI without
// enrolling it.
package cli

import (
	"fmt"

	log "github.com/charmbracelet/log"
	qrcode "github.com/skip2/go-qrcode"
	"github.com/spf13/cobra"

	"github.com/tessera-auth/tessera/internal/otpauth"
)

var qrOutFile string

var uriCmd = &cobra.Command{
	Use:   "uri",
	Short: "Build or parse otpauth:// provisioning URIs",
}

// uriBuildCmd renders a stored account back into the QR payload format so
// it can be enrolled on another device.
var uriBuildCmd = &cobra.Command{
	Use:   "build <id|issuer:name>",
	Short: "Print the otpauth:// URI for a stored account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := findAccount(args[0])
		if err != nil {
			return err
		}
		uri := otpauth.Build(a)
		if qrOutFile != "" {
			if err := qrcode.WriteFile(uri, qrcode.Medium, 256, qrOutFile); err != nil {
				return fmt.Errorf("could not write QR code: %w", err)
			}
			log.Infof("Wrote QR code for %s to %s", a.String(), qrOutFile)
			return nil
		}
		fmt.Println(uri)
		return nil
	},
}

// uriParseCmd decodes a URI and shows what would be enrolled, without
// touching the store.
var uriParseCmd = &cobra.Command{
	Use:   "parse <otpauth-uri>",
	Short: "Parse an otpauth:// URI and print its fields",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := otpauth.Parse(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("issuer:    %s\n", a.Issuer)
		fmt.Printf("account:   %s\n", a.AccountName)
		fmt.Printf("digits:    %d\n", a.Digits)
		fmt.Printf("period:    %ds\n", a.Period)
		fmt.Printf("algorithm: %s\n", a.Algorithm)
		return nil
	},
}

func init() {
	uriBuildCmd.Flags().StringVar(&qrOutFile, "qr", "", "Write the URI as a QR code PNG to this file")
	uriCmd.AddCommand(uriBuildCmd, uriParseCmd)
	applyDefaultFlags(uriBuildCmd)
	applyDefaultFlags(uriParseCmd)
}
