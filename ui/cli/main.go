// Copyright (c) 2026 Tessera Team
// Tessera - two-factor authentication code manager
// This source code is licensed under the MIT license found in the LICENSE file.

// main.go sets up the command-line interface (CLI) for Tessera using the
// Cobra library. It defines the root command, subcommands (add, list, code,
// export, restore and friends), flags, and the main entry point for
// execution.

package cli

import (
	"errors"
	"fmt"
	"os"
	"runtime/debug"

	log "github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tessera-auth/tessera/internal/authgate"
	"github.com/tessera-auth/tessera/internal/config"
	"github.com/tessera-auth/tessera/internal/i18n"
	"github.com/tessera-auth/tessera/internal/logging"
	"github.com/tessera-auth/tessera/internal/scheduler"
	"github.com/tessera-auth/tessera/internal/store"
	"github.com/tessera-auth/tessera/internal/tui"
	"github.com/tessera-auth/tessera/internal/vault"
)

var version = "dev"   // this will be set by the linker
var gitCommit = "dev" // set at build time with the short commit SHA
var buildDate = ""    // set at build time (RFC3339)

var cfgFile string
var verbose bool
var showVersionFlag bool

var appConfig config.Config

// accountStore is the session-wide account collection, created once the
// vault is initialized by setupDefaultServices.
var accountStore *store.Store

// sessionGate is the platform authentication collaborator consulted before
// the interactive session shows any codes. The default Noop gate reports
// unsupported, which makes Authorize fail open; platform builds install a
// real gate before Execute.
var sessionGate authgate.Gate = authgate.Noop{}

// setupDefaultServices loads the configuration, initializes i18n and the
// vault, and loads the account store. It runs as PersistentPreRunE so every
// subcommand sees the same wiring.
func setupDefaultServices(cmd *cobra.Command, args []string) error {
	optionalConfigPath, err := getConfigPathFromCli(cmd)
	if err != nil {
		return err
	}

	defaults := map[string]any{
		"database.type": "sqlite",
		"database.dsn":  "./tessera.db",
		"language":      "en",
	}

	appConfig, err = config.LoadConfig[config.Config](cmd, defaults, optionalConfigPath)
	// A "file not found" error is expected on first run; create a default
	// config so subsequent runs have a persisted file to inspect.
	if errors.As(err, &viper.ConfigFileNotFoundError{}) {
		if writeErr := config.WriteConfigFile(&appConfig, false); writeErr != nil {
			log.Warnf("Warning: could not write default config file: %v", writeErr)
		}
	} else if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	if appConfig.Database.Type == "" {
		appConfig.Database.Type = defaults["database.type"].(string)
	}
	if appConfig.Database.Dsn == "" {
		appConfig.Database.Dsn = defaults["database.dsn"].(string)
	}
	if appConfig.Language == "" {
		appConfig.Language = defaults["language"].(string)
	}

	i18n.Init(appConfig.Language)
	logging.SetDebug(verbose || appConfig.Debug)

	if err := vault.Init(appConfig.Database.Type, appConfig.Database.Dsn); err != nil {
		return err
	}

	accountStore = store.New(vault.Default())
	// Load degrades gracefully: a corrupt blob resets to empty, only a real
	// storage failure aborts startup.
	if err := accountStore.Load(cmd.Context()); err != nil {
		return fmt.Errorf("failed to load accounts: %w", err)
	}
	return nil
}

// Execute runs the CLI entrypoint. The main package calls this and handles
// process exit.
func Execute() error {
	return NewRootCmd().Execute()
}

func applyDefaultFlags(cmd *cobra.Command) {
	// pflag panics on duplicate flag definitions and NewRootCmd may run
	// multiple times in tests, so check first.
	if cmd.Flags().Lookup("database.type") == nil {
		cmd.Flags().String("database.type", "sqlite", "Database type (sqlite, postgres, mysql)")
	}
	if cmd.Flags().Lookup("database.dsn") == nil {
		cmd.Flags().String("database.dsn", "./tessera.db", "Database connection string (DSN)")
	}
}

func getConfigPathFromCli(cmd *cobra.Command) (*string, error) {
	// Only honor --config when the user explicitly set it.
	if cmd.Flags().Changed("config") {
		path, err := cmd.Flags().GetString("config")
		if err != nil {
			return nil, fmt.Errorf("could not read --config flag: %w", err)
		}
		if path == "" {
			return nil, nil
		}
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file specified via --config flag not found or is not accessible: %w", err)
		}
		return &path, nil
	}
	return nil, nil
}

// NewRootCmd creates and configures a new root cobra command. Tests use this
// to build fresh, isolated instances.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tessera",
		Short: "Tessera is a local two-factor authentication code manager.",
		Long: `Tessera stores per-service TOTP seeds and derives short-lived numeric
authentication codes from them (RFC 4226/6238). Accounts are enrolled from
otpauth:// URIs or manual entry and persisted in a local encrypted-at-rest
database.

Running without a subcommand launches the interactive TUI.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if showVersionFlag {
				fmt.Println(compositeVersion())
				os.Exit(0)
			}
			if verbose {
				vault.SetDebug(true)
			}
			return setupDefaultServices(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			// The vault and store are already initialized by
			// PersistentPreRunE. Authenticate the session before any code
			// is rendered, then run the TUI.
			ok, err := authgate.Authorize(cmd.Context(), sessionGate, i18n.T("cli.unlock_prompt"))
			if err != nil {
				return fmt.Errorf("authentication failed: %w", err)
			}
			if !ok {
				return fmt.Errorf("%s", i18n.T("cli.error_auth_declined"))
			}
			sched := scheduler.New(periodsFromStore)
			if err := tui.Run(accountStore, sched); err != nil {
				log.Errorf("TUI error: %v", err)
			}
			return nil
		},
	}

	cmd.Version = compositeVersion()

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output (sets debug logging)")
	cmd.PersistentFlags().BoolVarP(&showVersionFlag, "version", "V", false, "Print version and exit")
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file")
	cmd.PersistentFlags().String("language", "en", `language ("en", "de")`)
	applyDefaultFlags(cmd)

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			v, c, d := resolveBuildVersion()
			fmt.Printf("version: %s\n", v)
			fmt.Printf("commit: %s\n", c)
			if d != "" {
				fmt.Printf("built: %s\n", d)
			}
		},
	}

	auditCmd := &cobra.Command{
		Use:   "audit",
		Short: "Show the mutation audit trail",
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := vault.Default().AuditLog(cmd.Context())
			if err != nil {
				return err
			}
			for _, e := range entries {
				fmt.Printf("%s  %-16s %s\n", e.Timestamp.Format("2006-01-02 15:04:05"), e.Action, e.Details)
			}
			return nil
		},
	}

	dbMaintainCmd := &cobra.Command{
		Use:   "db-maintain",
		Short: "Run database maintenance (vacuum/optimize)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return vault.Maintenance(cmd.Context(), appConfig.Database.Type, appConfig.Database.Dsn)
		},
	}

	cmd.AddCommand(
		versionCmd,
		addCmd,
		listCmd,
		removeCmd,
		codeCmd,
		newSecretCmd,
		uriCmd,
		exportCmd,
		importCmd,
		backupCmd,
		restoreCmd,
		auditCmd,
		dbMaintainCmd,
	)
	return cmd
}

// periodsFromStore yields the distinct period lengths currently stored, for
// the refresh scheduler.
func periodsFromStore() []int {
	seen := map[int]bool{}
	var out []int
	for _, a := range accountStore.Accounts() {
		p := a.Period
		if p <= 0 {
			continue
		}
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}

func compositeVersion() string {
	v, c, d := resolveBuildVersion()
	out := v
	if c != "" && c != "dev" {
		out += " (" + c + ")"
	}
	if d != "" {
		out += " built: " + d
	}
	return out
}

// resolveBuildVersion prefers linker-set values but falls back to the Go
// build info embedded in the binary.
func resolveBuildVersion() (string, string, string) {
	resolvedVersion, resolvedCommit, resolvedDate := version, gitCommit, buildDate
	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "" && info.Main.Version != "(devel)" {
			resolvedVersion = info.Main.Version
		}
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				if s.Value != "" {
					resolvedCommit = s.Value
				}
			case "vcs.time":
				if s.Value != "" {
					resolvedDate = s.Value
				}
			}
		}
	}
	return resolvedVersion, resolvedCommit, resolvedDate
}
