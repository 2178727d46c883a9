package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"expensetracker/internal/backend"
	"expensetracker/internal/cli"
	"expensetracker/internal/log"
)

var timeNow = time.Now

func main() {
	cli.LoadEnvFile()
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app carries what the subcommands share once the root command has loaded
// the configuration.
type app struct {
	v      *viper.Viper
	config *Config
	logger *log.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "expense-export",
		Short: "Export and summarize expenses from the command line",
		Long: `Expense Export renders an owner's expenses as CSV or PDF, prints the
category summary and budget status, and issues development bearer tokens
for the HTTP API.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(a.v, configPath)
			if err != nil {
				return err
			}
			a.config = cfg

			logCfg := log.DefaultConfig()
			if lvl, err := log.ParseLevel(cfg.LogLevel); err == nil {
				logCfg.Level = lvl
			}
			// Documents may go to stdout, so logs never do.
			logCfg.Output = cmd.ErrOrStderr()
			logCfg.Component = log.ComponentCLI
			a.logger = log.New(logCfg)
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "path to a TOML config file")
	flags.String("backend", "", "data backend: "+fmt.Sprint(backend.GetBackendTypeStrings()))
	flags.String("data-dir", "", "seed directory of the memory backend")
	flags.String("sqlite-path", "", "SQLite database file")
	flags.String("database-url", "", "Postgres connection URL")
	flags.String("log-level", "", "debug, info, warn or error")
	for key, name := range map[string]string{
		"backend":      "backend",
		"data_dir":     "data-dir",
		"sqlite_path":  "sqlite-path",
		"database_url": "database-url",
		"log_level":    "log-level",
	} {
		_ = a.v.BindPFlag(key, flags.Lookup(name))
	}

	rootCmd.AddCommand(newExportCmd(a), newReportCmd(a), newTokenCmd(a))
	return rootCmd
}

// openBackend creates the configured backend. Callers must Close the result.
func (a *app) openBackend(ctx context.Context) (*backend.BackendResult, error) {
	return backend.NewFactory(a.logger).CreateBackend(ctx, backend.Config{
		Type:          backend.BackendType(a.config.Backend),
		SQLiteDBPath:  a.config.SQLitePath,
		DatabaseURL:   a.config.DatabaseURL,
		DataDirectory: a.config.DataDir,
	})
}
