package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/immowatch/offcache/internal/precache"
)

var cmdInstall = &cobra.Command{
	Use:   "install",
	Short: "Precache the configured asset list into the cache store",
	Long: `
The "install" command fetches every configured asset path from the origin
and stores the responses in the named cache store. The run is all or
nothing: if any asset fails to fetch, the store is left untouched and the
command exits non-zero, so it can simply be retried.

EXIT STATUS
===========

Exit status is 0 if every asset was fetched and stored, and non-zero otherwise.
`,
	DisableAutoGenTag: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInstall(cmd.Context())
	},
}

func init() {
	cmdRoot.AddCommand(cmdInstall)
}

func runInstall(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.ValidateForInstall(); err != nil {
		return err
	}

	store, err := newStore(cfg)
	if err != nil {
		return err
	}

	installer, err := precache.New(cfg, store)
	if err != nil {
		return err
	}

	return installer.Run(ctx)
}
