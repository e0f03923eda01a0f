package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/immowatch/offcache/internal/gateway"
	"github.com/immowatch/offcache/internal/precache"
)

var cmdServe = &cobra.Command{
	Use:   "serve",
	Short: "Run the offline gateway",
	Long: `
The "serve" command runs the gateway proxy. Every request is forwarded to
the live network first; when the network is unreachable, the response comes
from the cache store populated by "install". Live traffic never refreshes
the store.

With --precache, the install step runs inside the server process before it
starts accepting requests, mirroring the install-then-fetch lifecycle. This
is required for the memory backend, which starts empty.

EXIT STATUS
===========

Exit status is 0 if the command was successful, and non-zero if there was any error.
`,
	DisableAutoGenTag: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

// ServeOptions bundles all options for the serve command.
type ServeOptions struct {
	Precache bool
}

var serveOptions ServeOptions

func init() {
	cmdRoot.AddCommand(cmdServe)

	f := cmdServe.Flags()
	f.BoolVar(&serveOptions.Precache, "precache", false, "run the install step before serving")
}

func runServe(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := newStore(cfg)
	if err != nil {
		return err
	}

	if serveOptions.Precache {
		if err := cfg.ValidateForInstall(); err != nil {
			return err
		}
		installer, err := precache.New(cfg, store)
		if err != nil {
			return err
		}
		if err := installer.Run(ctx); err != nil {
			return err
		}
	}

	server, err := gateway.New(cfg, store)
	if err != nil {
		return err
	}

	return server.Start()
}
