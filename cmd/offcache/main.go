package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/immowatch/offcache/internal/cache"
	"github.com/immowatch/offcache/internal/config"
)

var version = "0.1.0"

// GlobalOptions bundles the flags shared by every command.
type GlobalOptions struct {
	ConfigPath string
	Verbose    bool
}

var globalOptions GlobalOptions

// cmdRoot is the base command when no other command has been specified.
var cmdRoot = &cobra.Command{
	Use:   "offcache",
	Short: "Offline-first caching gateway",
	Long: `
offcache keeps a web page usable without a network. The "install" command
precaches a fixed list of page assets into a named cache store, and the
"serve" command runs a proxy that answers every request network-first,
falling back to the store when the network is down.
`,
	Version:           version,
	SilenceErrors:     true,
	SilenceUsage:      true,
	DisableAutoGenTag: true,

	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if globalOptions.Verbose {
			logrus.SetLevel(logrus.DebugLevel)
		}
	},

	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
		os.Exit(0)
	},
}

func init() {
	f := cmdRoot.PersistentFlags()
	f.StringVar(&globalOptions.ConfigPath, "config", "configs/config.yaml", "path to the configuration file")
	f.BoolVarP(&globalOptions.Verbose, "verbose", "v", false, "enable debug logging")
}

// loadConfig loads and validates the configuration for the current command
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(globalOptions.ConfigPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// newStore builds the configured cache store backend
func newStore(cfg *config.Config) (cache.Store, error) {
	ttl, err := cfg.GetCacheTTL()
	if err != nil {
		return nil, fmt.Errorf("invalid cache TTL: %w", err)
	}

	switch cfg.Cache.Backend {
	case config.BackendMemory:
		return cache.NewMemory(ttl), nil
	default:
		return cache.NewDisk(cfg.Cache.Folder, cfg.Cache.Name, ttl, cfg.Cache.Compress), nil
	}
}

func main() {
	if err := cmdRoot.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
