package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/immowatch/offcache/internal/cache"
	"github.com/immowatch/offcache/internal/config"
)

var cmdPurge = &cobra.Command{
	Use:   "purge",
	Short: "Delete cache stores from previous versions",
	Long: `
The "purge" command removes every store version directory under the cache
folder except the one currently configured. Run it after bumping the store
name so stale versions do not accumulate on disk. It is never run
implicitly.

EXIT STATUS
===========

Exit status is 0 if the command was successful, and non-zero if there was any error.
`,
	DisableAutoGenTag: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPurge()
	},
}

func init() {
	cmdRoot.AddCommand(cmdPurge)
}

func runPurge() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if cfg.Cache.Backend != config.BackendDisk {
		return fmt.Errorf("purge only applies to the disk backend")
	}

	purged, err := cache.PurgeStale(cfg.Cache.Folder, cfg.Cache.Name)
	if err != nil {
		return err
	}

	if len(purged) == 0 {
		fmt.Println("no stale cache stores found")
		return nil
	}

	for _, name := range purged {
		fmt.Printf("purged %s\n", name)
	}
	return nil
}
