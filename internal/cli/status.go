package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/resolvd/resolvd/internal/config"
	"github.com/resolvd/resolvd/internal/control"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		printHeader("Resolvd Version")
		fmt.Printf("Version: %s\n", version)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon status and counters",
	RunE: func(cmd *cobra.Command, args []string) error {
		printHeader("Resolvd Status")
		fmt.Printf("Version: %s\n", version)

		configPath, err := config.ConfigPath()
		if err == nil {
			if _, statErr := os.Stat(configPath); statErr == nil {
				fmt.Println("Config:  found (" + configPath + ")")
			} else {
				fmt.Println("Config:  not found, using defaults")
			}
		}

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		c := control.NewClient(cfg.Control.Addr, cfg.Control.AuthToken)
		stats, err := c.Stats(context.Background())
		if err != nil {
			fmt.Println("Daemon:  not running (" + cfg.Control.Addr + ")")
			return nil
		}
		fmt.Println("Daemon:  running (" + cfg.Control.Addr + ")")
		if stats.Router != nil {
			fmt.Printf("Router:  processed=%d answered=%d skipped=%d sender_rejected=%d errors=%d\n",
				stats.Router.Processed, stats.Router.Answered, stats.Router.Skipped,
				stats.Router.SenderRejected, stats.Router.Errors)
			for tier, hits := range stats.Router.TierHits {
				fmt.Printf("         tier %s: %d\n", tier, hits)
			}
		}
		if stats.Gate != nil {
			fmt.Printf("Gate:    evaluated=%d shadowed=%d suggested=%d acted=%d deferred=%d errors=%d\n",
				stats.Gate.Evaluated, stats.Gate.Shadowed, stats.Gate.Suggested,
				stats.Gate.Acted, stats.Gate.Deferred, stats.Gate.Errors)
		}
		return nil
	},
}
