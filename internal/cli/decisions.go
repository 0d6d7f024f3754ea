package cli

import (
	"fmt"

	"github.com/resolvd/resolvd/internal/config"
	"github.com/resolvd/resolvd/internal/store"
	"github.com/spf13/cobra"
)

var decisionsCmd = &cobra.Command{
	Use:   "decisions <notification-id>",
	Short: "Show the decision audit trail for one notification",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		st, err := store.New(cfg.Store.DBPath)
		if err != nil {
			return err
		}
		defer st.Close()

		rows, err := st.ListDecisions(args[0])
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			fmt.Println("No decisions recorded")
			return nil
		}
		for _, r := range rows {
			fmt.Printf("%s  action=%s category=%s trust=L%d confidence=%.2f",
				r.CreatedAt.Format("2006-01-02 15:04:05"), r.Action, r.Category, r.TrustLevel, r.Confidence)
			if r.DecisionValue != "" {
				fmt.Printf(" value=%q", r.DecisionValue)
			}
			if r.Reason != "" {
				fmt.Printf(" reason=%q", r.Reason)
			}
			if r.RequiresRatification {
				fmt.Print(" ratification=required")
			}
			fmt.Println()
		}
		return nil
	},
}
