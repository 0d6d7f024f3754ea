package cli

import (
	"context"
	"fmt"

	"github.com/resolvd/resolvd/internal/config"
	"github.com/resolvd/resolvd/internal/control"
	"github.com/spf13/cobra"
)

var (
	ratifyApprove bool
	ratifyDeny    bool
)

var ratifyCmd = &cobra.Command{
	Use:   "ratify <ratification-id>",
	Short: "Approve or deny a pending suggested decision",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if ratifyApprove == ratifyDeny {
			return fmt.Errorf("pass exactly one of --approve or --deny")
		}
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		c := control.NewClient(cfg.Control.Addr, cfg.Control.AuthToken)
		if err := c.Ratify(context.Background(), args[0], ratifyApprove); err != nil {
			return err
		}
		verdict := "denied"
		if ratifyApprove {
			verdict = "approved"
		}
		fmt.Printf("Ratification %s %s\n", args[0], verdict)
		return nil
	},
}

var ratificationsCmd = &cobra.Command{
	Use:   "ratifications",
	Short: "List pending ratification requests",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		c := control.NewClient(cfg.Control.Addr, cfg.Control.AuthToken)
		rows, err := c.PendingRatifications(context.Background())
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			fmt.Println("No pending ratifications")
			return nil
		}
		for _, r := range rows {
			fmt.Printf("%s  notification=%s category=%s sender=%s proposed=%q\n",
				r.RatificationID, r.NotificationID, r.Category, r.Sender, r.ProposedValue)
		}
		return nil
	},
}

func init() {
	ratifyCmd.Flags().BoolVar(&ratifyApprove, "approve", false, "Approve the suggested value")
	ratifyCmd.Flags().BoolVar(&ratifyDeny, "deny", false, "Deny the suggested value")
}
