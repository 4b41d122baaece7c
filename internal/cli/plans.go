package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nexochat/nexo/internal/pkg/billing"
	"github.com/nexochat/nexo/internal/pkg/mail"
)

func newPlansCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plans",
		Short: "List the plan catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%-8s  %-12s  %s\n", "PLAN", "PRICE", "DAILY")
			for _, p := range billing.Plans() {
				fmt.Fprintf(out, "%-8s  %-12s  %d\n", p.Plan, mail.FormatBRL(p.PriceCents), p.DailyMessageLimit)
			}
			return nil
		},
	}
}
