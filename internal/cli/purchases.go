package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nexochat/nexo/app/repository"
	"github.com/nexochat/nexo/internal/pkg/export"
)

func newPurchasesCmd(repos reposFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "purchases",
		Short: "Inspect the purchase audit log",
	}

	var filter repository.PurchaseFilter
	list := &cobra.Command{
		Use:   "list",
		Short: "List recent purchases",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repos()
			if err != nil {
				return err
			}
			rows, total, err := r.Purchase.List(filter)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTRANSACTION\tSTATUS\tEMAIL\tPLAN\tPROCESSED\tRECEIVED")
			for _, p := range rows {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%t\t%s\n",
					p.ID, p.TransactionID, p.Status, p.CustomerEmail, p.ResolvedPlan, p.Processed,
					p.CreatedAt.Format("2006-01-02 15:04:05"))
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d of %d\n", len(rows), total)
			return nil
		},
	}
	list.Flags().StringVar(&filter.Status, "status", "", "only purchases with this status")
	list.Flags().StringVar(&filter.Email, "email", "", "only purchases for this customer email")
	list.Flags().IntVar(&filter.Limit, "limit", 20, "maximum rows to print")
	cmd.AddCommand(list)

	var exportFilter repository.PurchaseFilter
	var outPath string
	exp := &cobra.Command{
		Use:   "export",
		Short: "Write purchases to an xlsx workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repos()
			if err != nil {
				return err
			}
			rows, _, err := r.Purchase.List(exportFilter)
			if err != nil {
				return err
			}
			f, err := os.Create(outPath)
			if err != nil {
				return err
			}
			if err := export.WritePurchasesXLSX(f, rows); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d purchases to %s\n", len(rows), outPath)
			return nil
		},
	}
	exp.Flags().StringVar(&exportFilter.Status, "status", "", "only purchases with this status")
	exp.Flags().StringVarP(&outPath, "out", "o", "purchases.xlsx", "output file")
	cmd.AddCommand(exp)

	return cmd
}
