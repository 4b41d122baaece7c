package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/nexochat/nexo/app/models"
	"github.com/nexochat/nexo/internal/pkg/billing"
)

func newUsersCmd(repos reposFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage provisioned accounts",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show <email>",
		Short: "Print plan and usage for one account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repos()
			if err != nil {
				return err
			}
			u, err := lookupUser(r.User.GetByEmail, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "id:       %d\n", u.ID)
			fmt.Fprintf(out, "email:    %s\n", u.Email)
			fmt.Fprintf(out, "status:   %s\n", u.Status)
			fmt.Fprintf(out, "plan:     %s\n", u.Plan)
			fmt.Fprintf(out, "usage:    %d/%d\n", u.MessagesUsedToday, u.MessagesLimit)
			if u.PlanExpiresAt != nil {
				fmt.Fprintf(out, "expires:  %s\n", u.PlanExpiresAt.Format("2006-01-02 15:04"))
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "reset-password <email>",
		Short: "Generate and print a new password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repos()
			if err != nil {
				return err
			}
			u, err := lookupUser(r.User.GetByEmail, args[0])
			if err != nil {
				return err
			}
			password, err := billing.GeneratePassword(billing.DefaultPasswordLength)
			if err != nil {
				return err
			}
			hash, err := models.HashPassword(password)
			if err != nil {
				return err
			}
			if err := r.User.UpdatePassword(u.ID, hash); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", u.Email, password)
			return nil
		},
	})

	return cmd
}

func lookupUser(get func(string) (*models.User, error), email string) (*models.User, error) {
	u, err := get(email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("no user with email %q", email)
	}
	return u, err
}
