package cli

import (
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/nexochat/nexo/app/repository"
	"github.com/nexochat/nexo/internal/pkg/database"
	"github.com/nexochat/nexo/internal/pkg/env"
)

// Opener returns the database the commands work against.
type Opener func() (*gorm.DB, error)

// DefaultOpener loads .env and opens the configured driver, migrating the
// schema the same way the server does.
func DefaultOpener() (*gorm.DB, error) {
	env.SetupEnvFile()
	database.SetupDatabase()
	return database.GetDB(), nil
}

// NewRootCmd builds the nexoctl command tree. Commands that need storage call
// open lazily so `plans` works without a database.
func NewRootCmd(open Opener) *cobra.Command {
	root := &cobra.Command{
		Use:           "nexoctl",
		Short:         "Operate a nexo deployment",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	repos := func() (*repository.Repositories, error) {
		db, err := open()
		if err != nil {
			return nil, err
		}
		return repository.NewRepositories(db), nil
	}

	root.AddCommand(newPlansCmd())
	root.AddCommand(newSettingsCmd(repos))
	root.AddCommand(newPurchasesCmd(repos))
	root.AddCommand(newUsersCmd(repos))
	return root
}

// Execute runs nexoctl against the configured database.
func Execute() error {
	return NewRootCmd(DefaultOpener).Execute()
}

type reposFunc func() (*repository.Repositories, error)
