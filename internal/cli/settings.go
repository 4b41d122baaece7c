package cli

import (
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/nexochat/nexo/app/models"
)

func newSettingsCmd(repos reposFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Read and change runtime settings",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List known settings with secrets masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repos()
			if err != nil {
				return err
			}
			rows, err := r.Setting.List()
			if err != nil {
				return err
			}
			byKey := make(map[string]models.Setting, len(rows))
			for _, s := range rows {
				byKey[s.Key] = s
			}
			keys := models.KnownSettingKeys()
			sort.Strings(keys)
			for _, k := range keys {
				s, ok := byKey[k]
				if !ok {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t(unset)\n", k)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", k, s.MaskedValue())
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "get <key>",
		Short: "Print one setting value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repos()
			if err != nil {
				return err
			}
			s, err := r.Setting.Get(args[0])
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("setting %q is not set", args[0])
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), s.Value)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Create or replace a setting",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !models.IsKnownSetting(args[0]) {
				return fmt.Errorf("unknown setting %q", args[0])
			}
			if args[1] == "" {
				return errors.New("value must not be empty")
			}
			r, err := repos()
			if err != nil {
				return err
			}
			s, err := r.Setting.SetValue(args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", s.Key, s.MaskedValue())
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <key>",
		Short: "Remove a setting so the environment value applies again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repos()
			if err != nil {
				return err
			}
			if err := r.Setting.Delete(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	})

	return cmd
}
