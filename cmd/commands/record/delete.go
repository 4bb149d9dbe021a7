package record

import (
	"errors"
	"fmt"
	"os"

	"nathanbeddoewebdev/dnsm/internal/records/domain"
	recordtui "nathanbeddoewebdev/dnsm/internal/records/tui"

	"github.com/charmbracelet/huh/spinner"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// DeleteCommand returns the "record delete" subcommand.
func DeleteCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete a DNS record",
		Long: `Delete a record from the provider and the record store.

Without an id, an interactive form lets you pick a record (optionally
narrowed with --owner) and asks for confirmation.

Examples:
  # Interactive
  dnsm record delete --owner alice

  # Non-interactive (scripting)
  dnsm record delete 12`,
		Args:         cobra.MaximumNArgs(1),
		RunE:         runDelete,
		SilenceUsage: true,
	}

	cmd.Flags().String("owner", "", "Only offer records of this owner in the interactive form")

	return cmd
}

func runDelete(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := cmd.Context()
	var target *domain.PersistedRecord
	interactive := len(args) == 0

	if interactive {
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			return fmt.Errorf("record id is required when not running in a terminal")
		}
		owner, _ := cmd.Flags().GetString("owner")
		records, err := s.store.List(ctx, domain.ListOptions{Owner: owner})
		if err != nil {
			return err
		}
		accessible := os.Getenv("ACCESSIBLE") != ""
		target, err = recordtui.DeleteRecordForm(records, nil, accessible)
		if err != nil {
			if errors.Is(err, recordtui.ErrDeleteAborted) {
				fmt.Fprintln(cmd.ErrOrStderr(), "Record deletion cancelled.")
				return nil
			}
			return err
		}
	} else {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		if target, err = s.find(ctx, id); err != nil {
			return err
		}
	}
	annotate(cmd, target.Record())

	fmt.Fprintf(cmd.ErrOrStderr(), "Deleting record %d (%s %s)...\n", target.ID, target.Type, target.Name)

	var deleted *domain.PersistedRecord
	if interactive {
		var deleteErr error
		spinErr := spinner.New().
			Title("Deleting record...").
			Accessible(os.Getenv("ACCESSIBLE") != "").
			Output(cmd.ErrOrStderr()).
			Action(func() {
				deleted, deleteErr = s.rec.Delete(ctx, target.Record())
			}).
			Run()
		if spinErr != nil {
			return spinErr
		}
		err = deleteErr
	} else {
		deleted, err = s.rec.Delete(ctx, target.Record())
	}
	if err != nil {
		return explain(cmd, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Record %d (%s %s) deleted successfully.\n", deleted.ID, deleted.Type, deleted.Name)
	return nil
}
