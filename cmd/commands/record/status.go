package record

import (
	"fmt"

	"nathanbeddoewebdev/dnsm/internal/records/domain"

	"github.com/spf13/cobra"
)

// StatusCommand returns the "record status" subcommand.
func StatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status <id> <pending|active|error>",
		Short: "Set a record's propagation status",
		Long: `Set the status of a stored record. This is how an external propagation
check reports that a record is live (active) or failed to resolve (error).
The provider is not contacted.

Example:
  dnsm record status 12 active`,
		Args:         cobra.ExactArgs(2),
		RunE:         runStatus,
		SilenceUsage: true,
	}
}

func runStatus(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	status := domain.Status(args[1])
	if !status.Valid() {
		return fmt.Errorf("invalid status %q (valid: pending, active, error)", args[1])
	}

	s, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	annotate(cmd, domain.Record{ID: id})
	if err := s.store.SetStatus(cmd.Context(), id, status); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Record %d is now %s.\n", id, status)
	return nil
}
