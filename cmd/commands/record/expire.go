package record

import (
	"fmt"

	"nathanbeddoewebdev/dnsm/internal/records/domain"

	"github.com/spf13/cobra"
)

// ExpireCommand returns the "record expire" subcommand.
func ExpireCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "expire <id>",
		Short: "Remove a record if it has expired",
		Long: `Re-read a record and remove it from the provider and the store if its
expiry has passed. A record that has not expired is left alone.

Example:
  dnsm record expire 12`,
		Args:         cobra.ExactArgs(1),
		RunE:         runExpire,
		SilenceUsage: true,
	}
}

func runExpire(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	annotate(cmd, domain.Record{ID: id})
	removed, err := s.rec.RemoveIfExpired(cmd.Context(), domain.Record{ID: id})
	if err != nil {
		return explain(cmd, err)
	}
	if removed == nil {
		fmt.Fprintf(cmd.OutOrStdout(), "Record %d has not expired.\n", id)
		return nil
	}

	annotate(cmd, removed.Record())
	fmt.Fprintf(cmd.OutOrStdout(), "Removed expired record %d (%s %s).\n", removed.ID, removed.Type, removed.Name)
	return nil
}
