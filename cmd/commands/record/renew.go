package record

import (
	"fmt"

	"github.com/spf13/cobra"
)

// RenewCommand returns the "record renew" subcommand.
func RenewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "renew <id>",
		Short: "Renew a record's expiry",
		Long: `Re-apply a record with its stored values, which pushes its expiry six
months into the future and returns it to pending.

Example:
  dnsm record renew 12`,
		Args:         cobra.ExactArgs(1),
		RunE:         runRenew,
		SilenceUsage: true,
	}
}

func runRenew(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	existing, err := s.find(cmd.Context(), id)
	if err != nil {
		return err
	}
	annotate(cmd, existing.Record())

	renewed, err := s.rec.Update(cmd.Context(), existing.Record())
	if err != nil {
		return explain(cmd, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Renewed record %d (%s %s), expires %s\n",
		renewed.ID, renewed.Type, renewed.Name, renewed.ExpiresAt.UTC().Format("2006-01-02"))
	return nil
}
