package record

import (
	"fmt"

	"nathanbeddoewebdev/dnsm/internal/records/domain"

	"github.com/spf13/cobra"
)

// UpdateCommand returns the "record update" subcommand.
func UpdateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a DNS record",
		Long: `Update a stored record and upsert it at the provider.

Only the flags given are changed; the rest keep their stored values. The
owner cannot be changed. The record returns to pending and its expiry is renewed.

When the name or type changes, the provider record under the old name is
left in place and has to be removed separately.

Examples:
  dnsm record update 12 --value 203.0.113.8
  dnsm record update 12 --description "staging box"`,
		Args:         cobra.ExactArgs(1),
		RunE:         runUpdate,
		SilenceUsage: true,
	}

	cmd.Flags().String("type", "", "New record type")
	cmd.Flags().String("name", "", "New fully qualified record name")
	cmd.Flags().String("value", "", "New record value")
	cmd.Flags().String("description", "", "New description")
	cmd.Flags().String("course", "", "New course")
	cmd.Flags().String("ports", "", "New ports")
	cmd.Flags().StringP("output", "o", "table", "Output format: table or json")

	return cmd
}

func runUpdate(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	output, _ := cmd.Flags().GetString("output")

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	existing, err := s.find(cmd.Context(), id)
	if err != nil {
		return err
	}

	rec := existing.Record()
	if v := optionalFlag(cmd, "type"); v != nil {
		rec.Type = domain.NormalizeType(*v)
	}
	if v := optionalFlag(cmd, "name"); v != nil {
		rec.Name = domain.NormalizeName(*v)
	}
	if v := optionalFlag(cmd, "value"); v != nil {
		rec.Value = *v
	}
	if v := optionalFlag(cmd, "description"); v != nil {
		rec.Description = v
	}
	if v := optionalFlag(cmd, "course"); v != nil {
		rec.Course = v
	}
	if v := optionalFlag(cmd, "ports"); v != nil {
		rec.Ports = v
	}
	annotate(cmd, rec)

	if rec.Name != existing.Name || rec.Type != existing.Type {
		fmt.Fprintf(cmd.ErrOrStderr(), "Note: the provider record %s %s is not removed.\n", existing.Type, existing.Name)
	}

	updated, err := s.rec.Update(cmd.Context(), rec)
	if err != nil {
		return explain(cmd, err)
	}

	if output == "json" {
		return printJSON(cmd, updated)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Updated record %d (%s %s -> %s), expires %s\n",
		updated.ID, updated.Type, updated.Name, updated.Value, updated.ExpiresAt.UTC().Format("2006-01-02"))
	return nil
}
