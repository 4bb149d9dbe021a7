package record

import (
	"fmt"

	"nathanbeddoewebdev/dnsm/internal/records/domain"

	"github.com/spf13/cobra"
)

// CreateCommand returns the "record create" subcommand.
func CreateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a DNS record",
		Long: `Create a record at the provider and in the record store.

The record starts out pending and expires six months from now unless
renewed. Creating a record with the same name, type and value as an
existing one fails with a conflict.

Examples:
  dnsm record create --owner alice --type A --name web.alice.example.com --value 203.0.113.7
  dnsm record create --owner bob --type TXT --name _acme-challenge.bob.example.com --value token`,
		RunE:         runCreate,
		SilenceUsage: true,
	}

	cmd.Flags().String("owner", "", "Owner of the record [required]")
	cmd.Flags().String("type", "", "Record type (A, AAAA, CNAME, TXT, MX, NS, SRV, CAA) [required]")
	cmd.Flags().String("name", "", "Fully qualified record name [required]")
	cmd.Flags().String("value", "", "Record value [required]")
	cmd.Flags().String("description", "", "Optional description")
	cmd.Flags().String("course", "", "Optional course the record belongs to")
	cmd.Flags().String("ports", "", "Optional ports served behind the record")
	cmd.Flags().StringP("output", "o", "table", "Output format: table or json")

	cmd.MarkFlagRequired("owner")
	cmd.MarkFlagRequired("type")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("value")

	return cmd
}

func runCreate(cmd *cobra.Command, args []string) error {
	owner, _ := cmd.Flags().GetString("owner")
	recordType, _ := cmd.Flags().GetString("type")
	name, _ := cmd.Flags().GetString("name")
	value, _ := cmd.Flags().GetString("value")
	output, _ := cmd.Flags().GetString("output")

	rec := domain.Record{
		Owner:       owner,
		Type:        domain.NormalizeType(recordType),
		Name:        domain.NormalizeName(name),
		Value:       value,
		Description: optionalFlag(cmd, "description"),
		Course:      optionalFlag(cmd, "course"),
		Ports:       optionalFlag(cmd, "ports"),
	}
	annotate(cmd, rec)

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	created, err := s.rec.Create(cmd.Context(), rec)
	if err != nil {
		return explain(cmd, err)
	}
	annotate(cmd, created.Record())

	if output == "json" {
		return printJSON(cmd, created)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created record %d (%s %s -> %s), expires %s\n",
		created.ID, created.Type, created.Name, created.Value, created.ExpiresAt.UTC().Format("2006-01-02"))
	return nil
}

// optionalFlag returns a pointer to the flag value when it was set.
func optionalFlag(cmd *cobra.Command, name string) *string {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, _ := cmd.Flags().GetString(name)
	return &v
}
