package record

import (
	"nathanbeddoewebdev/dnsm/internal/records/expiry"

	"github.com/spf13/cobra"
)

// ShowCommand returns the "record show" subcommand.
func ShowCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a stored record",
		Long: `Display a stored record with its status and expiry.

Examples:
  dnsm record show 12
  dnsm record show 12 -o json`,
		Args:         cobra.ExactArgs(1),
		RunE:         runShow,
		SilenceUsage: true,
	}

	cmd.Flags().StringP("output", "o", "table", "Output format: table or json")

	return cmd
}

func runShow(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	output, _ := cmd.Flags().GetString("output")

	s, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	rec, err := s.find(cmd.Context(), id)
	if err != nil {
		return err
	}
	return printRecord(cmd, output, rec, expiry.New(nil))
}
