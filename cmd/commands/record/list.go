package record

import (
	"context"
	"fmt"
	"os"

	"nathanbeddoewebdev/dnsm/internal/records/domain"
	"nathanbeddoewebdev/dnsm/internal/records/expiry"
	recordtui "nathanbeddoewebdev/dnsm/internal/records/tui"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// ListCommand returns the "record list" subcommand.
func ListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored records",
		Long: `List records from the record store, soonest expiry first.

In a terminal without -o, an interactive browser is shown. Otherwise a
table or JSON is printed.

Examples:
  dnsm record list
  dnsm record list --owner alice -o table
  dnsm record list --expiring 1 -o json`,
		RunE:         runList,
		SilenceUsage: true,
	}

	cmd.Flags().String("owner", "", "Only list records of this owner")
	cmd.Flags().String("status", "", "Only list records with this status (pending, active, error)")
	cmd.Flags().Int("expiring", 0, "Only list records expiring within this many months")
	cmd.Flags().Int("limit", 0, "Maximum number of records (0 for all)")
	cmd.Flags().StringP("output", "o", "table", "Output format: table or json")

	return cmd
}

func runList(cmd *cobra.Command, args []string) error {
	owner, _ := cmd.Flags().GetString("owner")
	status, _ := cmd.Flags().GetString("status")
	expiring, _ := cmd.Flags().GetInt("expiring")
	limit, _ := cmd.Flags().GetInt("limit")
	output, _ := cmd.Flags().GetString("output")

	if status != "" && !domain.Status(status).Valid() {
		return fmt.Errorf("invalid status %q (valid: pending, active, error)", status)
	}
	if expiring < 0 || limit < 0 {
		return fmt.Errorf("--expiring and --limit must not be negative")
	}

	s, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	policy := expiry.New(nil)
	opts := domain.ListOptions{Owner: owner, Status: domain.Status(status), Limit: limit}
	if expiring > 0 {
		opts.ExpiresBefore = policy.MonthsFromNow(expiring)
	}
	warnMonths := max(expiring, expiry.DefaultWarningMonths)

	load := func(ctx context.Context) ([]domain.PersistedRecord, error) {
		return s.store.List(ctx, opts)
	}

	if !cmd.Flags().Changed("output") && term.IsTerminal(int(os.Stdout.Fd())) {
		return recordtui.RunRecordList(load, policy, flagOr(cmd, "provider", s.cfg.DNSProvider), warnMonths)
	}

	records, err := load(cmd.Context())
	if err != nil {
		return err
	}

	switch output {
	case "json":
		if records == nil {
			records = []domain.PersistedRecord{}
		}
		return printJSON(cmd, records)
	case "", "table":
		if len(records) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No records found.")
			return nil
		}
		printRecordsTable(cmd, records, policy, warnMonths)
		return nil
	default:
		return fmt.Errorf("unsupported output format %q", output)
	}
}
