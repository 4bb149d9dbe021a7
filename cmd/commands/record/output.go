package record

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"nathanbeddoewebdev/dnsm/internal/records/domain"
	"nathanbeddoewebdev/dnsm/internal/records/expiry"

	"github.com/spf13/cobra"
)

const timeLayout = "2006-01-02 15:04:05 UTC"

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printRecordDetail prints a vertical key-value table of a record.
func printRecordDetail(cmd *cobra.Command, rec *domain.PersistedRecord, policy *expiry.Policy, warnMonths int) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)

	fmt.Fprintf(w, "  ID:\t%d\n", rec.ID)
	fmt.Fprintf(w, "  Owner:\t%s\n", rec.Owner)
	fmt.Fprintf(w, "  Type:\t%s\n", rec.Type)
	fmt.Fprintf(w, "  Name:\t%s\n", rec.Name)
	fmt.Fprintf(w, "  Value:\t%s\n", rec.Value)
	fmt.Fprintf(w, "  Status:\t%s\n", rec.Status)
	if rec.Description != "" {
		fmt.Fprintf(w, "  Description:\t%s\n", rec.Description)
	}
	if rec.Course != "" {
		fmt.Fprintf(w, "  Course:\t%s\n", rec.Course)
	}
	if rec.Ports != "" {
		fmt.Fprintf(w, "  Ports:\t%s\n", rec.Ports)
	}
	fmt.Fprintf(w, "  Created:\t%s\n", rec.CreatedAt.UTC().Format(timeLayout))
	fmt.Fprintf(w, "  Updated:\t%s\n", rec.UpdatedAt.UTC().Format(timeLayout))

	expires := rec.ExpiresAt.UTC().Format(timeLayout)
	if policy != nil {
		if hint := policy.Hint(rec.ExpiresAt, warnMonths); hint != "" {
			expires += " (" + hint + ")"
		}
	}
	fmt.Fprintf(w, "  Expires:\t%s\n", expires)

	w.Flush()
}

// printRecordsTable prints records as a table.
func printRecordsTable(cmd *cobra.Command, records []domain.PersistedRecord, policy *expiry.Policy, warnMonths int) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tOWNER\tTYPE\tNAME\tVALUE\tSTATUS\tEXPIRES")
	for _, r := range records {
		expires := r.ExpiresAt.UTC().Format("2006-01-02")
		if hint := policy.Hint(r.ExpiresAt, warnMonths); hint != "" {
			expires += " (" + hint + ")"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n", r.ID, r.Owner, r.Type, r.Name, r.Value, r.Status, expires)
	}
	w.Flush()
}

func printRecord(cmd *cobra.Command, output string, rec *domain.PersistedRecord, policy *expiry.Policy) error {
	switch output {
	case "json":
		return printJSON(cmd, rec)
	case "", "table":
		printRecordDetail(cmd, rec, policy, expiry.DefaultWarningMonths)
		return nil
	default:
		return fmt.Errorf("unsupported output format %q", output)
	}
}
