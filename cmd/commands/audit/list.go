package audit

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"nathanbeddoewebdev/dnsm/internal/auditlog"

	"github.com/spf13/cobra"
)

func ListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent audit entries",
		Long: `List recent audit entries stored locally.

Examples:
  dnsm audit list
  dnsm audit list --limit 50
  dnsm audit list --command "dnsm record create"
  dnsm audit list --record 42
  dnsm audit list -o json`,
		RunE:         runList,
		SilenceUsage: true,
	}

	cmd.Flags().Int("limit", 25, "Number of entries to display")
	cmd.Flags().String("command", "", "Filter by exact command path")
	cmd.Flags().String("record", "", "Filter by record id")
	cmd.Flags().StringP("output", "o", "table", "Output format: table or json")
	cmd.MarkFlagsMutuallyExclusive("command", "record")

	return cmd
}

func runList(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	if limit <= 0 {
		return fmt.Errorf("limit must be greater than 0")
	}

	command, _ := cmd.Flags().GetString("command")
	record, _ := cmd.Flags().GetString("record")
	output, _ := cmd.Flags().GetString("output")
	if output == "" {
		output = "table"
	}
	if output != "table" && output != "json" {
		return fmt.Errorf("unsupported output format %q", output)
	}

	repo, err := auditlog.Open()
	if err != nil {
		return err
	}
	defer repo.Close()

	var entries []auditlog.AuditEntry
	switch {
	case command != "":
		entries, err = repo.ListByCommand(command, limit)
	case record != "":
		entries, err = repo.ListByRecord(record, limit)
	default:
		entries, err = repo.List(limit)
	}
	if err != nil {
		return err
	}

	if output == "json" {
		if entries == nil {
			entries = []auditlog.AuditEntry{}
		}
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(entries)
	}

	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No audit entries found.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tCOMMAND\tPROVIDER\tOUTCOME\tDURATION\tRECORD\tDETAIL")
	fmt.Fprintln(w, "----\t-------\t--------\t-------\t--------\t------\t------")
	for _, entry := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			entry.Timestamp.Local().Format("2006-01-02 15:04:05"),
			entry.Command,
			orDash(entry.Provider),
			formatOutcome(entry),
			formatDuration(entry.DurationMs),
			formatRecord(entry),
			orDash(entry.Detail),
		)
	}
	w.Flush()
	return nil
}

func formatDuration(ms int64) string {
	if ms < 1000 {
		return fmt.Sprintf("%dms", ms)
	}
	d := time.Duration(ms) * time.Millisecond
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	return fmt.Sprintf("%dh", int(d.Hours()))
}

// formatOutcome appends the failed side to partial outcomes.
func formatOutcome(entry auditlog.AuditEntry) string {
	if entry.FailedSide == "" {
		return entry.Outcome
	}
	return entry.Outcome + " (" + entry.FailedSide + ")"
}

// formatRecord renders e.g. "#42 A api.example.com [alice]".
func formatRecord(entry auditlog.AuditEntry) string {
	if entry.RecordType == "" && entry.RecordID == "" && entry.RecordName == "" {
		return "-"
	}

	var parts []string
	if entry.RecordID != "" {
		parts = append(parts, "#"+entry.RecordID)
	}
	if entry.RecordType != "" {
		parts = append(parts, entry.RecordType)
	}
	if entry.RecordName != "" {
		parts = append(parts, entry.RecordName)
	}
	out := strings.Join(parts, " ")
	if entry.Owner != "" {
		out += " [" + entry.Owner + "]"
	}
	return out
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
