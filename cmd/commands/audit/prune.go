package audit

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"nathanbeddoewebdev/dnsm/internal/auditlog"

	"github.com/spf13/cobra"
)

func PruneCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete audit entries older than a duration",
		Long: `Delete audit entries older than a duration. Durations accept d (days)
and w (weeks) on top of Go durations.

Examples:
  dnsm audit prune --older-than 26w
  dnsm audit prune --older-than 30d --dry-run
  dnsm audit prune --older-than 72h`,
		RunE:         runPrune,
		SilenceUsage: true,
	}

	cmd.Flags().String("older-than", "", "Remove entries older than this duration (e.g. 26w, 30d, 72h)")
	cmd.Flags().Bool("dry-run", false, "Only report how many entries would be removed")
	cmd.MarkFlagRequired("older-than")

	return cmd
}

func runPrune(cmd *cobra.Command, args []string) error {
	raw, _ := cmd.Flags().GetString("older-than")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	olderThan, err := parseDuration(strings.TrimSpace(raw))
	if err != nil {
		return err
	}

	repo, err := auditlog.Open()
	if err != nil {
		return err
	}
	defer repo.Close()

	if dryRun {
		n, err := repo.CountOlderThan(olderThan)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Would remove %d audit %s.\n", n, entries(n))
		return nil
	}

	removed, err := repo.Prune(olderThan)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed %d audit %s.\n", removed, entries(removed))
	return nil
}

func entries(n int64) string {
	if n == 1 {
		return "entry"
	}
	return "entries"
}

// parseDuration extends time.ParseDuration with whole days and weeks.
func parseDuration(input string) (time.Duration, error) {
	if input == "" {
		return 0, fmt.Errorf("--older-than is required")
	}

	units := map[string]time.Duration{"d": 24 * time.Hour, "w": 7 * 24 * time.Hour}
	for suffix, unit := range units {
		num, ok := strings.CutSuffix(input, suffix)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(num)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q", input)
		}
		if n < 0 {
			return 0, fmt.Errorf("duration must be positive")
		}
		return time.Duration(n) * unit, nil
	}

	d, err := time.ParseDuration(input)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", input)
	}
	if d < 0 {
		return 0, fmt.Errorf("duration must be positive")
	}
	return d, nil
}
