package record

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"nathanbeddoewebdev/dnsm/internal/database"
	"nathanbeddoewebdev/dnsm/internal/metrics"
	"nathanbeddoewebdev/dnsm/internal/records/store"
	"nathanbeddoewebdev/dnsm/internal/records/sweep"
	"nathanbeddoewebdev/dnsm/internal/util"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// SweepCommand returns the "record sweep" subcommand.
func SweepCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Remove expired records",
		Long: `Remove every record whose expiry has passed from the provider and the
store, and report records that expire soon.

With --interval the sweep repeats until interrupted. Only one sweeper may
run against a database at a time: a file lock guards SQLite and an
advisory lock guards PostgreSQL across hosts.

Examples:
  dnsm record sweep
  dnsm record sweep --interval 1h --metrics-addr :9105`,
		Args:         cobra.NoArgs,
		RunE:         runSweep,
		SilenceUsage: true,
	}

	cmd.Flags().Duration("interval", 0, "Repeat the sweep at this interval (0 runs once)")
	cmd.Flags().Int("warn-months", 1, "Report records expiring within this many months")
	cmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address while running")
	cmd.Flags().StringP("output", "o", "table", "Output format: table or json")

	return cmd
}

func runSweep(cmd *cobra.Command, args []string) error {
	interval, _ := cmd.Flags().GetDuration("interval")
	warnMonths, _ := cmd.Flags().GetInt("warn-months")
	metricsAddr, _ := cmd.Flags().GetString("metrics-addr")
	output, _ := cmd.Flags().GetString("output")
	if interval < 0 {
		return fmt.Errorf("--interval must not be negative")
	}

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	lockPath, err := sweepLockPath(cmd, s)
	if err != nil {
		return err
	}
	release, err := sweep.LockStore(cmd.Context(), s.store, lockPath)
	if err != nil {
		return err
	}
	defer release()

	opts := []sweep.Option{sweep.WithWarningMonths(warnMonths), sweep.WithLogger(log.StandardLogger())}
	if metricsAddr != "" {
		m := metrics.New()
		srv := metrics.NewServer(metricsAddr, m)
		if _, err := srv.Start(); err != nil {
			return err
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(ctx)
		}()
		opts = append(opts, sweep.WithMetrics(m))
	}
	sweeper := sweep.New(s.rec, s.store, opts...)

	if interval == 0 {
		report, err := sweeper.Sweep(cmd.Context())
		if report != nil {
			if perr := printReport(cmd, output, report); perr != nil {
				return perr
			}
		}
		if err != nil {
			return err
		}
		if len(report.Failed) > 0 {
			return fmt.Errorf("%d expired record(s) could not be removed", len(report.Failed))
		}
		return nil
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(cmd.ErrOrStderr(), "Sweeping every %s, press Ctrl+C to stop.\n", interval)
	return sweeper.Run(ctx, interval, func(r *sweep.Report) {
		_ = printReport(cmd, output, r)
	})
}

// sweepLockPath places the file lock next to the SQLite file. Remote
// stores lock in the database and never use it.
func sweepLockPath(cmd *cobra.Command, s *session) (string, error) {
	driver := util.NormalizeKey(flagOr(cmd, "store-driver", s.cfg.StoreDriver))
	dsn := flagOr(cmd, "store-dsn", s.cfg.StoreDSN)
	if (driver == "" || driver == store.DriverSQLite) && dsn != "" {
		return dsn, nil
	}
	return database.DefaultPath()
}

func printReport(cmd *cobra.Command, output string, r *sweep.Report) error {
	if output == "json" {
		return printJSON(cmd, r)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Sweep at %s: %d expired, %d removed, %d failed, %d expiring soon\n",
		r.At.UTC().Format(timeLayout), r.Checked, len(r.Removed), len(r.Failed), len(r.ExpiringSoon))
	for _, rec := range r.Removed {
		fmt.Fprintf(out, "  removed  %d %s %s (%s)\n", rec.ID, rec.Type, rec.Name, rec.Owner)
	}
	for _, f := range r.Failed {
		fmt.Fprintf(out, "  failed   %d %s %s: %s side: %v\n", f.Record.ID, f.Record.Type, f.Record.Name, f.Side, f.Err)
	}
	for _, rec := range r.ExpiringSoon {
		fmt.Fprintf(out, "  expiring %d %s %s on %s\n", rec.ID, rec.Type, rec.Name, rec.ExpiresAt.UTC().Format("2006-01-02"))
	}
	return nil
}
