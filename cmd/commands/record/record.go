// Package record implements the "record" command group: the lifecycle of
// owned DNS records across the provider and the record store.
package record

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"nathanbeddoewebdev/dnsm/internal/auditlog"
	"nathanbeddoewebdev/dnsm/internal/config"
	"nathanbeddoewebdev/dnsm/internal/records/domain"
	"nathanbeddoewebdev/dnsm/internal/records/providers"
	"nathanbeddoewebdev/dnsm/internal/records/reconciler"
	"nathanbeddoewebdev/dnsm/internal/records/store"
	"nathanbeddoewebdev/dnsm/internal/retry"
	"nathanbeddoewebdev/dnsm/internal/services/auth"
	"nathanbeddoewebdev/dnsm/internal/swrcache"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewCommand returns the "record" command with all subcommands attached.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Manage owned DNS records",
		Long: `Create, update, delete and inspect DNS records that are kept in sync
between the DNS provider and the local record store.

Records expire six months after they were last created, updated or renewed.
Expired records are removed by 'dnsm record sweep'.`,
		Annotations: map[string]string{auditlog.Annotation: "true"},
	}

	cmd.AddCommand(CreateCommand())
	cmd.AddCommand(UpdateCommand())
	cmd.AddCommand(DeleteCommand())
	cmd.AddCommand(ShowCommand())
	cmd.AddCommand(ListCommand())
	cmd.AddCommand(RenewCommand())
	cmd.AddCommand(ExpireCommand())
	cmd.AddCommand(StatusCommand())
	cmd.AddCommand(SweepCommand())

	cmd.PersistentFlags().String("provider", "", "DNS provider to use (overrides dns-provider)")
	cmd.PersistentFlags().String("store-driver", "", "Record store driver: sqlite or postgres (overrides store-driver)")
	cmd.PersistentFlags().String("store-dsn", "", "Record store DSN or SQLite path (overrides store-dsn)")

	return cmd
}

// session holds what a record command needs: config, the open store and,
// for commands that touch the provider, the reconciler.
type session struct {
	cfg          *config.Config
	store        domain.RecordStore
	providerName string
	rec          *reconciler.Reconciler
}

func (s *session) Close() error {
	return s.store.Close()
}

// openStore loads config and opens the record store.
func openStore(cmd *cobra.Command) (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	driver := flagOr(cmd, "store-driver", cfg.StoreDriver)
	dsn := flagOr(cmd, "store-dsn", cfg.StoreDSN)
	st, err := store.Open(cmd.Context(), driver, dsn)
	if err != nil {
		return nil, err
	}
	return &session{cfg: cfg, store: st}, nil
}

// openSession opens the store and builds a reconciler over the selected
// provider.
func openSession(cmd *cobra.Command) (*session, error) {
	s, err := openStore(cmd)
	if err != nil {
		return nil, err
	}

	name := flagOr(cmd, "provider", s.cfg.DNSProvider)
	if name == "" {
		s.Close()
		return nil, fmt.Errorf("no DNS provider specified: use --provider flag or set a default with 'dnsm config set dns-provider <name>'")
	}

	opts := providers.Options{
		Zone:         s.cfg.RootDomain,
		HostedZoneID: s.cfg.HostedZoneID,
		Region:       s.cfg.AWSRegion,
	}
	if os.Getenv("DNSM_DISABLE_ZONE_CACHE") != "1" {
		opts.Cache = swrcache.NewDefault()
	}

	provider, err := providers.Get(name, auth.DefaultStore(), opts)
	if err != nil {
		s.Close()
		return nil, err
	}

	logger := log.StandardLogger()
	s.providerName = name
	s.rec = reconciler.New(
		providers.WithRetry(provider, retry.DefaultConfig(), logger),
		s.store,
		reconciler.WithRenewalMonths(s.cfg.RenewalMonths),
		reconciler.WithLogger(logger),
	)
	cmd.SetContext(auditlog.WithMetadata(cmd.Context(), auditlog.Metadata{Provider: name}))
	return s, nil
}

// find loads the stored record with the given id.
func (s *session) find(ctx context.Context, id int64) (*domain.PersistedRecord, error) {
	rec, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("record %d: %w", id, domain.ErrNotFound)
	}
	return rec, nil
}

func flagOr(cmd *cobra.Command, name, fallback string) string {
	if f := cmd.Flag(name); f != nil && f.Changed {
		return f.Value.String()
	}
	return fallback
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid record id %q: must be a positive integer", arg)
	}
	return id, nil
}

// annotate attaches the record to the command context for the audit log.
func annotate(cmd *cobra.Command, rec domain.Record) {
	meta := auditlog.Metadata{
		Owner:      rec.Owner,
		RecordType: string(rec.Type),
		RecordName: rec.Name,
	}
	if rec.ID > 0 {
		meta.RecordID = strconv.FormatInt(rec.ID, 10)
	}
	cmd.SetContext(auditlog.WithMetadata(cmd.Context(), meta))
}

// explain adds operator guidance for partial failures. The provider and
// the store are not rolled back, so the user has to know which side to fix.
func explain(cmd *cobra.Command, err error) error {
	var pf *domain.PartialFailureError
	if !errors.As(err, &pf) {
		return err
	}
	switch pf.Side {
	case domain.SideProvider:
		fmt.Fprintln(cmd.ErrOrStderr(), "Warning: the record store was updated but the provider was not. The two now disagree.")
	case domain.SideStore:
		fmt.Fprintln(cmd.ErrOrStderr(), "Warning: the provider was updated but the record store was not. The two now disagree.")
	case domain.SideBoth:
		fmt.Fprintln(cmd.ErrOrStderr(), "Warning: both the provider and the record store failed.")
	}
	return err
}
