package cmd

import (
	"context"
	"os"
	"time"

	"nathanbeddoewebdev/dnsm/cmd/commands/audit"
	"nathanbeddoewebdev/dnsm/cmd/commands/auth"
	cfgcmd "nathanbeddoewebdev/dnsm/cmd/commands/config"
	"nathanbeddoewebdev/dnsm/cmd/commands/record"
	"nathanbeddoewebdev/dnsm/internal/auditlog"
	"nathanbeddoewebdev/dnsm/internal/logging"
	"nathanbeddoewebdev/dnsm/internal/records/providers"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands.
func rootCmd() *cobra.Command {
	var cmd = &cobra.Command{
		Use:   "dnsm",
		Short: "A CLI tool for managing owned DNS records across providers",
		Long: `dnsm manages DNS records on behalf of their owners. Every record is
written to the DNS provider and to a local record store at the same time,
and expires six months after it was last created, updated or renewed.

Supported providers: Cloudflare, Route 53, Alibaba Cloud DNS, DNSPod.

Quick start:
  dnsm auth login cloudflare                 # Store your API token
  dnsm config set dns-provider cloudflare    # Pick a default provider
  dnsm record create --owner alice --type A --name web.example.com --value 203.0.113.7
  dnsm record list                           # Browse records
  dnsm record sweep                          # Remove expired records`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, _ := cmd.Flags().GetString("log-level")
			file, _ := cmd.Flags().GetString("log-file")
			return logging.InitLog(level, file)
		},
	}

	cmd.PersistentFlags().String("log-level", logging.DefaultLevel, "Log level: trace, debug, info, warn, error")
	cmd.PersistentFlags().String("log-file", logging.ConsoleOutput, "Log destination: console or a file path")

	cmd.AddCommand(auth.NewCommand())
	cmd.AddCommand(cfgcmd.NewCommand())
	cmd.AddCommand(record.NewCommand())
	cmd.AddCommand(audit.NewCommand())

	return cmd
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	providers.RegisterAll()

	var root = rootCmd()
	start := time.Now()
	executed, err := root.ExecuteC()
	writeAudit(executed, os.Args[1:], start, err)
	if err != nil {
		os.Exit(1)
	}
}

// writeAudit saves an audit entry for commands marked with
// auditlog.Annotation. Failures to write the entry are logged and
// otherwise ignored.
func writeAudit(cmd *cobra.Command, args []string, start time.Time, runErr error) {
	if cmd == nil || !audited(cmd) {
		return
	}

	repo, err := auditlog.Open()
	if err != nil {
		log.WithError(err).Debug("audit log unavailable")
		return
	}
	defer repo.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	entry := auditlog.NewEntry(ctx, cmd.CommandPath(), args, start, runErr)
	if err := repo.Save(entry); err != nil {
		log.WithError(err).Debug("failed to write audit entry")
	}
}

func audited(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations[auditlog.Annotation] == "true" {
			return true
		}
	}
	return false
}
