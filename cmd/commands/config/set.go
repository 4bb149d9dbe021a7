package config

import (
	"fmt"
	"strings"

	"nathanbeddoewebdev/dnsm/internal/config"
	"nathanbeddoewebdev/dnsm/internal/records/providers"
	"nathanbeddoewebdev/dnsm/internal/swrcache"
	"nathanbeddoewebdev/dnsm/internal/util"

	"github.com/spf13/cobra"
)

// SetCommand returns the "config set" command.
func SetCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Long: "Set a persistent configuration value. An empty value clears the key.\n\n" +
			config.KeysHelp() +
			"\nExamples:\n" +
			"  dnsm config set dns-provider cloudflare\n" +
			"  dnsm config set root-domain example.com\n" +
			"  dnsm config set renewal-months 3",
		Args:         cobra.ExactArgs(2),
		RunE:         runSet,
		SilenceUsage: true,
	}

	return cmd
}

// validators maps key names to optional pre-save validation functions.
// Keys not present in this map have no extra validation.
var validators = map[string]func(value string) error{
	"dns-provider": validateProvider,
}

// zoneKeys change which zone records resolve to, so cached zone ids are
// dropped when they change.
var zoneKeys = map[string]bool{
	"dns-provider": true,
	"root-domain":  true,
}

// zoneCache is replaced in tests.
var zoneCache = swrcache.NewDefault

func runSet(cmd *cobra.Command, args []string) error {
	key := util.NormalizeKey(args[0])
	value := args[1]

	spec := config.Lookup(key)
	if spec == nil {
		return fmt.Errorf("unknown configuration key %q (valid: %s)", args[0], strings.Join(config.KeyNames(), ", "))
	}

	if validate, ok := validators[spec.Name]; ok && strings.TrimSpace(value) != "" {
		if err := validate(value); err != nil {
			return err
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := spec.Set(cfg, value); err != nil {
		return err
	}
	if err := cfg.Save(); err != nil {
		return err
	}

	if zoneKeys[spec.Name] {
		if err := zoneCache().InvalidatePrefix(providers.ZoneCachePrefix); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Warning: failed to clear cached zones: %v\n", err)
		}
	}

	stored := spec.Get(cfg)
	if stored == "" {
		fmt.Fprintf(cmd.OutOrStdout(), "%s cleared\n", spec.Name)
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s set to %q\n", spec.Name, stored)
	return nil
}

// validateProvider checks that the given name is a registered provider.
func validateProvider(name string) error {
	normalized := util.NormalizeKey(name)
	known := providers.List()
	for _, p := range known {
		if p == normalized {
			return nil
		}
	}
	return fmt.Errorf("unknown provider %q (registered: %s)", name, strings.Join(known, ", "))
}
