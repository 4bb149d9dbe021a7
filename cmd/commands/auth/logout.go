package auth

import (
	"errors"
	"fmt"
	"strings"

	"nathanbeddoewebdev/dnsm/internal/platform/providers"
	"nathanbeddoewebdev/dnsm/internal/services/auth"

	"github.com/spf13/cobra"
)

func LogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout <provider>",
		Short: "Remove stored credentials for a DNS provider",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			spec := providers.Lookup(args[0])
			if spec == nil {
				return fmt.Errorf("unknown provider %q (supported: %s)", args[0], strings.Join(specNames(), ", "))
			}

			store := newStore()
			removed := 0
			for _, k := range spec.Keys {
				err := store.DeleteToken(spec.KeychainKey(k))
				switch {
				case err == nil:
					removed++
				case errors.Is(err, auth.ErrTokenNotFound):
				default:
					return fmt.Errorf("failed to remove %s: %w", k.Prompt, err)
				}
			}

			if removed == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No credentials stored for %s\n", spec.DisplayName)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed credentials for %s\n", spec.DisplayName)
			return nil
		},
		SilenceUsage: true,
	}
}
