package auth

import (
	"errors"
	"fmt"

	"nathanbeddoewebdev/dnsm/internal/platform/providers"
	"nathanbeddoewebdev/dnsm/internal/services/auth"

	"github.com/spf13/cobra"
)

func StatusCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show credential status for providers",
		Long: `Show which providers have all of their credentials stored.

Example:
  dnsm auth status`,
		RunE: func(cmd *cobra.Command, args []string) error {
			store := newStore()

			for _, spec := range providers.All() {
				missing := 0
				var failure error
				for _, k := range spec.Keys {
					_, err := store.GetToken(spec.KeychainKey(k))
					switch {
					case err == nil:
					case errors.Is(err, auth.ErrTokenNotFound):
						missing++
					default:
						failure = err
					}
				}

				switch {
				case failure != nil:
					fmt.Fprintf(cmd.OutOrStdout(), "%s: error (%v)\n", spec.Provider, failure)
				case missing == 0:
					fmt.Fprintf(cmd.OutOrStdout(), "%s: logged in\n", spec.Provider)
				case missing < len(spec.Keys):
					fmt.Fprintf(cmd.OutOrStdout(), "%s: incomplete (%d of %d credentials missing)\n", spec.Provider, missing, len(spec.Keys))
				default:
					fmt.Fprintf(cmd.OutOrStdout(), "%s: not logged in\n", spec.Provider)
				}
			}
			return nil
		},
		SilenceUsage: true,
	}

	return cmd
}
