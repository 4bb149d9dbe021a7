package auth

import (
	"nathanbeddoewebdev/dnsm/internal/services/auth"

	"github.com/spf13/cobra"
)

// newStore is replaced in tests.
var newStore = auth.DefaultStore

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage credentials for DNS providers",
		Long: `Manage credentials for DNS providers.

Use this command group to store API tokens and access keys in the local keychain.`,
	}

	cmd.AddCommand(LoginCommand())
	cmd.AddCommand(LogoutCommand())
	cmd.AddCommand(StatusCommand())

	return cmd
}
