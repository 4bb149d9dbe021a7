package auth

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"nathanbeddoewebdev/dnsm/internal/platform/providers"

	"golang.org/x/term"

	"github.com/spf13/cobra"
)

func LoginCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login <provider>",
		Short: "Store credentials for a DNS provider",
		Long: `Store credentials for a DNS provider using the local keychain.

Single-token providers take --token. Providers with several credentials
take one --secret key=value per credential. Anything not given on the
command line is prompted for.

Examples:
  dnsm auth login cloudflare --token <token>
  dnsm auth login route53 --secret accesskeyid=AKIA... --secret secretaccesskey=...`,
		Args:         cobra.ExactArgs(1),
		RunE:         runLogin,
		SilenceUsage: true,
	}

	cmd.Flags().String("token", "", "API token for single-token providers (optional, overrides prompt)")
	cmd.Flags().StringArray("secret", nil, "credential as key=value (repeatable)")

	return cmd
}

func runLogin(cmd *cobra.Command, args []string) error {
	spec := providers.Lookup(args[0])
	if spec == nil {
		return fmt.Errorf("unknown provider %q (supported: %s)", args[0], strings.Join(specNames(), ", "))
	}

	token, _ := cmd.Flags().GetString("token")
	pairs, _ := cmd.Flags().GetStringArray("secret")

	given := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return fmt.Errorf("invalid --secret %q, expected key=value", pair)
		}
		given[strings.ToLower(strings.TrimSpace(key))] = value
	}
	if token = strings.TrimSpace(token); token != "" {
		if len(spec.Keys) != 1 {
			return fmt.Errorf("%s needs %d credentials, use --secret key=value", spec.DisplayName, len(spec.Keys))
		}
		given[spec.Keys[0].Key] = token
	}
	for key := range given {
		if !hasKey(spec, key) {
			return fmt.Errorf("%s has no credential %q", spec.DisplayName, key)
		}
	}

	values := make(map[string]string, len(spec.Keys))
	reader := bufio.NewReader(cmd.InOrStdin())
	for _, k := range spec.Keys {
		value := strings.TrimSpace(given[k.Key])
		if value == "" {
			var err error
			value, err = prompt(cmd, reader, k)
			if err != nil {
				return err
			}
		}
		if value == "" {
			return fmt.Errorf("%s cannot be empty", k.Prompt)
		}
		values[spec.KeychainKey(k)] = value
	}

	store := newStore()
	for _, k := range spec.Keys {
		key := spec.KeychainKey(k)
		if err := store.SetToken(key, values[key]); err != nil {
			return fmt.Errorf("failed to save %s: %w", k.Prompt, err)
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Saved credentials for %s\n", spec.DisplayName)
	return nil
}

func prompt(cmd *cobra.Command, reader *bufio.Reader, k providers.CredentialKey) (string, error) {
	fmt.Fprintf(cmd.OutOrStdout(), "Enter %s: ", k.Prompt)

	fd := int(os.Stdin.Fd())
	if k.Secret && cmd.InOrStdin() == os.Stdin && term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(cmd.OutOrStdout())
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}

	line, err := reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func hasKey(spec *providers.CredentialSpec, key string) bool {
	for _, k := range spec.Keys {
		if k.Key == key {
			return true
		}
	}
	return false
}

func specNames() []string {
	specs := providers.All()
	names := make([]string, len(specs))
	for i, s := range specs {
		names[i] = s.Provider
	}
	return names
}
