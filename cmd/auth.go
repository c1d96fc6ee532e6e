package cmd

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/gemchat/internal/auth"
	"github.com/ziadkadry99/gemchat/internal/config"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage stored provider API keys",
}

var authSetCmd = &cobra.Command{
	Use:   "set <provider>",
	Short: "Store an API key for google or openai",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		provider, err := keyedProvider(args[0])
		if err != nil {
			return err
		}
		prompt := promptui.Prompt{
			Label: fmt.Sprintf("%s API key", provider),
			Mask:  '*',
			Validate: func(s string) error {
				if strings.TrimSpace(s) == "" {
					return fmt.Errorf("key must not be empty")
				}
				return nil
			},
		}
		key, err := prompt.Run()
		if err != nil {
			return err
		}
		if err := auth.StoreAPIKey(provider, strings.TrimSpace(key)); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Stored %s API key.\n", provider)
		return nil
	},
}

var authRemoveCmd = &cobra.Command{
	Use:   "remove <provider>",
	Short: "Delete a stored API key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		provider, err := keyedProvider(args[0])
		if err != nil {
			return err
		}
		if err := auth.StoreAPIKey(provider, ""); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %s API key.\n", provider)
		return nil
	},
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which providers have a stored key",
	RunE: func(cmd *cobra.Command, args []string) error {
		creds, err := auth.Load()
		if err != nil {
			return err
		}
		path, err := auth.CredentialPath()
		if err != nil {
			return err
		}
		printAuthStatus(cmd.OutOrStdout(), path, creds)
		return nil
	},
}

func init() {
	authCmd.AddCommand(authSetCmd, authRemoveCmd, authStatusCmd)
	rootCmd.AddCommand(authCmd)
}

// keyedProvider accepts only providers that authenticate with an API key.
func keyedProvider(name string) (string, error) {
	p := config.ProviderType(strings.ToLower(name))
	if len(config.APIKeyEnvVars(p)) == 0 {
		return "", fmt.Errorf("unknown provider %q: must be google or openai", name)
	}
	return string(p), nil
}

func printAuthStatus(w io.Writer, path string, creds *auth.Credentials) {
	fmt.Fprintf(w, "Credentials file: %s\n", path)
	if len(creds.APIKeys) == 0 {
		fmt.Fprintln(w, "No stored keys.")
		return
	}
	providers := make([]string, 0, len(creds.APIKeys))
	for p := range creds.APIKeys {
		providers = append(providers, p)
	}
	sort.Strings(providers)
	for _, p := range providers {
		fmt.Fprintf(w, "  %-8s %s\n", p, maskKey(creds.APIKeys[p]))
	}
}

func maskKey(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", 4) + key[len(key)-4:]
}
