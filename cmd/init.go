package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/gemchat/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize gemchat configuration with an interactive wizard",
	Long:  `Runs an interactive wizard to choose the model provider, port and rendering options, and writes a .gemchat.yml file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.RunWizard(cfgFile)
		if err != nil {
			return err
		}
		if cfg.ResolveAPIKey() == "" {
			if vars := config.APIKeyEnvVars(cfg.LLM.Provider); len(vars) > 0 {
				fmt.Fprintf(os.Stderr, "Note: set %s (or put it in .env) before starting gemchat.\n", vars[0])
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
