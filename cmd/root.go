package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/gemchat/internal/config"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "gemchat",
	Short: "Chat with a generative AI model from the browser or the terminal",
	Long: `gemchat relays text prompts and images to a hosted generative AI model
(Gemini by default) and shows the replies with a typing animation and safe
Markdown rendering. Run "gemchat server" for the web UI and HTTP API, or
"gemchat chat" for a terminal session.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", config.DefaultPath, "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
