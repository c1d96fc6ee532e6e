package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/gemchat/internal/markdown"
)

var (
	renderEngine string
	renderFormat string
	renderWidth  int
)

var renderCmd = &cobra.Command{
	Use:   "render [file]",
	Short: "Render Markdown the way chat replies are rendered",
	Long: `Reads Markdown from a file (or stdin) and prints it as safe HTML, as the
plain text the copy button would produce, or styled for the terminal.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			src []byte
			err error
		)
		if len(args) == 1 && args[0] != "-" {
			src, err = os.ReadFile(args[0])
		} else {
			src, err = io.ReadAll(cmd.InOrStdin())
		}
		if err != nil {
			return fmt.Errorf("reading input: %w", err)
		}

		out, err := renderText(string(src), renderEngine, renderFormat, renderWidth)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), out)
		return nil
	},
}

// renderText converts text into one of the output formats html, text or
// terminal.
func renderText(text, engineName, format string, width int) (string, error) {
	if format == "terminal" {
		return markdown.Terminal(text, width)
	}

	engine, err := markdown.NewEngine(engineName)
	if err != nil {
		return "", err
	}
	switch format {
	case "html":
		return engine.Render(text), nil
	case "text":
		return markdown.PlainText(engine.Render(text)), nil
	default:
		return "", fmt.Errorf("unknown format %q: must be html, text or terminal", format)
	}
}

func init() {
	renderCmd.Flags().StringVar(&renderEngine, "engine", markdown.EngineSimple, "renderer: simple or commonmark")
	renderCmd.Flags().StringVar(&renderFormat, "format", "html", "output: html, text or terminal")
	renderCmd.Flags().IntVar(&renderWidth, "width", 80, "wrap width for terminal output")
	rootCmd.AddCommand(renderCmd)
}
