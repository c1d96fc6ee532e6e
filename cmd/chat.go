package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/gemchat/internal/client"
	"github.com/ziadkadry99/gemchat/internal/logging"
	"github.com/ziadkadry99/gemchat/internal/markdown"
	"github.com/ziadkadry99/gemchat/internal/presenter"
	"github.com/ziadkadry99/gemchat/internal/uploads"
)

var (
	chatServerURL string
	chatPretty    bool
	chatWidth     int
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the model in the terminal",
	Long: `Starts an interactive terminal session. Each line is sent as a prompt.
Attach an image with "/image <path> [prompt]"; quit with "/quit" or Ctrl-D.

Without --server the model is called directly using the local config.
With --server the session talks to a running gemchat server instead.`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVar(&chatServerURL, "server", "", "URL of a running gemchat server (e.g. http://localhost:3000)")
	chatCmd.Flags().BoolVar(&chatPretty, "pretty", false, "render replies with terminal Markdown styling instead of typing them")
	chatCmd.Flags().IntVar(&chatWidth, "width", 80, "wrap width for --pretty")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	// The terminal belongs to the conversation; only warnings are logged.
	if !verbose {
		cfg.Log.Level = "warn"
	}
	logger, closeLog, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer closeLog()

	var backend presenter.Backend
	if chatServerURL != "" {
		backend = client.New(chatServerURL)
	} else {
		provider, err := createLLMProviderFromConfig(cfg, logger)
		if err != nil {
			return fmt.Errorf("creating LLM provider: %w", err)
		}
		store, err := newUploadStore(cfg, logger)
		if err != nil {
			return err
		}
		backend = newChatService(cfg, provider, store, nil, logger).Backend()
	}

	engine, err := markdown.NewEngine(cfg.Render.Engine)
	if err != nil {
		return err
	}
	display := newTerminalDisplay(cmd.OutOrStdout(), cmd.ErrOrStderr(), chatPretty, chatWidth)
	p := presenter.New(display, backend, presenter.Options{
		Engine: engine,
		Typing: typingFromConfig(cfg),
		Logger: logging.Discard(),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	return chatLoop(ctx, cmd.InOrStdin(), cmd.ErrOrStderr(), p)
}

// chatLoop reads prompts until EOF, "/quit" or ctx is cancelled. A cancel
// while a reply is typing stops the animation before returning.
func chatLoop(ctx context.Context, in io.Reader, errOut io.Writer, p *presenter.Presenter) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	errc := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		errc <- scanner.Err()
	}()

	fmt.Fprint(errOut, "> ")
	for {
		var line string
		select {
		case <-ctx.Done():
			return nil
		case l, ok := <-lines:
			if !ok {
				select {
				case err := <-errc:
					return err
				default:
					return nil
				}
			}
			line = strings.TrimSpace(l)
		}
		if line == "/quit" || line == "/exit" {
			return nil
		}

		prompt, file, err := parseChatLine(line)
		if err != nil {
			fmt.Fprintf(errOut, "%v\n> ", err)
			continue
		}

		sub := p.Submit(ctx, prompt, file)
		if sub.Animation != nil {
			select {
			case <-sub.Animation.Done():
			case <-ctx.Done():
				sub.Animation.Cancel()
				sub.Animation.Wait()
			}
		}
		if ctx.Err() != nil {
			return nil
		}
		fmt.Fprint(errOut, "> ")
	}
}

// parseChatLine splits "/image <path> [prompt]" into an attachment and a
// prompt. Other lines are plain prompts.
func parseChatLine(line string) (string, *presenter.UploadedFile, error) {
	rest, ok := strings.CutPrefix(line, "/image ")
	if !ok {
		return line, nil, nil
	}
	path, prompt, _ := strings.Cut(strings.TrimSpace(rest), " ")
	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil, fmt.Errorf("reading image: %w", err)
	}
	return strings.TrimSpace(prompt), &presenter.UploadedFile{
		Name:     filepath.Base(path),
		MIMEType: uploads.MIMEType(path),
		Data:     data,
	}, nil
}

// terminalDisplay prints presenter events as a line-oriented transcript.
// Replies are typed rune by rune unless pretty is set, in which case each
// finished reply is rendered once with terminal styling.
type terminalDisplay struct {
	out    io.Writer
	errOut io.Writer
	pretty bool
	width  int

	mu      sync.Mutex
	printed map[string]int // runes of Raw already written, per message
}

func newTerminalDisplay(out, errOut io.Writer, pretty bool, width int) *terminalDisplay {
	return &terminalDisplay{
		out:     out,
		errOut:  errOut,
		pretty:  pretty,
		width:   width,
		printed: make(map[string]int),
	}
}

func (d *terminalDisplay) Show(e presenter.Event) {
	d.mu.Lock()
	defer d.mu.Unlock()

	m := e.Message
	switch e.Kind {
	case presenter.EventAppend:
		switch m.Sender {
		case presenter.SenderLoading:
			fmt.Fprint(d.errOut, "…")
		case presenter.SenderError:
			fmt.Fprintln(d.errOut, m.Raw)
		case presenter.SenderImage:
			fmt.Fprintf(d.out, "[image: %s]\n", m.ImageURL)
		case presenter.SenderAI:
			if !m.InProgress {
				d.finish(m)
			}
		}
	case presenter.EventRemove:
		if m.Sender == presenter.SenderLoading {
			fmt.Fprint(d.errOut, "\b \b")
		}
	case presenter.EventUpdate:
		if m.Sender != presenter.SenderAI {
			return
		}
		if m.InProgress {
			if !d.pretty && e.Patch != nil {
				fmt.Fprint(d.out, e.Patch.Delta)
				d.printed[m.ID] += utf8.RuneCountInString(e.Patch.Delta)
			}
			return
		}
		d.finish(m)
	}
}

// typeRest writes the part of Raw not yet typed.
func (d *terminalDisplay) typeRest(m presenter.Message) {
	runes := []rune(m.Raw)
	n := d.printed[m.ID]
	if len(runes) > n {
		fmt.Fprint(d.out, string(runes[n:]))
		d.printed[m.ID] = len(runes)
	}
}

func (d *terminalDisplay) finish(m presenter.Message) {
	defer delete(d.printed, m.ID)
	if d.pretty {
		out, err := markdown.Terminal(m.Raw, d.width)
		if err == nil {
			fmt.Fprint(d.out, out)
			return
		}
	}
	d.typeRest(m)
	fmt.Fprintln(d.out)
}
