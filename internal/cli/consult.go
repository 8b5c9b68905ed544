package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/glamour"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/tcnksm/go-input"

	"github.com/soyeahso/ai4cs/internal/lifecycle"
)

const quitCommand = "/quit"

func newConsultCmd() *cobra.Command {
	var plain bool

	cmd := &cobra.Command{
		Use:   "consult",
		Short: "Run a consultation in the terminal",
		Long:  "Start a business strategy consultation and answer its questions interactively. Type " + quitCommand + " to end it.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadedConfig()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
			defer stop()

			st, err := buildStack(ctx, cfg, paths.JournalPath(cfg.Journal), log)
			if err != nil {
				return err
			}
			defer st.Close()

			out := cmd.OutOrStdout()
			render := newRenderer(out, plain)
			ui := &input.UI{Writer: out, Reader: cmd.InOrStdin()}

			return runConsultation(ctx, st, ui, out, render)
		},
	}

	cmd.Flags().BoolVar(&plain, "plain", false, "print replies without markdown rendering")
	return cmd
}

// asker reads one answer from the user.
type asker interface {
	Ask(query string, opts *input.Options) (string, error)
}

func runConsultation(ctx context.Context, st *stack, ui asker, out io.Writer, render func(string) string) error {
	started, err := st.service.StartConsultation(ctx)
	if err != nil {
		return fmt.Errorf("starting consultation: %w", err)
	}
	id := started.SessionID
	fmt.Fprintln(out, render(started.Question))

	for {
		answer, err := ui.Ask("Your answer ("+quitCommand+" to finish)", &input.Options{
			HideOrder: true,
		})
		if errors.Is(err, input.ErrInterrupted) || errors.Is(err, io.EOF) {
			st.sessions.Delete(id)
			return nil
		}
		if err != nil {
			return err
		}
		if strings.TrimSpace(answer) == quitCommand {
			st.sessions.Delete(id)
			fmt.Fprintln(out, "Consultation ended.")
			return nil
		}

		next, err := st.service.Advance(ctx, lifecycle.AdvanceRequest{SessionID: &id, Answer: &answer})
		if err != nil {
			le := lifecycle.Classify(err)
			fmt.Fprintf(out, "error: %s\n", le.Message)
			if le.Code == lifecycle.CodeSessionNotFound {
				return le
			}
			continue
		}
		fmt.Fprintln(out, render(next.Question))
	}
}

// newRenderer returns a markdown renderer for terminals and a passthrough
// for pipes, files and --plain.
func newRenderer(out io.Writer, plain bool) func(string) string {
	passthrough := func(s string) string { return s }
	if plain {
		return passthrough
	}
	f, ok := out.(*os.File)
	if !ok || !isatty.IsTerminal(f.Fd()) {
		return passthrough
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		log.Debug().Err(err).Msg("markdown renderer unavailable")
		return passthrough
	}
	return func(s string) string {
		styled, err := r.Render(s)
		if err != nil {
			return s
		}
		return styled
	}
}
