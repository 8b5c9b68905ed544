package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/soyeahso/ai4cs/internal/store"
)

func newJournalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Inspect the consultation audit journal",
	}

	cmd.AddCommand(newJournalListCmd())
	cmd.AddCommand(newJournalShowCmd())
	cmd.AddCommand(newJournalSearchCmd())
	return cmd
}

// openJournal opens the configured journal database for reading.
func openJournal() (*store.Journal, func() error, error) {
	c, err := loadedConfig()
	if err != nil {
		return nil, nil, err
	}
	db, err := store.Open(paths.JournalPath(c.Journal), log)
	if err != nil {
		return nil, nil, err
	}
	return store.NewJournal(db), db.Close, nil
}

func newJournalListCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent consultations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			j, closeDB, err := openJournal()
			if err != nil {
				return err
			}
			defer closeDB()

			list, err := j.RecentConsultations(limit)
			if err != nil {
				return err
			}
			if len(list) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No consultations recorded.")
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "SESSION\tSTEP\tANSWERS\tUPDATED\tENDED")
			for _, c := range list {
				ended := "-"
				if c.EndedAt != nil {
					ended = c.EndReason
				}
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", c.ID, c.Step, c.Answers, c.UpdatedAt.Local().Format(time.DateTime), ended)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of consultations")
	return cmd
}

func newJournalShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <session-id>",
		Short: "Show one consultation and its exchanges",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			j, closeDB, err := openJournal()
			if err != nil {
				return err
			}
			defer closeDB()

			c, err := j.Consultation(args[0])
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("no consultation %q in the journal", args[0])
			}
			if err != nil {
				return err
			}
			exchanges, err := j.Exchanges(c.ID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Session:  %s\n", c.ID)
			fmt.Fprintf(out, "Started:  %s\n", c.CreatedAt.Local().Format(time.DateTime))
			fmt.Fprintf(out, "Step:     %s (%d answers)\n", c.Step, c.Answers)
			if c.EndedAt != nil {
				fmt.Fprintf(out, "Ended:    %s (%s)\n", c.EndedAt.Local().Format(time.DateTime), c.EndReason)
			}
			fmt.Fprintf(out, "\n%s\n", c.FirstQuestion)
			for _, ex := range exchanges {
				printExchange(out, ex)
			}
			return nil
		},
	}
}

func newJournalSearchCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Full-text search over answers and replies",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			j, closeDB, err := openJournal()
			if err != nil {
				return err
			}
			defer closeDB()

			hits, err := j.Search(strings.Join(args, " "), limit)
			if err != nil {
				return err
			}
			if len(hits) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No matches.")
				return nil
			}
			for _, ex := range hits {
				fmt.Fprintf(cmd.OutOrStdout(), "[%s]", ex.SessionID)
				printExchange(cmd.OutOrStdout(), ex)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of matches")
	return cmd
}

func printExchange(out io.Writer, ex store.Exchange) {
	if ex.ErrorCode != "" {
		fmt.Fprintf(out, "\n> %s\n  failed: %s (%s)\n", ex.Answer, ex.ErrorCode, ex.Error)
		return
	}
	fmt.Fprintf(out, "\n#%d > %s\n%s\n", ex.Seq, ex.Answer, ex.Reply)
}
