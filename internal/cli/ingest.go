package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"ragingest/internal/report"
)

var (
	ingestCollection string
	ingestTUI        bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [file]",
	Short: "Embed a document and upsert it into a collection",
	Long: `Reads the document, splits it into segments, embeds them and upserts one
point per segment. The collection is created with the configured dimension
and distance if it does not exist. Point IDs are segment positions starting
at 1, so ingesting the same document again overwrites the same points.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVarP(&ingestCollection, "collection", "c", "", "target collection (overrides config)")
	ingestCmd.Flags().BoolVar(&ingestTUI, "tui", false, "show an interactive progress view")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingestTUI {
		return runIngestTUI(cmd, args[0])
	}

	s, err := openSession(cmd, report.NewConsole(cmd.OutOrStdout()), ingestCollection)
	if err != nil {
		return err
	}
	_, runErr := s.pipeline.Run(cmd.Context(), args[0])
	return errors.Join(runReported(runErr), s.close())
}

func runIngestTUI(cmd *cobra.Command, path string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	title := fmt.Sprintf("ragingest: %s", filepath.Base(path))
	prog := tea.NewProgram(report.NewProgress(title, cancel),
		tea.WithContext(ctx), tea.WithOutput(cmd.OutOrStdout()), tea.WithInput(cmd.InOrStdin()))
	rep := report.NewTUIReporter(prog)

	done := make(chan error, 1)
	go func() {
		s, err := openSession(cmd, rep, ingestCollection)
		if err != nil {
			done <- err
			return
		}
		_, err = s.pipeline.Run(ctx, path)
		done <- errors.Join(runReported(err), s.close())
	}()

	final, uiErr := prog.Run()
	runErr := <-done
	if uiErr != nil && !errors.Is(uiErr, tea.ErrProgramKilled) {
		return errors.Join(runErr, uiErr)
	}
	if m, ok := final.(report.Progress); ok && m.Canceled() && runErr == nil {
		return context.Canceled
	}
	return runErr
}
