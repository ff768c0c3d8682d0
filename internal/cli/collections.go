package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"ragingest/internal/report"
)

var collectionsCounts bool

var collectionsCmd = &cobra.Command{
	Use:   "collections",
	Short: "List collections in the vector store",
	Args:  cobra.NoArgs,
	RunE:  runCollections,
}

func init() {
	collectionsCmd.Flags().BoolVar(&collectionsCounts, "counts", false, "also show the number of points per collection")
	rootCmd.AddCommand(collectionsCmd)
}

func runCollections(cmd *cobra.Command, _ []string) error {
	rep := report.NewConsole(cmd.OutOrStdout())
	s, err := openSession(cmd, rep, "")
	if err != nil {
		return err
	}
	_, _, err = s.pipeline.Collections(cmd.Context(), collectionsCounts)
	if err != nil {
		rep.Failed(err)
		err = reported{err}
	}
	return errors.Join(err, s.close())
}
