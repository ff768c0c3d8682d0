package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"ragingest/internal/report"
)

var ensureCollection string

var ensureCmd = &cobra.Command{
	Use:   "ensure",
	Short: "Create the configured collection if it does not exist",
	Long: `Creates the collection with the configured dimension and distance. An
existing collection is left untouched; its geometry is not compared.`,
	Args: cobra.NoArgs,
	RunE: runEnsure,
}

func init() {
	ensureCmd.Flags().StringVarP(&ensureCollection, "collection", "c", "", "collection to create (overrides config)")
	rootCmd.AddCommand(ensureCmd)
}

func runEnsure(cmd *cobra.Command, _ []string) error {
	rep := report.NewConsole(cmd.OutOrStdout())
	s, err := openSession(cmd, rep, ensureCollection)
	if err != nil {
		return err
	}
	_, err = s.pipeline.Ensure(cmd.Context())
	if err != nil {
		rep.Failed(err)
		err = reported{err}
	}
	return errors.Join(err, s.close())
}
