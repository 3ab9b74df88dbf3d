package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Ramsey-B/clover/pkg/models"
)

func newRootCommand() *cobra.Command {
	var metricsAddr string

	root := &cobra.Command{
		Use:           "clover",
		Short:         "Player deduplication: match, import and merge players",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while the command runs")

	root.AddCommand(
		newImportCommand(&metricsAddr),
		newMatchCommand(&metricsAddr),
		newMergeCommand(&metricsAddr),
		newMigrateCommand(&metricsAddr),
	)
	return root
}

func newImportCommand(metricsAddr *string) *cobra.Command {
	var teamID int64
	var file string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Bulk import players for a team from a JSON array of rows",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var rows []models.ImportRow
			if err := readJSON(file, &rows); err != nil {
				return err
			}

			a, err := newApp(cmd.Context(), *metricsAddr)
			if err != nil {
				return err
			}
			defer a.close()

			importer, err := a.importer()
			if err != nil {
				return err
			}

			result, err := importer.BulkImportForTeam(cmd.Context(), teamID, rows)
			if result != nil {
				if werr := writeJSON(cmd.OutOrStdout(), result); werr != nil {
					return werr
				}
			}
			return err
		},
	}
	cmd.Flags().Int64Var(&teamID, "team", 0, "team id to import into")
	cmd.Flags().StringVar(&file, "file", "", "path to the rows file, - for stdin")
	_ = cmd.MarkFlagRequired("team")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newMatchCommand(metricsAddr *string) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "match",
		Short: "Classify a JSON array of candidates without writing anything",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var candidates []models.CandidateInput
			if err := readJSON(file, &candidates); err != nil {
				return err
			}

			a, err := newApp(cmd.Context(), *metricsAddr)
			if err != nil {
				return err
			}
			defer a.close()

			matcher, err := a.matcher()
			if err != nil {
				return err
			}

			results, err := matcher.FindMatchesBatch(cmd.Context(), candidates)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), results)
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "path to the candidates file, - for stdin")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newMergeCommand(metricsAddr *string) *cobra.Command {
	var duplicateID, targetID int64

	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Merge a duplicate player into a target player",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), *metricsAddr)
			if err != nil {
				return err
			}
			defer a.close()

			target, err := a.merger().MergePlayers(cmd.Context(), duplicateID, targetID)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), target)
		},
	}
	cmd.Flags().Int64Var(&duplicateID, "duplicate", 0, "id of the player to fold away")
	cmd.Flags().Int64Var(&targetID, "target", 0, "id of the player that survives")
	_ = cmd.MarkFlagRequired("duplicate")
	_ = cmd.MarkFlagRequired("target")
	return cmd
}

func newMigrateCommand(metricsAddr *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), *metricsAddr)
			if err != nil {
				return err
			}
			a.close()
			return nil
		},
	}
}

func readJSON(path string, dest any) error {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}

	if err := json.NewDecoder(r).Decode(dest); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
