package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/Veraticus/rd-classifier/internal/cli"
	"github.com/Veraticus/rd-classifier/internal/common"
	"github.com/spf13/cobra"
)

func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent classification runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			limit, _ := cmd.Flags().GetInt("limit")

			store, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			h, ok := store.history()
			if !ok {
				return common.NewUserError(
					fmt.Sprintf("The %s store does not keep run history.", store.driver), common.ErrInvalidConfig)
			}
			runs, err := h.ListRuns(ctx, limit)
			if err != nil {
				return fmt.Errorf("failed to list runs: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, cli.FormatInfo("No runs recorded yet"))
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "When\tMode\tSource\tProfile\tRows\tGroups")
			for _, r := range runs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\n",
					r.CreatedAt.Local().Format("2006-01-02 15:04"),
					r.Mode, r.Source, r.ProfileID,
					r.Summary.TotalRows, len(r.Summary.Groups))
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntP("limit", "n", 20, "number of runs to show")
	return cmd
}
