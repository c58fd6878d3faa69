package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newMergeCmd(a *app) *cobra.Command {
	var location, from string

	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Append a flat segment to another and write it back",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := a.runtime(cmd)
			if err != nil {
				return err
			}
			e, err := rt.Merge(cmd.Context(), location, from)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "merged %s into %s: %d vectors\n", from, location, e.Count())
			return nil
		},
	}

	cmd.Flags().StringVar(&location, "location", "", "target segment")
	cmd.Flags().StringVar(&from, "from", "", "flat segment to append")
	_ = cmd.MarkFlagRequired("location")
	_ = cmd.MarkFlagRequired("from")
	return cmd
}
