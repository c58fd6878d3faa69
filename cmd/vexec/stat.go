package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newStatCmd(a *app) *cobra.Command {
	var location string

	cmd := &cobra.Command{
		Use:   "stat",
		Short: "Show the header of a stored segment",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := a.runtime(cmd)
			if err != nil {
				return err
			}
			h, size, err := rt.Stat(cmd.Context(), location)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "location:\t%s\n", location)
			fmt.Fprintf(w, "type:\t%s\n", h.EngineType)
			fmt.Fprintf(w, "count:\t%d\n", h.Count)
			fmt.Fprintf(w, "dimension:\t%d\n", h.Dimension)
			fmt.Fprintf(w, "size:\t%d\n", h.Count*uint64(h.Dimension)*4)
			fmt.Fprintf(w, "compression:\t%s\n", h.Compression)
			fmt.Fprintf(w, "stored bytes:\t%d\n", size)
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&location, "location", "", "segment location")
	_ = cmd.MarkFlagRequired("location")
	return cmd
}

func newListCmd(a *app) *cobra.Command {
	var prefix string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored segments",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := a.runtime(cmd)
			if err != nil {
				return err
			}
			locs, err := rt.List(cmd.Context(), prefix)
			if err != nil {
				return err
			}
			for _, l := range locs {
				fmt.Fprintln(cmd.OutOrStdout(), l)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&prefix, "prefix", "", "only list locations with this prefix")
	return cmd
}
