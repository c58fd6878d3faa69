package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newSearchCmd(a *app) *cobra.Command {
	var (
		location string
		k        int
		queries  []string
	)

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Find the nearest neighbors of query vectors",
		Example: `  vexec search --location segments/0001.ivf --k 5 --query "0.1,0.2,0.3"`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if len(queries) == 0 {
				return errors.New("at least one --query is required")
			}
			rt, err := a.runtime(cmd)
			if err != nil {
				return err
			}

			// Open with the stored type so IVF segments pick up nprobe.
			h, _, err := rt.Stat(cmd.Context(), location)
			if err != nil {
				return err
			}
			e, err := rt.OpenEngine(cmd.Context(), location, h.EngineType)
			if err != nil {
				return err
			}

			dim := e.Dimension()
			flat := make([]float32, 0, len(queries)*dim)
			for i, q := range queries {
				vec, err := parseVector(q)
				if err != nil {
					return fmt.Errorf("query %d: %w", i, err)
				}
				if len(vec) != dim {
					return fmt.Errorf("query %d has %d values, want %d", i, len(vec), dim)
				}
				flat = append(flat, vec...)
			}

			n := len(queries)
			distances := make([]float32, n*k)
			labels := make([]int64, n*k)
			if err := e.Search(n, flat, k, distances, labels); err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "QUERY\tRANK\tLABEL\tDISTANCE")
			for q := range n {
				for r := range k {
					i := q*k + r
					if labels[i] < 0 {
						break
					}
					fmt.Fprintf(w, "%d\t%d\t%d\t%g\n", q, r, labels[i], distances[i])
				}
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&location, "location", "", "segment to search")
	cmd.Flags().IntVar(&k, "k", 10, "neighbors per query")
	cmd.Flags().StringArrayVar(&queries, "query", nil, "comma-separated query vector (repeatable)")
	_ = cmd.MarkFlagRequired("location")
	return cmd
}

func parseVector(s string) ([]float32, error) {
	parts := strings.Split(s, ",")
	vec := make([]float32, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		f, err := strconv.ParseFloat(p, 32)
		if err != nil {
			return nil, err
		}
		vec = append(vec, float32(f))
	}
	if len(vec) == 0 {
		return nil, errors.New("empty vector")
	}
	return vec, nil
}
