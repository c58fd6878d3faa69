package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hupe1980/vexec/engine"
	"github.com/hupe1980/vexec/index"
)

func newBuildCmd(a *app) *cobra.Command {
	var (
		location string
		target   string
		nlist    int
		seed     int64
	)

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build a search index from a flat segment",
		RunE: func(cmd *cobra.Command, _ []string) error {
			typ, err := engineTypeFlag(cmd, "build-type")
			if err != nil {
				return err
			}
			rt, err := a.runtime(cmd)
			if err != nil {
				return err
			}

			built, err := rt.Build(cmd.Context(), location, target, typ,
				engine.WithBuildConfig(index.BuildConfig{NList: nlist, Seed: seed}))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "built %s with %d vectors at %s\n", built.CurrentType(), built.Count(), target)
			return nil
		},
	}

	cmd.Flags().StringVar(&location, "location", "", "flat source segment")
	cmd.Flags().StringVar(&target, "target", "", "location of the built segment")
	cmd.Flags().String("build-type", "ivf", "index type to build (flat, ivf, ivf_gpu, tree)")
	cmd.Flags().IntVar(&nlist, "nlist", 0, "IVF list count (0 picks one from the data)")
	cmd.Flags().Int64Var(&seed, "seed", 0, "k-means seed")
	_ = cmd.MarkFlagRequired("location")
	_ = cmd.MarkFlagRequired("target")
	return cmd
}
