package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/hupe1980/vexec/engine"
	"github.com/hupe1980/vexec/internal/resource"
)

const ingestBatch = 1024

type record struct {
	ID     int64     `json:"id"`
	Vector []float32 `json:"vector"`
}

func newIngestCmd(a *app) *cobra.Command {
	var (
		location  string
		dim       int
		buildType string
		input     string
	)

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Load JSON-lines vectors into a new flat segment",
		Long: `Read records of the form {"id":1,"vector":[0.1,0.2]} from --input (or stdin
when --input is "-") into a fresh flat segment and write it to --location.
The dimension is taken from the first record when --dim is 0.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			typ, err := engineTypeFlag(cmd, "build-type")
			if err != nil {
				return err
			}

			var r io.Reader = cmd.InOrStdin()
			if input != "-" {
				f, err := os.Open(input)
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}

			rt, err := a.runtime(cmd)
			if err != nil {
				return err
			}
			// Input reads share the storage IO budget.
			r = resource.NewRateLimitedReader(cmd.Context(), r, rt.Resources())

			var (
				e       *engine.Engine
				vectors []float32
				ids     []int64
				total   int
			)
			flush := func() error {
				if len(ids) == 0 {
					return nil
				}
				if err := e.AddWithIDs(len(ids), vectors, ids); err != nil {
					return err
				}
				total += len(ids)
				vectors, ids = vectors[:0], ids[:0]
				return nil
			}

			dec := json.NewDecoder(r)
			for line := 1; ; line++ {
				var rec record
				if err := dec.Decode(&rec); err != nil {
					if errors.Is(err, io.EOF) {
						break
					}
					return fmt.Errorf("record %d: %w", line, err)
				}
				if e == nil {
					if dim == 0 {
						dim = len(rec.Vector)
					}
					if e, err = rt.NewEngine(dim, location, typ); err != nil {
						return err
					}
				}
				if len(rec.Vector) != dim {
					return fmt.Errorf("record %d: vector has %d values, want %d", line, len(rec.Vector), dim)
				}
				vectors = append(vectors, rec.Vector...)
				ids = append(ids, rec.ID)
				if len(ids) == ingestBatch {
					if err := flush(); err != nil {
						return err
					}
				}
			}
			if e == nil {
				if dim == 0 {
					return errors.New("no records and no --dim given")
				}
				if e, err = rt.NewEngine(dim, location, typ); err != nil {
					return err
				}
			}
			if err := flush(); err != nil {
				return err
			}
			if err := e.Serialize(cmd.Context()); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "ingested %d vectors (dim=%d) into %s\n", total, e.Dimension(), location)
			return nil
		},
	}

	cmd.Flags().StringVar(&location, "location", "", "segment location to write")
	cmd.Flags().IntVar(&dim, "dim", 0, "vector dimension (0 infers it from the first record)")
	cmd.Flags().StringVar(&buildType, "build-type", "flat", "index type the segment is later built into")
	cmd.Flags().StringVar(&input, "input", "-", "JSON-lines input file, - for stdin")
	_ = cmd.MarkFlagRequired("location")
	return cmd
}
