package main

import (
	"github.com/spf13/cobra"

	"github.com/hupe1980/vexec"
	"github.com/hupe1980/vexec/config"
	"github.com/hupe1980/vexec/index"
)

// app holds the global flags shared by every command.
type app struct {
	cfgFile     string
	logLevel    string
	storagePath string
}

func newRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "vexec",
		Short: "vexec - vector index segment execution engine",
		Long: `vexec manages vector index segments stored in a blob store.

A segment starts as a flat index filled by "ingest", can absorb other flat
segments with "merge", and is converted into a search-optimized index with
"build". Settings are read from a YAML file and VEXEC_* environment variables.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file path (YAML)")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override logging.level")
	cmd.PersistentFlags().StringVar(&a.storagePath, "storage-path", "", "override storage.path for the local backend")

	cmd.AddCommand(
		newIngestCmd(a),
		newBuildCmd(a),
		newMergeCmd(a),
		newSearchCmd(a),
		newStatCmd(a),
		newListCmd(a),
		newServeMetricsCmd(a),
	)
	return cmd
}

// loadConfig reads the configuration and applies flag overrides.
func (a *app) loadConfig() (*config.File, error) {
	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return nil, err
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	if a.storagePath != "" {
		cfg.Storage.Path = a.storagePath
	}
	return cfg, cfg.Validate()
}

func (a *app) runtime(cmd *cobra.Command, mutate ...func(*config.File)) (*vexec.Runtime, error) {
	cfg, err := a.loadConfig()
	if err != nil {
		return nil, err
	}
	for _, fn := range mutate {
		fn(cfg)
	}
	return vexec.NewRuntime(cmd.Context(), cfg)
}

func engineTypeFlag(cmd *cobra.Command, name string) (index.EngineType, error) {
	s, err := cmd.Flags().GetString(name)
	if err != nil {
		return index.Invalid, err
	}
	return index.ParseEngineType(s)
}
