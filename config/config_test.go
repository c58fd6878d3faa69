package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hupe1980/vexec/index"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatic(t *testing.T) {
	var s Static
	assert.Equal(t, 7, s.GetInt("a", "b", 7))

	s.Set("a", "b", 3)
	assert.Equal(t, 3, s.GetInt("a", "b", 7))
	assert.Equal(t, 7, s.GetInt("a", "c", 7))

	seeded := NewStatic(map[string]map[string]int{SectionServer: {KeyGPUIndex: 2}})
	assert.Equal(t, 2, seeded.GetInt(SectionServer, KeyGPUIndex, 0))
}

func TestResolveEngine(t *testing.T) {
	tests := []struct {
		name      string
		values    map[string]map[string]int
		buildType index.EngineType
		want      EngineConfig
		wantErr   bool
	}{
		{name: "flat defaults", buildType: index.FlatIDMap, want: EngineConfig{DeviceID: 0, NProbe: 1}},
		{name: "ivf defaults", buildType: index.IVFFlatCPU, want: EngineConfig{DeviceID: 0, NProbe: 1000}},
		{
			name:      "gpu configured",
			values:    map[string]map[string]int{SectionServer: {KeyGPUIndex: 3}, SectionEngine: {KeyNProbe: 16}},
			buildType: index.IVFFlatGPU,
			want:      EngineConfig{DeviceID: 3, NProbe: 16},
		},
		{
			name:      "nprobe ignored for tree",
			values:    map[string]map[string]int{SectionEngine: {KeyNProbe: 16}},
			buildType: index.TreeBasedCPU,
			want:      EngineConfig{DeviceID: 0, NProbe: 1},
		},
		{
			name:      "negative device",
			values:    map[string]map[string]int{SectionServer: {KeyGPUIndex: -1}},
			buildType: index.FlatIDMap,
			wantErr:   true,
		},
		{
			name:      "zero nprobe",
			values:    map[string]map[string]int{SectionEngine: {KeyNProbe: 0}},
			buildType: index.IVFFlatCPU,
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveEngine(NewStatic(tt.values), tt.buildType)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidEngineConfig)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveEngine_NilProvider(t *testing.T) {
	got, err := ResolveEngine(nil, index.IVFFlatCPU)
	require.NoError(t, err)
	assert.Equal(t, EngineConfig{DeviceID: 0, NProbe: DefaultNProbe}, got)
}

func TestViperProvider(t *testing.T) {
	v := viper.New()
	v.Set("engine_config.nprobe", 32)
	v.Set("server.gpu_index", " 2 ")
	v.Set("server.bad", "two")

	p := NewViperProvider(v)
	assert.Equal(t, 32, p.GetInt(SectionEngine, KeyNProbe, 1000))
	assert.Equal(t, 2, p.GetInt(SectionServer, KeyGPUIndex, 0))
	assert.Equal(t, 5, p.GetInt(SectionServer, "bad", 5))
	assert.Equal(t, 9, p.GetInt("missing", "key", 9))
	assert.Equal(t, 9, NewViperProvider(nil).GetInt("a", "b", 9))
}

func TestLoad_Defaults(t *testing.T) {
	f, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "local", f.Storage.Backend)
	assert.Equal(t, DefaultNProbe, f.Engine.NProbe)
	assert.Equal(t, "info", f.Logging.Level)
	assert.Equal(t, DefaultNProbe, f.Provider().GetInt(SectionEngine, KeyNProbe, -1))
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	f, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "local", f.Storage.Backend)
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vexec.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  gpu_index: 1
engine_config:
  nprobe: 64
storage:
  backend: minio
  bucket: segments
  endpoint: localhost:9000
  compression: zstd
cache:
  capacity_bytes: 1048576
  sharded: true
logging:
  level: debug
  format: json
`), 0o644))

	t.Setenv("VEXEC_ENGINE_CONFIG_NPROBE", "128")
	t.Setenv("VEXEC_STORAGE_PREFIX", "prod/")

	f, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 1, f.Server.GPUIndex)
	assert.Equal(t, 128, f.Engine.NProbe)
	assert.Equal(t, "minio", f.Storage.Backend)
	assert.Equal(t, "prod/", f.Storage.Prefix)
	assert.Equal(t, "zstd", f.Storage.Compression)
	assert.Equal(t, int64(1048576), f.Cache.CapacityBytes)
	assert.True(t, f.Cache.Sharded)
	assert.Equal(t, "json", f.Logging.Format)

	p := f.Provider()
	assert.Equal(t, 128, p.GetInt(SectionEngine, KeyNProbe, 0))
	assert.Equal(t, 1, p.GetInt(SectionServer, KeyGPUIndex, 0))

	ec, err := ResolveEngine(p, index.IVFFlatGPU)
	require.NoError(t, err)
	assert.Equal(t, EngineConfig{DeviceID: 1, NProbe: 128}, ec)
}

func TestLoad_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
engine_config:
  nprobe: 0
storage:
  backend: ftp
logging:
  level: loud
`), 0o644))

	_, err := Load(path)
	require.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, err.Error(), "engine_config.nprobe must be at least 1")
	assert.Contains(t, err.Error(), "storage.backend must be one of")
	assert.Contains(t, err.Error(), "logging.level must be one of")
}

func TestValidate_BackendRequirements(t *testing.T) {
	f := DefaultFile()
	require.NoError(t, f.Validate())

	f.Storage.Backend = "s3"
	assert.ErrorContains(t, f.Validate(), "storage.bucket is required")

	f.Storage.Backend = "minio"
	f.Storage.Bucket = "b"
	assert.ErrorContains(t, f.Validate(), "storage.endpoint is required")

	f.Storage.Endpoint = "localhost:9000"
	assert.NoError(t, f.Validate())

	f.Metrics.Enabled = true
	f.Metrics.ListenAddr = ""
	assert.ErrorContains(t, f.Validate(), "metrics.listen_addr")

	var nilFile *File
	assert.ErrorIs(t, nilFile.Validate(), ErrInvalidConfig)
}

func TestFile_ProviderWithoutViper(t *testing.T) {
	f := DefaultFile()
	f.Engine.NProbe = 12
	assert.Equal(t, 12, f.Provider().GetInt(SectionEngine, KeyNProbe, 0))
}
