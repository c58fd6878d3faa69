package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. VEXEC_STORAGE_BACKEND.
const EnvPrefix = "VEXEC"

// File is the process configuration of the vexec CLI.
type File struct {
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Engine   EngineSection  `mapstructure:"engine_config" yaml:"engine_config"`
	Storage  StorageConfig  `mapstructure:"storage" yaml:"storage"`
	Cache    CacheConfig    `mapstructure:"cache" yaml:"cache"`
	Resource ResourceConfig `mapstructure:"resource" yaml:"resource"`
	Logging  LoggingConfig  `mapstructure:"logging" yaml:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics" yaml:"metrics"`

	v *viper.Viper
}

// ServerConfig holds device selection.
type ServerConfig struct {
	GPUIndex int `mapstructure:"gpu_index" yaml:"gpu_index" validate:"min=0"`
}

// EngineSection holds search tuning.
type EngineSection struct {
	NProbe int `mapstructure:"nprobe" yaml:"nprobe" validate:"min=1"`
}

// StorageConfig selects and configures the blob store backend.
type StorageConfig struct {
	Backend     string `mapstructure:"backend" yaml:"backend" validate:"oneof=local memory s3 minio"`
	Path        string `mapstructure:"path" yaml:"path"`
	Bucket      string `mapstructure:"bucket" yaml:"bucket"`
	Prefix      string `mapstructure:"prefix" yaml:"prefix"`
	Region      string `mapstructure:"region" yaml:"region"`
	Endpoint    string `mapstructure:"endpoint" yaml:"endpoint"`
	AccessKey   string `mapstructure:"access_key" yaml:"access_key"`
	SecretKey   string `mapstructure:"secret_key" yaml:"secret_key"`
	UseSSL      bool   `mapstructure:"use_ssl" yaml:"use_ssl"`
	Compression string `mapstructure:"compression" yaml:"compression" validate:"oneof=none lz4 zstd"`

	// S3 multipart upload tuning; zero keeps the store defaults.
	UploadPartSize    int64 `mapstructure:"upload_part_size" yaml:"upload_part_size" validate:"min=0"`
	UploadConcurrency int   `mapstructure:"upload_concurrency" yaml:"upload_concurrency" validate:"min=0"`
}

// CacheConfig sizes the index cache.
type CacheConfig struct {
	// CapacityBytes bounds resident index bytes; 0 means unbounded.
	CapacityBytes int64 `mapstructure:"capacity_bytes" yaml:"capacity_bytes" validate:"min=0"`
	Sharded       bool  `mapstructure:"sharded" yaml:"sharded"`
}

// ResourceConfig bounds process-wide resource usage. Zero means unlimited.
type ResourceConfig struct {
	MemoryLimitBytes     int64 `mapstructure:"memory_limit_bytes" yaml:"memory_limit_bytes" validate:"min=0"`
	IOLimitBytesPerSec   int   `mapstructure:"io_limit_bytes_per_sec" yaml:"io_limit_bytes_per_sec" validate:"min=0"`
	MaxBackgroundWorkers int   `mapstructure:"max_background_workers" yaml:"max_background_workers" validate:"min=0"`
}

// LoggingConfig selects log level and format.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" yaml:"format" validate:"oneof=text json"`
}

// MetricsConfig controls the Prometheus sink.
type MetricsConfig struct {
	Enabled    bool   `mapstructure:"enabled" yaml:"enabled"`
	ListenAddr string `mapstructure:"listen_addr" yaml:"listen_addr"`
	Namespace  string `mapstructure:"namespace" yaml:"namespace"`
}

// DefaultFile returns the configuration used when no file is given.
func DefaultFile() *File {
	return &File{
		Server: ServerConfig{GPUIndex: DefaultGPUIndex},
		Engine: EngineSection{NProbe: DefaultNProbe},
		Storage: StorageConfig{
			Backend:     "local",
			Path:        "./data",
			Compression: "none",
			UseSSL:      true,
		},
		Cache: CacheConfig{
			CapacityBytes: 1 << 30,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			ListenAddr: ":9090",
			Namespace:  "vexec",
		},
	}
}

func setDefaults(v *viper.Viper) {
	d := DefaultFile()
	v.SetDefault("server.gpu_index", d.Server.GPUIndex)
	v.SetDefault("engine_config.nprobe", d.Engine.NProbe)
	v.SetDefault("storage.backend", d.Storage.Backend)
	v.SetDefault("storage.path", d.Storage.Path)
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.prefix", "")
	v.SetDefault("storage.region", "")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.access_key", "")
	v.SetDefault("storage.secret_key", "")
	v.SetDefault("storage.use_ssl", d.Storage.UseSSL)
	v.SetDefault("storage.compression", d.Storage.Compression)
	v.SetDefault("storage.upload_part_size", 0)
	v.SetDefault("storage.upload_concurrency", 0)
	v.SetDefault("cache.capacity_bytes", d.Cache.CapacityBytes)
	v.SetDefault("cache.sharded", false)
	v.SetDefault("resource.memory_limit_bytes", 0)
	v.SetDefault("resource.io_limit_bytes_per_sec", 0)
	v.SetDefault("resource.max_background_workers", 0)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.listen_addr", d.Metrics.ListenAddr)
	v.SetDefault("metrics.namespace", d.Metrics.Namespace)
}

// Load reads the YAML file at path, applies defaults and VEXEC_* environment
// overrides, and validates the result. An empty path or a missing file yields
// defaults plus environment.
func Load(path string) (*File, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var f File
	if err := v.Unmarshal(&f); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	f.v = v

	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Provider returns a Provider over the loaded settings. A File built without
// Load answers from its struct fields.
func (f *File) Provider() Provider {
	if f.v != nil {
		return NewViperProvider(f.v)
	}
	return NewStatic(map[string]map[string]int{
		SectionServer: {KeyGPUIndex: f.Server.GPUIndex},
		SectionEngine: {KeyNProbe: f.Engine.NProbe},
	})
}
