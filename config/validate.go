package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidConfig wraps every File validation failure.
var ErrInvalidConfig = errors.New("configuration validation failed")

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report fields by their config key instead of the Go field name.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return v
}

// Validate checks field constraints and backend-specific requirements.
func (f *File) Validate() error {
	if f == nil {
		return fmt.Errorf("%w: configuration is nil", ErrInvalidConfig)
	}

	var msgs []string
	if err := validate.Struct(f); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
		for _, e := range verrs {
			msgs = append(msgs, formatValidationError(e))
		}
	}

	switch f.Storage.Backend {
	case "local":
		if f.Storage.Path == "" {
			msgs = append(msgs, "storage.path is required for the local backend")
		}
	case "s3":
		if f.Storage.Bucket == "" {
			msgs = append(msgs, "storage.bucket is required for the s3 backend")
		}
	case "minio":
		if f.Storage.Bucket == "" {
			msgs = append(msgs, "storage.bucket is required for the minio backend")
		}
		if f.Storage.Endpoint == "" {
			msgs = append(msgs, "storage.endpoint is required for the minio backend")
		}
	}
	if f.Metrics.Enabled && f.Metrics.ListenAddr == "" {
		msgs = append(msgs, "metrics.listen_addr is required when metrics are enabled")
	}

	if len(msgs) > 0 {
		return fmt.Errorf("%w:\n  - %s", ErrInvalidConfig, strings.Join(msgs, "\n  - "))
	}
	return nil
}

// formatValidationError renders e with its dotted config path, e.g.
// "engine_config.nprobe".
func formatValidationError(e validator.FieldError) string {
	path := e.Namespace()
	if i := strings.IndexByte(path, '.'); i >= 0 {
		path = path[i+1:]
	}

	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", path)
	case "min":
		return fmt.Sprintf("%s must be at least %s (got: %v)", path, e.Param(), e.Value())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s] (got: %v)", path, e.Param(), e.Value())
	default:
		return fmt.Sprintf("%s failed validation '%s' (got: %v)", path, e.Tag(), e.Value())
	}
}
