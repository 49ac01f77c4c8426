// internal/pkg/config/validators.go
package config

import (
	"fmt"
	"reflect"
	"strings"
)

// Validator checks one aspect of the loaded configuration
type Validator interface {
	Validate(cfg *Config) error
}

// BasicValidator checks required fields and numeric ranges in every
// environment.
type BasicValidator struct{}

func (v *BasicValidator) Validate(cfg *Config) error {
	if err := checkRequiredFields(cfg); err != nil {
		return err
	}

	if cfg.Database.MaxConnections < cfg.Database.MinConnections {
		return fmt.Errorf("database max_connections must be >= min_connections")
	}

	if cfg.Redis.PoolSize <= 0 {
		return fmt.Errorf("redis pool_size must be positive")
	}

	if cfg.Security.RateLimitRequests <= 0 {
		return fmt.Errorf("rate_limit_requests must be positive")
	}

	if cfg.FileProcessing.PDFMaxSizeMB <= 0 || cfg.FileProcessing.ExcelMaxSizeMB <= 0 {
		return fmt.Errorf("import file size limits must be positive")
	}

	if cfg.FileProcessing.TempDir == "" {
		return fmt.Errorf("file processing temp dir must be set")
	}

	return nil
}

// ProductionValidator rejects configurations that are acceptable on a
// developer laptop but not in front of a live pharmacy.
type ProductionValidator struct{}

func (v *ProductionValidator) Validate(cfg *Config) error {
	if strings.Contains(cfg.Database.Password, "MISSING_") {
		return fmt.Errorf("%w: database password", ErrMissingRequiredConfig)
	}

	if strings.Contains(cfg.Security.JWTSecret, "MISSING_") {
		return fmt.Errorf("%w: JWT secret", ErrMissingRequiredConfig)
	}

	if cfg.Security.JWTSecret == "development-secret-change-in-production" {
		return fmt.Errorf("default JWT secret cannot be used in production")
	}

	if cfg.Database.SSLMode == "disable" {
		return fmt.Errorf("database SSL must be enabled in production")
	}

	if !cfg.Security.SecureHeaders {
		return fmt.Errorf("secure headers must be enabled in production")
	}

	if !cfg.Security.CSRFProtection {
		return fmt.Errorf("CSRF protection must be enabled in production")
	}

	if len(cfg.Security.AllowedOrigins) == 0 {
		return fmt.Errorf("allowed origins must be configured in production")
	}

	if cfg.Server.TLSEnabled {
		if cfg.Server.TLSCertFile == "" || cfg.Server.TLSKeyFile == "" {
			return fmt.Errorf("TLS cert and key files must be provided when TLS is enabled")
		}
	}

	// Expiry alerts are pointless if nobody receives them and mail cannot
	// leave the host.
	if len(cfg.Email.AlertRecipients) > 0 && cfg.Email.SMTPHost == "" {
		return fmt.Errorf("SMTP host must be set when alert recipients are configured")
	}

	return nil
}

// SecurityValidator checks credential handling parameters.
type SecurityValidator struct{}

func (v *SecurityValidator) Validate(cfg *Config) error {
	if len(cfg.Security.JWTSecret) < 32 {
		return fmt.Errorf("JWT secret must be at least 32 characters")
	}

	if cfg.Security.BcryptCost < 10 {
		return fmt.Errorf("bcrypt cost must be at least 10")
	}
	if cfg.Security.BcryptCost > 15 {
		return fmt.Errorf("bcrypt cost above 15 makes login unusably slow")
	}

	for _, origin := range cfg.Security.AllowedOrigins {
		if origin == "*" && cfg.IsProduction() {
			return fmt.Errorf("wildcard origin (*) not allowed in production")
		}
	}

	return nil
}

// checkRequiredFields walks the config struct and rejects zero values on
// fields tagged `required:"true"`.
func checkRequiredFields(cfg interface{}) error {
	v := reflect.ValueOf(cfg)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}

	return checkStruct(v, "")
}

func checkStruct(v reflect.Value, prefix string) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldName := t.Field(i).Name
		if prefix != "" {
			fieldName = prefix + "." + fieldName
		}

		if t.Field(i).Tag.Get("required") == "true" && isZeroValue(field) {
			return fmt.Errorf("%w: %s", ErrMissingRequiredConfig, fieldName)
		}

		if field.Kind() == reflect.Struct {
			if err := checkStruct(field, fieldName); err != nil {
				return err
			}
		}
	}

	return nil
}

func isZeroValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.String:
		return v.String() == "" || strings.HasPrefix(v.String(), "MISSING_")
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.Bool:
		return !v.Bool()
	case reflect.Slice, reflect.Map:
		return v.IsNil() || v.Len() == 0
	case reflect.Ptr, reflect.Interface:
		return v.IsNil()
	default:
		return false
	}
}
