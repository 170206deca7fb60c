package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"

	"gopkg.in/yaml.v3"
)

// configFileNames are tried in order under <kiosk-dir>/config.
var configFileNames = []string{"kiosk_config.yml", "sync_config.yml"}

// Load reads the kiosk config file under kioskDir, applies defaults and
// environment overrides, and validates the result.
func Load(kioskDir string) (*Config, error) {
	cfg := &Config{}

	path, err := findConfigFile(kioskDir)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading kiosk config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg.Kiosk); err != nil {
		return nil, fmt.Errorf("parsing kiosk config %s: %w", path, err)
	}

	for _, v := range []reflect.Value{
		reflect.ValueOf(&cfg.Kiosk).Elem(),
		reflect.ValueOf(&cfg.Logging).Elem(),
	} {
		if err := applyEnv(v); err != nil {
			return nil, fmt.Errorf("config load: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// findConfigFile locates the kiosk config file under kioskDir.
func findConfigFile(kioskDir string) (string, error) {
	for _, name := range configFileNames {
		path := filepath.Join(kioskDir, "config", name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, nil
		}
	}
	return "", fmt.Errorf("neither a kiosk_config.yml nor a sync_config.yml can be found under %s",
		filepath.Join(kioskDir, "config"))
}

// applyEnv walks a struct and overrides fields from environment variables
// declared in `env` tags, falling back to `default` tags for unset fields.
func applyEnv(v reflect.Value) error {
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldVal := v.Field(i)

		if !fieldVal.CanSet() {
			continue
		}

		envName := field.Tag.Get("env")
		defaultVal := field.Tag.Get("default")
		if envName == "" {
			continue
		}

		value := os.Getenv(envName)
		if value == "" {
			// Defaults only fill fields the yaml left empty.
			if defaultVal == "" || !fieldVal.IsZero() {
				continue
			}
			value = defaultVal
		}

		if err := setField(fieldVal, value); err != nil {
			return fmt.Errorf("invalid value for %s=%q: %w", envName, value, err)
		}
	}

	return nil
}

// setField sets a reflect.Value from a string based on its type.
func setField(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int64:
		i, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid integer: %w", err)
		}
		field.SetInt(i)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}
		field.SetBool(b)

	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}

	return nil
}
