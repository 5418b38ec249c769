package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Load reads the YAML config file at path, applies defaults, then applies
// environment variable overrides declared via `env` struct tags. A missing
// config file is not an error; the service then runs on defaults and env.
//
// .env and .env.local are loaded first so local development overrides work
// without exporting variables.
func Load(path string) (*Config, error) {
	loadEnvFiles()

	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if unmarshalErr := yaml.Unmarshal(data, &cfg); unmarshalErr != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, unmarshalErr)
		}
	case os.IsNotExist(err):
		// Defaults + env only.
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg.SetDefaults()
	applyEnvOverrides(&cfg)
	return &cfg, nil
}

// Path returns the config path from CONFIG_PATH or the given default.
func Path(defaultPath string) string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return defaultPath
}

// loadEnvFiles loads .env.local then .env; missing files are ignored.
func loadEnvFiles() {
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load(".env")
}

// applyEnvOverrides walks the struct and applies `env:"VAR"` tag overrides.
func applyEnvOverrides(cfg any) {
	v := reflect.ValueOf(cfg)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	applyEnvToStruct(v)
}

func applyEnvToStruct(v reflect.Value) {
	if v.Kind() != reflect.Struct {
		return
	}

	t := v.Type()
	for i := range v.NumField() {
		field := v.Field(i)
		if !field.CanSet() {
			continue
		}
		if field.Kind() == reflect.Struct && field.Type() != reflect.TypeOf(time.Time{}) {
			applyEnvToStruct(field)
			continue
		}

		envTag := t.Field(i).Tag.Get("env")
		if envTag == "" {
			continue
		}
		envVal := os.Getenv(envTag)
		if envVal == "" {
			continue
		}
		setFieldFromString(field, envVal)
	}
}

func setFieldFromString(field reflect.Value, val string) {
	switch field.Kind() {
	case reflect.String:
		field.SetString(val)
	case reflect.Int, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			if d, err := time.ParseDuration(val); err == nil {
				field.SetInt(int64(d))
			}
			return
		}
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			field.SetInt(i)
		}
	case reflect.Float64:
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			field.SetFloat(f)
		}
	case reflect.Bool:
		field.SetBool(parseBool(val))
	}
}

func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes"
}
