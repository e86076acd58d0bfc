package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
)

// Loader applies environment variable overrides to a Config using each
// field's `env` struct tag.
type Loader struct{}

// NewLoader returns a ready-to-use Loader.
func NewLoader() *Loader { return &Loader{} }

// LoadFromEnvironment walks cfg's fields and, for every one tagged with
// env:"VAR_NAME", overrides it from the environment if VAR_NAME is set.
func (l *Loader) LoadFromEnvironment(cfg *Config) error {
	return l.applyEnvOverrides(reflect.ValueOf(cfg).Elem())
}

func (l *Loader) applyEnvOverrides(v reflect.Value) error {
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)
		if !field.CanSet() {
			continue
		}

		envName := fieldType.Tag.Get("env")
		if envName == "" {
			continue
		}
		value, ok := os.LookupEnv(envName)
		if !ok {
			continue
		}

		switch field.Kind() {
		case reflect.String:
			field.SetString(value)
		case reflect.Bool:
			boolVal, err := strconv.ParseBool(value)
			if err != nil {
				return fmt.Errorf("parsing bool from %s: %w", envName, err)
			}
			field.SetBool(boolVal)
		case reflect.Int, reflect.Int64:
			intVal, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return fmt.Errorf("parsing int from %s: %w", envName, err)
			}
			field.SetInt(intVal)
		default:
			return fmt.Errorf("field %s: unsupported env-overridable kind %s", fieldType.Name, field.Kind())
		}
	}
	return nil
}
