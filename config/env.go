package config

import (
	"reflect"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvKey returns the environment variable bound to a config key:
// "resilience.retry.max_retries" with prefix "callguard" is
// CALLGUARD_RESILIENCE_RETRY_MAX_RETRIES.
func EnvKey(prefix, key string) string {
	name := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
	if prefix == "" {
		return name
	}
	return strings.ToUpper(prefix) + "_" + name
}

// bindEnv binds every leaf key of cfg's type to its environment variable so
// Unmarshal sees variables that are set, including ones loaded from .env.
func bindEnv(v *viper.Viper, cfg any, prefix string) error {
	for _, key := range ConfigKeys(cfg) {
		if err := v.BindEnv(key, EnvKey(prefix, key)); err != nil {
			return err
		}
	}
	return nil
}

var durationType = reflect.TypeOf(time.Duration(0))
var timeType = reflect.TypeOf(time.Time{})

// ConfigKeys lists the dotted mapstructure keys of every leaf field in cfg,
// which must be a struct or a pointer to one. Squashed embeds contribute
// their fields without a prefix; fields tagged "-" are skipped.
func ConfigKeys(cfg any) []string {
	t := reflect.TypeOf(cfg)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil
	}
	var keys []string
	collectKeys(t, "", &keys)
	return keys
}

func collectKeys(t reflect.Type, prefix string, keys *[]string) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name, squash := mapstructureName(f)
		if name == "-" {
			continue
		}

		ft := f.Type
		for ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
		}
		if ft.Kind() == reflect.Func || ft.Kind() == reflect.Chan {
			continue
		}

		if ft.Kind() == reflect.Struct && ft != timeType && ft != durationType {
			if squash {
				collectKeys(ft, prefix, keys)
			} else {
				collectKeys(ft, join(prefix, name), keys)
			}
			continue
		}
		*keys = append(*keys, join(prefix, name))
	}
}

func mapstructureName(f reflect.StructField) (name string, squash bool) {
	tag := f.Tag.Get("mapstructure")
	parts := strings.Split(tag, ",")
	for _, opt := range parts[1:] {
		if opt == "squash" {
			squash = true
		}
	}
	name = parts[0]
	if name == "" {
		name = strings.ToLower(f.Name)
	}
	return name, squash
}

func join(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}
