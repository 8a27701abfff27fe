package configutil

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/titanous/json5"
)

// ErrNotFound is returned when neither a config file nor its local override exists.
var ErrNotFound = os.ErrNotExist

func splitExt(f string) (string, string) {
	for i := len(f) - 1; i >= 0; i-- {
		if f[i] == '.' {
			return f[0:i], f[i+1:]
		}
	}
	return f, ""
}

// LocalPath returns the path of the local override for a config file,
// "config.json5" becomes "config.local.json5".
func LocalPath(name string) string {
	prefixname, ext := splitExt(filepath.Base(name))
	if ext == "" {
		return filepath.Join(filepath.Dir(name), fmt.Sprintf("%s.local", prefixname))
	}
	return filepath.Join(filepath.Dir(name), fmt.Sprintf("%s.local.%s", prefixname, ext))
}

// reads a configuration file, `name` should come with a file extension,
// it will automatically be lopped off to produce the other extensions.
// this function will merge the following files, where higher number is more prioritized.
// 1. <name>.<ext>
// 2. <name>.local.<ext>
func ReadConfig[T any](name string) (T, error) {
	var out T
	return Overlay(name, out)
}

// Overlay is ReadConfig on top of base. Every key a file spells out wins, zero values included,
// fields no file mentions keep base's value.
func Overlay[T any](name string, base T) (T, error) {
	out := base
	allNotFound := true

	for _, path := range []string{name, LocalPath(name)} {
		contents, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return base, err
		}
		allNotFound = false
		if len(contents) == 0 {
			continue
		}

		var override T
		err = json5.Unmarshal(contents, &override)
		if err != nil {
			return base, fmt.Errorf("parse %s: %w", path, err)
		}
		var present map[string]any
		err = json5.Unmarshal(contents, &present)
		if err != nil {
			// not an object, the file replaces the value wholesale
			out = override
			continue
		}
		overlayPresent(reflect.ValueOf(&out).Elem(), reflect.ValueOf(override), present)

		if path != name {
			slog.Info("merging config with local overrides", "local", path)
		}
	}

	if allNotFound {
		return base, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return out, nil
}

// overlayPresent copies the fields of src whose keys appear in present onto dst. Nested objects
// recurse so a file can set a single field of a nested struct.
func overlayPresent(dst, src reflect.Value, present map[string]any) {
	if dst.Kind() != reflect.Struct {
		dst.Set(src)
		return
	}

	t := dst.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		key, tagged := jsonKey(field)
		if key == "-" {
			continue
		}
		if field.Anonymous && !tagged && field.Type.Kind() == reflect.Struct {
			overlayPresent(dst.Field(i), src.Field(i), present)
			continue
		}

		value, ok := lookupKey(present, key)
		if !ok {
			continue
		}
		nested, isObject := value.(map[string]any)
		if isObject && field.Type.Kind() == reflect.Struct {
			overlayPresent(dst.Field(i), src.Field(i), nested)
			continue
		}
		dst.Field(i).Set(src.Field(i))
	}
}

func jsonKey(field reflect.StructField) (string, bool) {
	name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
	if name == "" {
		return field.Name, false
	}
	return name, true
}

// lookupKey matches keys the way the decoder does, exact first then case-insensitive.
func lookupKey(present map[string]any, key string) (any, bool) {
	if value, ok := present[key]; ok {
		return value, true
	}
	for k, value := range present {
		if strings.EqualFold(k, key) {
			return value, true
		}
	}
	return nil, false
}

// FindRecursively walks from the working directory up to the filesystem root and returns the
// first path at which name or its local override exists.
func FindRecursively(name string) (string, error) {
	current, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		path := filepath.Join(current, name)
		for _, candidate := range []string{path, LocalPath(path)} {
			_, err := os.Stat(candidate)
			if err == nil {
				return path, nil
			}
			if !errors.Is(err, os.ErrNotExist) {
				return "", err
			}
		}

		parent := filepath.Dir(current)
		if parent == current {
			return "", fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		current = parent
	}
}
