package cixconfig

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"time"

	"go.starlark.net/starlark"
)

// DefaultStarlarkTimeout is the default execution timeout for Starlark config files.
const DefaultStarlarkTimeout = 5 * time.Second

// ErrConfigureNotFound is returned when cix.star doesn't define a configure() function.
var ErrConfigureNotFound = errors.New("cix.star must define a configure() function")

// ErrConfigureReturnType is returned when configure() doesn't return a dict.
var ErrConfigureReturnType = errors.New("configure() must return a dict")

// LoadStarlarkConfig loads a configuration from a Starlark file.
// The file must define a configure() function that returns a dict.
// The execution is sandboxed: no filesystem or network access, with a timeout.
func LoadStarlarkConfig(path string, timeout time.Duration) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	thread := &starlark.Thread{Name: path}

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			thread.Cancel("execution timeout")
		case <-done:
		}
	}()
	defer close(done)

	globals, err := starlark.ExecFile(thread, path, data, configPredeclared())
	if err != nil {
		return nil, fmt.Errorf("executing config %s: %w", path, err)
	}

	configureFn, ok := globals["configure"]
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, ErrConfigureNotFound)
	}
	fn, ok := configureFn.(*starlark.Function)
	if !ok {
		return nil, fmt.Errorf("%s: configure must be a function, got %s", path, configureFn.Type())
	}

	result, err := starlark.Call(thread, fn, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: calling configure(): %w", path, err)
	}

	dict, ok := result.(*starlark.Dict)
	if !ok {
		return nil, fmt.Errorf("%s: %w, got %s", path, ErrConfigureReturnType, result.Type())
	}

	return dictToConfig(dict)
}

// configPredeclared returns the predeclared values for config Starlark files.
func configPredeclared() starlark.StringDict {
	return starlark.StringDict{
		"getenv":    starlark.NewBuiltin("getenv", builtinGetenv),
		"host_os":   starlark.String(runtime.GOOS),
		"host_arch": starlark.String(runtime.GOARCH),
		"duration":  starlark.NewBuiltin("duration", builtinDuration),
	}
}

// builtinGetenv implements getenv(name, default="") -> string.
func builtinGetenv(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var name string
	var defaultVal starlark.String
	if err := starlark.UnpackArgs("getenv", args, kwargs, "name", &name, "default?", &defaultVal); err != nil {
		return nil, err
	}

	val := os.Getenv(name)
	if val == "" {
		return defaultVal, nil
	}
	return starlark.String(val), nil
}

// builtinDuration implements duration(s) -> string.
// Validates that the string is a valid Go duration.
func builtinDuration(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var s string
	if err := starlark.UnpackArgs("duration", args, kwargs, "s", &s); err != nil {
		return nil, err
	}
	if _, err := time.ParseDuration(s); err != nil {
		return nil, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	return starlark.String(s), nil
}

// dictToConfig converts a Starlark dict to a Config struct.
func dictToConfig(d *starlark.Dict) (*Config, error) {
	cfg := DefaultConfig()

	if v, found, _ := d.Get(starlark.String("index")); found {
		indexDict, ok := v.(*starlark.Dict)
		if !ok {
			return nil, fmt.Errorf("index must be a dict, got %s", v.Type())
		}
		if err := parseIndexConfig(indexDict, &cfg.Index); err != nil {
			return nil, fmt.Errorf("parsing index config: %w", err)
		}
	}

	if v, found, _ := d.Get(starlark.String("check")); found {
		checkDict, ok := v.(*starlark.Dict)
		if !ok {
			return nil, fmt.Errorf("check must be a dict, got %s", v.Type())
		}
		list, err := stringList(checkDict, "disable")
		if err != nil {
			return nil, fmt.Errorf("parsing check config: %w", err)
		}
		if list != nil {
			cfg.Check.Disable = list
		}
	}

	return cfg, nil
}

// parseIndexConfig parses the index section from a Starlark dict.
func parseIndexConfig(d *starlark.Dict, cfg *IndexConfig) error {
	for key, dst := range map[string]*[]string{"exclude": &cfg.Exclude, "extensions": &cfg.Extensions} {
		list, err := stringList(d, key)
		if err != nil {
			return err
		}
		if list != nil {
			*dst = list
		}
	}

	if v, found, _ := d.Get(starlark.String("debounce")); found {
		s, ok := starlark.AsString(v)
		if !ok {
			return fmt.Errorf("debounce must be a string, got %s", v.Type())
		}
		if err := cfg.Debounce.UnmarshalText([]byte(s)); err != nil {
			return err
		}
	}

	for key, dst := range map[string]*string{"builtins": &cfg.Builtins, "builtins_cache": &cfg.BuiltinsCache} {
		if v, found, _ := d.Get(starlark.String(key)); found {
			s, ok := starlark.AsString(v)
			if !ok {
				return fmt.Errorf("%s must be a string, got %s", key, v.Type())
			}
			*dst = s
		}
	}

	return nil
}

// stringList reads d[key] as a list of strings. It returns nil when the
// key is absent.
func stringList(d *starlark.Dict, key string) ([]string, error) {
	v, found, _ := d.Get(starlark.String(key))
	if !found {
		return nil, nil
	}
	list, ok := v.(*starlark.List)
	if !ok {
		return nil, fmt.Errorf("%s must be a list, got %s", key, v.Type())
	}
	out := make([]string, 0, list.Len())
	for i := 0; i < list.Len(); i++ {
		s, ok := starlark.AsString(list.Index(i))
		if !ok {
			return nil, fmt.Errorf("%s[%d] must be a string", key, i)
		}
		out = append(out, s)
	}
	return out, nil
}
