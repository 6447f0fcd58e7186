package registry

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// Args is the evaluated argument set of a stage.
type Args map[string]cty.Value

// Allow fails if args contains any name that is not listed.
func (a Args) Allow(names ...string) error {
	var unknown []string
	for name := range a {
		if !slices.Contains(names, name) {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	slices.Sort(unknown)
	return fmt.Errorf("unsupported arguments: %s", strings.Join(unknown, ", "))
}

// lookup returns the value for name and whether it was set to a non-null value.
func (a Args) lookup(name string) (cty.Value, bool) {
	v, ok := a[name]
	if !ok || v.IsNull() {
		return cty.NilVal, false
	}
	return v, true
}

// decode converts the named argument to the Go value pointed to by target.
func (a Args) decode(name string, ty cty.Type, target any) error {
	v, _ := a.lookup(name)
	converted, err := convert.Convert(v, ty)
	if err != nil {
		return fmt.Errorf("argument '%s': %w", name, err)
	}
	if !converted.IsWhollyKnown() {
		return fmt.Errorf("argument '%s': value is not known", name)
	}
	if err := gocty.FromCtyValue(converted, target); err != nil {
		return fmt.Errorf("argument '%s': %w", name, err)
	}
	return nil
}

// String returns a required string argument.
func (a Args) String(name string) (string, error) {
	if _, ok := a.lookup(name); !ok {
		return "", fmt.Errorf("argument '%s' is required", name)
	}
	var s string
	err := a.decode(name, cty.String, &s)
	return s, err
}

// OptionalString returns a string argument or def when it is absent.
func (a Args) OptionalString(name, def string) (string, error) {
	if _, ok := a.lookup(name); !ok {
		return def, nil
	}
	var s string
	err := a.decode(name, cty.String, &s)
	return s, err
}

// StringList returns an optional list of strings. Numbers and booleans are
// converted to their string form.
func (a Args) StringList(name string) ([]string, error) {
	if _, ok := a.lookup(name); !ok {
		return nil, nil
	}
	var list []string
	err := a.decode(name, cty.List(cty.String), &list)
	return list, err
}

// Int returns an optional integer argument or def when it is absent.
func (a Args) Int(name string, def int) (int, error) {
	if _, ok := a.lookup(name); !ok {
		return def, nil
	}
	var i int
	err := a.decode(name, cty.Number, &i)
	return i, err
}

// Bool returns an optional boolean argument or def when it is absent.
func (a Args) Bool(name string, def bool) (bool, error) {
	if _, ok := a.lookup(name); !ok {
		return def, nil
	}
	var b bool
	err := a.decode(name, cty.Bool, &b)
	return b, err
}

// Duration returns a required duration argument written as a Go duration
// string such as "250ms".
func (a Args) Duration(name string) (time.Duration, error) {
	s, err := a.String(name)
	if err != nil {
		return 0, err
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("argument '%s': %w", name, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("argument '%s': duration must not be negative", name)
	}
	return d, nil
}
