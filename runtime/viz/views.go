package viz

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// DefaultView is used when no view is named.
const DefaultView = "top"

// ErrUnknownView is returned by LookupView.
var ErrUnknownView = errors.New("unknown view")

// View is a camera preset: eye position, look-at point and vertical field
// of view in degrees.
type View struct {
	Eye  [3]float64 `yaml:"eye"`
	At   [3]float64 `yaml:"at"`
	FovY float64    `yaml:"fov_y"`
}

// Views maps preset names to camera settings.
type Views map[string]View

// BuiltinViews returns the presets available without a views file.
func BuiltinViews() Views {
	return Views{
		"top": {
			Eye:  [3]float64{1.2, 45.2, 300.0},
			At:   [3]float64{1.2, 32.5, 299.0},
			FovY: 11.71,
		},
		"front": {
			Eye:  [3]float64{39.37, 16.4, 364.0},
			At:   [3]float64{39.37, 16.4, 363.0},
			FovY: 78.71,
		},
		"left": {
			Eye:  [3]float64{-202.94, 164.4, -9.026284},
			At:   [3]float64{-201.936417, 164.4, -9.017079},
			FovY: 78.71,
		},
		"backright": {
			Eye:  [3]float64{4783.8, 364.4, 400.212},
			At:   [3]float64{4783.9, 363.8, 399.215},
			FovY: 78.71,
		},
		"right": {
			Eye:  [3]float64{120.0, 2.4, 295.0},
			At:   [3]float64{68.0, 2.4, 295.32},
			FovY: 6.6,
		},
	}
}

// viewsFile is the on-disk layout:
//
//	views:
//	  overhead:
//	    eye: [0, 100, 0]
//	    at: [0, 0, 0]
//	    fov_y: 45
type viewsFile struct {
	Views Views `yaml:"views"`
}

// LoadViews reads presets from a YAML file and merges them over the
// builtins. Unknown keys are rejected.
func LoadViews(path string) (Views, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read views: %w", err)
	}

	var f viewsFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse views %s: %w", path, err)
	}

	views := BuiltinViews()
	for name, v := range f.Views {
		if v.FovY <= 0 || v.FovY >= 180 {
			return nil, fmt.Errorf("view %q: fov_y %v out of range (0, 180)", name, v.FovY)
		}
		views[name] = v
	}
	return views, nil
}

// Names returns the preset names in sorted order.
func (vs Views) Names() []string {
	return slices.Sorted(maps.Keys(vs))
}

// LookupView returns the named preset, or DefaultView for "".
func (vs Views) LookupView(name string) (View, error) {
	if name == "" {
		name = DefaultView
	}
	if v, ok := vs[name]; ok {
		return v, nil
	}
	return View{}, fmt.Errorf("%w %q%s", ErrUnknownView, name, didYouMean(name, vs.Names()))
}

// MarshalFile encodes the views in the layout LoadViews reads.
func (vs Views) MarshalFile() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(viewsFile{Views: vs}); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
