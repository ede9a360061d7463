package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/crimson-sun/helpful/internal/engine/classifier"
	"github.com/crimson-sun/helpful/internal/engine/selection"
)

//go:embed grids.yaml
var defaultGrids []byte

// Grids maps a classifier family name to its search grid.
type Grids map[string]selection.Grid

// DefaultGrids returns the built-in grids.
func DefaultGrids() Grids {
	g, err := ParseGrids(defaultGrids)
	if err != nil {
		panic(fmt.Sprintf("config: built-in grids: %v", err))
	}
	return g
}

// LoadGrids reads a YAML grid file. An empty path returns DefaultGrids.
func LoadGrids(path string) (Grids, error) {
	if path == "" {
		return DefaultGrids(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	g, err := ParseGrids(data)
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return g, nil
}

// ParseGrids decodes family → parameter → values. Family names may use any
// alias accepted by classifier.ParseFamily.
func ParseGrids(data []byte) (Grids, error) {
	var raw map[string]map[string][]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	out := make(Grids, len(raw))
	for name, params := range raw {
		f, err := classifier.ParseFamily(name)
		if err != nil {
			return nil, err
		}
		g := make(selection.Grid, len(params))
		for k, vals := range params {
			if len(vals) == 0 {
				return nil, fmt.Errorf("grid %s: parameter %q has no values", name, k)
			}
			g[k] = vals
		}
		out[f.String()] = g
	}
	return out, nil
}

// For returns the grid for family.
func (g Grids) For(family classifier.Family) (selection.Grid, error) {
	grid, ok := g[family.String()]
	if !ok {
		return nil, fmt.Errorf("config: no grid for %s", family)
	}
	return grid, nil
}
