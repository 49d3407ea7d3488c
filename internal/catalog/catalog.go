// Package catalog loads the list of services queried by an availability run.
// Files may be TOML, YAML or JSON; the format follows the file extension.
package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/ericfisherdev/nextslot/internal/domain/model"
)

// Format is a catalog file encoding.
type Format string

const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// file is the on-disk catalog layout.
type file struct {
	Services []entry `toml:"services" yaml:"services" json:"services"`
}

type entry struct {
	ServiceID  int    `toml:"service_id" yaml:"service_id" json:"service_id"`
	ProviderID int    `toml:"provider_id" yaml:"provider_id" json:"provider_id"`
	Name       string `toml:"name" yaml:"name" json:"name"`
	Days       string `toml:"days" yaml:"days" json:"days"`
}

// Default returns the course catalog the service was first deployed with.
func Default() []model.ServiceQuery {
	return []model.ServiceQuery{
		{ServiceID: 7, ProviderID: 6, DisplayName: "UAPL Theory 1 day course", Weekday: model.WeekdayAll},
		{ServiceID: 5, ProviderID: 2, DisplayName: "Course 2a: 4 Days Beginner Practical Lesson (Rotorcraft ≤ 7kg)", Weekday: model.WeekdayTuesday},
		{ServiceID: 6, ProviderID: 2, DisplayName: "Course 2b: 4 Days Beginner Practical Lesson (Rotorcraft ≤ 25kg)", Weekday: model.WeekdayTuesday},
		{ServiceID: 3, ProviderID: 7, DisplayName: "UAPL Assessment Class A 25kg / Proficiency Check", Weekday: model.WeekdayAll},
		{ServiceID: 2, ProviderID: 7, DisplayName: "UAPL Assessment Class A 7kg / Proficiency Check", Weekday: model.WeekdayAll},
	}
}

// Load reads the catalog at path. An empty path yields Default().
func Load(path string) ([]model.ServiceQuery, error) {
	if path == "" {
		return Default(), nil
	}

	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}

	queries, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return queries, nil
}

// FormatFromPath picks the format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported catalog extension %q (want .toml, .yaml, .yml or .json)", filepath.Ext(path))
	}
}

// Parse decodes and validates catalog data. Unknown fields are rejected.
func Parse(data []byte, format Format) ([]model.ServiceQuery, error) {
	var f file

	switch format {
	case FormatTOML:
		md, err := toml.Decode(string(data), &f)
		if err != nil {
			return nil, fmt.Errorf("failed to parse TOML: %w", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("failed to parse TOML: unknown field %q", undecoded[0].String())
		}
	case FormatYAML:
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		if err := decoder.Decode(&f); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	case FormatJSON:
		decoder := json.NewDecoder(bytes.NewReader(data))
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&f); err != nil {
			return nil, fmt.Errorf("failed to parse JSON: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}

	return f.queries()
}

// queries validates every entry and converts it. Entries keep file order.
func (f file) queries() ([]model.ServiceQuery, error) {
	if len(f.Services) == 0 {
		return nil, fmt.Errorf("no services defined")
	}

	type pair struct{ service, provider int }
	seen := make(map[pair]bool, len(f.Services))
	out := make([]model.ServiceQuery, 0, len(f.Services))

	for i, e := range f.Services {
		if e.ServiceID <= 0 || e.ProviderID <= 0 {
			return nil, fmt.Errorf("service %d: service_id and provider_id must be positive", i+1)
		}
		name := strings.TrimSpace(e.Name)
		if name == "" {
			return nil, fmt.Errorf("service %d: name is required", i+1)
		}
		weekday, err := model.ParseWeekdayFilter(e.Days)
		if err != nil {
			return nil, fmt.Errorf("service %d: %w", i+1, err)
		}

		key := pair{e.ServiceID, e.ProviderID}
		if seen[key] {
			return nil, fmt.Errorf("service %d: duplicate service_id %d with provider_id %d", i+1, e.ServiceID, e.ProviderID)
		}
		seen[key] = true

		out = append(out, model.ServiceQuery{
			ServiceID:   e.ServiceID,
			ProviderID:  e.ProviderID,
			DisplayName: name,
			Weekday:     weekday,
		})
	}

	return out, nil
}
