package adapters

import (
	"fmt"
	"time"
	"unicode/utf8"
)

// New creates an adapter based on kind and generic configuration map.
// This is the central extension point for adding new adapter types.
//
// Supported kinds:
//   - "csv": CSV adapter (path, column, delimiter, noHeader)
//   - "json": JSON adapter (path, valuePath | startPath+endPath, timestampFormat, unit)
//   - "inline": Inline list adapter (values, separator)
//
// Returns error if kind is unknown or required fields are missing.
func New(kind string, config map[string]string) (Adapter, error) {
	switch kind {
	case "csv":
		return newCSV(config)
	case "json":
		return newJSON(config)
	case "inline":
		return newInline(config)
	default:
		return nil, fmt.Errorf("unknown adapter kind: %s (must be csv, json, or inline)", kind)
	}
}

// newCSV creates a CSV adapter from generic config.
func newCSV(config map[string]string) (Adapter, error) {
	path := config["path"]
	if path == "" {
		return nil, fmt.Errorf("csv adapter requires 'path' config")
	}

	var comma rune
	if d := config["delimiter"]; d != "" {
		if d == `\t` || d == "tab" {
			d = "\t"
		}
		if utf8.RuneCountInString(d) != 1 {
			return nil, fmt.Errorf("csv adapter 'delimiter' must be a single character, got %q", d)
		}
		comma, _ = utf8.DecodeRuneInString(d)
	}

	return &CSVAdapter{
		Path:     path,
		Column:   config["column"],
		Comma:    comma,
		NoHeader: config["noHeader"] == "true" || config["noHeader"] == "1",
	}, nil
}

// newJSON creates a JSON adapter from generic config.
func newJSON(config map[string]string) (Adapter, error) {
	var unit time.Duration
	if u := config["unit"]; u != "" {
		d, err := time.ParseDuration(u)
		if err != nil {
			return nil, fmt.Errorf("json adapter 'unit': %w", err)
		}
		if d <= 0 {
			return nil, fmt.Errorf("json adapter 'unit' must be > 0, got %s", u)
		}
		unit = d
	}

	a := &JSONAdapter{
		Path:            config["path"],
		ValuePath:       config["valuePath"],
		StartPath:       config["startPath"],
		EndPath:         config["endPath"],
		TimestampFormat: config["timestampFormat"],
		Unit:            unit,
	}
	if err := a.ValidateConfig(); err != nil {
		return nil, fmt.Errorf("json adapter: %w", err)
	}
	return a, nil
}

// newInline creates an inline adapter from generic config.
func newInline(config map[string]string) (Adapter, error) {
	values := config["values"]
	if values == "" {
		return nil, fmt.Errorf("inline adapter requires 'values' config")
	}
	return &InlineAdapter{
		Values:    values,
		Separator: config["separator"],
	}, nil
}
