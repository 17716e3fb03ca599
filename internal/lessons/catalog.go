package lessons

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"

	"github.com/conorfennell/lessonseed/internal/domain"
)

// Format is the encoding of a catalog file.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

//go:embed data/lessons.json
var defaultCatalog []byte

// Catalog maps a language code to its lessons, in the order they are numbered.
type Catalog map[string][]domain.LessonDefinition

// Default returns the built-in catalog.
func Default() (Catalog, error) {
	return Parse(bytes.NewReader(defaultCatalog), FormatJSON)
}

// Load reads a catalog from a .json, .yaml or .yml file.
func Load(path string) (Catalog, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open lesson file %s: %w", path, err)
	}
	defer file.Close()

	catalog, err := Parse(file, format)
	if err != nil {
		return nil, fmt.Errorf("failed to parse lesson file %s: %w", path, err)
	}
	return catalog, nil
}

// FormatFromPath picks the catalog format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported lesson file extension %q", filepath.Ext(path))
	}
}

// Parse reads a catalog from r.
func Parse(r io.Reader, format Format) (Catalog, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	if format == FormatYAML {
		// Decoded YAML is re-encoded so both formats share the json tags.
		raw, err := yaml.Parser().Unmarshal(data)
		if err != nil {
			return nil, err
		}
		if data, err = json.Marshal(raw); err != nil {
			return nil, err
		}
	} else if format != FormatJSON {
		return nil, fmt.Errorf("unsupported lesson format %q", format)
	}

	var catalog Catalog
	if err := json.Unmarshal(data, &catalog); err != nil {
		return nil, err
	}
	if catalog == nil {
		catalog = Catalog{}
	}
	return catalog, nil
}
