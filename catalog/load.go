package catalog

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/teranos/scribe/errors"
)

// Format is a catalog file encoding
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
	FormatTOML Format = "toml"
)

// FormatFromPath infers the format from a file extension
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	case ".toml":
		return FormatTOML, nil
	default:
		err := errors.NewInvalidRequestError("unsupported catalog file %q", path)
		return "", errors.WithHint(err, "use a .yaml, .yml, .json or .toml file")
	}
}

// Load reads and validates a catalog file
func Load(path string) (*Catalog, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFoundError("catalog file %s not found", path)
		}
		return nil, errors.Wrapf(err, "failed to read catalog %s", path)
	}
	cat, err := Parse(data, format)
	if err != nil {
		return nil, errors.WithDetailf(err, "file: %s", path)
	}
	if cat.Source == "" {
		cat.Source = path
	}
	return cat, nil
}

// Parse decodes and validates a catalog
func Parse(data []byte, format Format) (*Catalog, error) {
	var cat Catalog
	var err error

	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		err = dec.Decode(&cat)
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(&cat)
	case FormatTOML:
		var md toml.MetaData
		md, err = toml.Decode(string(data), &cat)
		if err == nil {
			if undecoded := md.Undecoded(); len(undecoded) > 0 {
				err = errors.Newf("unknown key %s", undecoded[0])
			}
		}
	default:
		return nil, errors.NewInvalidRequestError("unsupported catalog format %q", format)
	}
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "failed to decode %s catalog", format), errors.ErrInvalidRequest)
	}

	if err := cat.Validate(); err != nil {
		return nil, err
	}
	cat.link()
	return &cat, nil
}
