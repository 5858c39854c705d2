package conversation

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromFilename picks the format from the file extension. Unknown extensions are JSON.
func FormatFromFilename(filename string) Format {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Export writes the session in human readable form.
func Export(w io.Writer, s *Session, format Format) error {
	switch format {
	case FormatYAML:
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err := encoder.Encode(s); err != nil {
			return errors.Wrap(err, "failed to encode session as yaml")
		}
		return encoder.Close()
	case FormatJSON, "":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return errors.Wrap(encoder.Encode(s), "failed to encode session as json")
	default:
		return errors.Errorf("unknown export format %q", format)
	}
}

// Import reads a session previously written by Export. YAML goes through the same
// decoding path as the persisted JSON document, including the runSettings backfill.
func Import(r io.Reader, format Format) (*Session, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read session")
	}

	switch format {
	case FormatYAML:
		var doc interface{}
		if err := yaml.NewDecoder(bytes.NewReader(b)).Decode(&doc); err != nil {
			return nil, errors.Wrap(err, "failed to parse yaml session")
		}
		b, err = json.Marshal(doc)
		if err != nil {
			return nil, errors.Wrap(err, "failed to convert yaml session")
		}
		return Unmarshal(b)
	case FormatJSON, "":
		return Unmarshal(b)
	default:
		return nil, errors.Errorf("unknown import format %q", format)
	}
}

// ImportFile reads a session from a .json, .yaml or .yml file.
func ImportFile(filename string) (*Session, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer func(f *os.File) {
		_ = f.Close()
	}(f)

	return Import(f, FormatFromFilename(filename))
}
