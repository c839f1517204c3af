package codec

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format names a document encoding.
type Format string

const (
	JSON Format = "json"
	XML  Format = "xml"
	YAML Format = "yaml"
)

// FormatFromPath picks the format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return JSON, nil
	case ".xml":
		return XML, nil
	case ".yaml", ".yml":
		return YAML, nil
	default:
		return "", fmt.Errorf("unsupported file extension: %q", filepath.Ext(path))
	}
}

// Encode marshals doc in the given format.
func Encode(doc *Document, format Format) ([]byte, error) {
	var data []byte
	var err error
	switch format {
	case JSON:
		data, err = json.MarshalIndent(doc, "", "  ")
	case XML:
		data, err = xml.MarshalIndent(doc, "", "  ")
		if err == nil {
			data = append([]byte(xml.Header), data...)
		}
	case YAML:
		data, err = yaml.Marshal(doc)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to marshal document: %w", err)
	}
	return data, nil
}

// Decode unmarshals a document in the given format.
func Decode(data []byte, format Format) (*Document, error) {
	var doc Document
	var err error
	switch format {
	case JSON:
		err = json.Unmarshal(data, &doc)
	case XML:
		err = xml.Unmarshal(data, &doc)
	case YAML:
		err = yaml.Unmarshal(data, &doc)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal document: %w", err)
	}
	if doc.Version > Version {
		return nil, fmt.Errorf("document version %d is newer than supported %d", doc.Version, Version)
	}
	return &doc, nil
}

// SaveFile writes doc to path in the format of its extension.
func SaveFile(doc *Document, path string) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	data, err := Encode(doc, format)
	if err != nil {
		return err
	}

	// Ensure the directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return f.Sync()
}

// LoadFile reads a document from path in the format of its extension.
func LoadFile(path string) (*Document, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return Decode(data, format)
}
