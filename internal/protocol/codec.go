package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Codec reads and writes side-channel documents in one wire format.
type Codec interface {
	// Name identifies the format and doubles as the file extension.
	Name() string

	// DecodeResult reads a result document from path. A missing file is
	// not an error: it yields an empty result.
	DecodeResult(path string) (*Result, error)

	// Encode writes v to path. Used for resume metadata handed to the
	// script before it starts.
	Encode(path string, v any) error
}

// CodecByName returns the codec registered under name.
func CodecByName(name string) (Codec, error) {
	switch name {
	case "", "json":
		return JSONCodec{}, nil
	case "yaml", "yml":
		return YAMLCodec{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
	}
}

// JSONCodec is the default wire format.
type JSONCodec struct{}

func (JSONCodec) Name() string { return "json" }

func (JSONCodec) DecodeResult(path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &Result{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("protocol: read result: %w", err)
	}
	var doc resultDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return doc.toResult()
}

func (JSONCodec) Encode(path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("protocol: encode json: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

// YAMLCodec decodes the same document shape from YAML, for scripts that
// already speak it.
type YAMLCodec struct{}

func (YAMLCodec) Name() string { return "yaml" }

func (YAMLCodec) DecodeResult(path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &Result{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("protocol: read result: %w", err)
	}
	var doc resultDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return doc.toResult()
}

func (YAMLCodec) Encode(path string, v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("protocol: encode yaml: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}
