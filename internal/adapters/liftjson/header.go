package liftjson

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/sillsdev/liftmerge/internal/domain"
)

// Header carries the range blocks and custom field declarations that
// precede the entry records. YAML and JSON documents both decode.
type Header struct {
	Ranges []domain.LiftRange   `json:"ranges,omitempty" yaml:"ranges"`
	Fields []domain.FieldHeader `json:"fields,omitempty" yaml:"fields"`
}

func LoadHeader(r io.Reader) (Header, error) {
	var h Header
	if err := yaml.NewDecoder(r).Decode(&h); err != nil {
		if err == io.EOF {
			return Header{}, nil
		}
		return Header{}, fmt.Errorf("decode header: %w", err)
	}
	for i, rng := range h.Ranges {
		if rng.ID == "" {
			return Header{}, fmt.Errorf("decode header: range %d has no id", i+1)
		}
	}
	for i, f := range h.Fields {
		if f.Tag == "" {
			return Header{}, fmt.Errorf("decode header: field %d has no tag", i+1)
		}
	}
	return h, nil
}

// Profile holds the import options a caller can keep in a file.
type Profile struct {
	Style           domain.MergeStyle `json:"style" yaml:"style"`
	TrustTimestamps bool              `json:"trust_timestamps" yaml:"trust_timestamps"`
}

func LoadProfile(r io.Reader) (Profile, error) {
	var p Profile
	if err := yaml.NewDecoder(r).Decode(&p); err != nil {
		if err == io.EOF {
			return Profile{}, nil
		}
		return Profile{}, fmt.Errorf("decode profile: %w", err)
	}
	return p, nil
}
