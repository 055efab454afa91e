package cli

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kroma-labs/swarms-go/engine"
	"github.com/kroma-labs/swarms-go/swarms"
)

// ErrEmptyManifest is returned for a manifest without items.
var ErrEmptyManifest = errors.New("manifest has no operations")

// ManifestItem is one operation of a batch manifest. Operation names a
// known client operation; Method and Path override or, for other names,
// define the call.
type ManifestItem struct {
	Operation  string            `yaml:"operation"`
	Method     string            `yaml:"method,omitempty"`
	Path       string            `yaml:"path,omitempty"`
	PathParams map[string]string `yaml:"path_params,omitempty"`
	Query      map[string]string `yaml:"query,omitempty"`
	Payload    any               `yaml:"payload,omitempty"`
}

// Manifest is a list of operations run as one batch.
type Manifest []ManifestItem

// ParseManifest decodes a YAML manifest.
func ParseManifest(data []byte) (Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if len(m) == 0 {
		return nil, ErrEmptyManifest
	}
	return m, nil
}

// Descriptors converts the manifest items, in order.
func (m Manifest) Descriptors() ([]engine.Descriptor, error) {
	ds := make([]engine.Descriptor, len(m))
	for i, item := range m {
		d, err := item.descriptor()
		if err != nil {
			return nil, fmt.Errorf("manifest item %d: %w", i, err)
		}
		ds[i] = d
	}
	return ds, nil
}

func (item ManifestItem) descriptor() (engine.Descriptor, error) {
	if item.Operation == "" {
		return engine.Descriptor{}, errors.New("operation is required")
	}

	d, known := swarms.Descriptor(item.Operation, item.Payload)
	if !known {
		if item.Path == "" {
			return engine.Descriptor{}, fmt.Errorf("unknown operation %q needs a path", item.Operation)
		}
		d = engine.Descriptor{Operation: item.Operation, Payload: item.Payload, Idempotency: engine.Mutating}
		if item.Method == "" || strings.EqualFold(item.Method, http.MethodGet) {
			d.Idempotency = engine.Idempotent
		}
	}
	if item.Method != "" {
		d.Method = strings.ToUpper(item.Method)
	}
	if item.Path != "" {
		d.Path = item.Path
	}
	if len(item.PathParams) > 0 {
		d.PathParams = item.PathParams
	}
	if len(item.Query) > 0 {
		d.Query = url.Values{}
		for k, v := range item.Query {
			d.Query.Set(k, v)
		}
	}
	return d, nil
}
