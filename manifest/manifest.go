// Package manifest loads declarative part trees from YAML documents. A
// manifest describes static structure (elements, text, state bindings,
// knots, lists, unions) and builds into a weave.Part; behavior still comes
// from a Flow supplied in code at mount time.
package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/xeipuuv/gojsonschema"
)

// Definition is a parsed manifest document.
type Definition struct {
	Name    string   `yaml:"name"`
	Version string   `yaml:"version"`
	Root    *NodeDef `yaml:"root"`
}

// NodeDef is one node of the declared tree. Kind selects which of the other
// fields apply.
type NodeDef struct {
	Kind string `yaml:"kind"`
	Name string `yaml:"name"`

	// element
	Tag       string            `yaml:"tag"`
	Attrs     map[string]string `yaml:"attrs"`
	BindAttrs map[string]string `yaml:"bindAttrs"` // attribute name -> JSONPath
	On        map[string]string `yaml:"on"`        // event name -> emitted action
	Children  []*NodeDef        `yaml:"children"`

	// text
	Value string `yaml:"value"`

	// bind
	Path string `yaml:"path"` // JSONPath into the state

	// knot
	Slots map[string]*NodeDef `yaml:"slots"`

	// list
	Item *NodeDef `yaml:"item"`

	// union (Tag doubles as the discriminant field name)
	Members map[string]*NodeDef `yaml:"members"`
}

// schema is the document contract, checked before the typed unmarshal so
// build errors only ever concern semantics, not shape.
const schema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["name", "root"],
  "properties": {
    "name": {"type": "string", "minLength": 1},
    "version": {"type": "string"},
    "root": {"$ref": "#/definitions/node"}
  },
  "definitions": {
    "node": {
      "type": "object",
      "required": ["kind"],
      "properties": {
        "kind": {"enum": ["element", "text", "bind", "knot", "list", "union"]},
        "name": {"type": "string"},
        "tag": {"type": "string"},
        "value": {"type": "string"},
        "path": {"type": "string", "minLength": 1},
        "attrs": {"type": "object", "additionalProperties": {"type": "string"}},
        "bindAttrs": {"type": "object", "additionalProperties": {"type": "string"}},
        "on": {"type": "object", "additionalProperties": {"type": "string"}},
        "children": {"type": "array", "items": {"$ref": "#/definitions/node"}},
        "slots": {"type": "object", "additionalProperties": {"$ref": "#/definitions/node"}},
        "members": {"type": "object", "additionalProperties": {"$ref": "#/definitions/node"}},
        "item": {"$ref": "#/definitions/node"}
      }
    }
  }
}`

// Load reads, schema-validates and parses a manifest document.
func Load(r io.Reader) (*Definition, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	if err := validateDocument(data); err != nil {
		return nil, err
	}
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return &def, nil
}

// LoadFile loads a manifest from a file path.
func LoadFile(path string) (*Definition, error) {
	// #nosec G304 - manifests are user-supplied file paths by design
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open manifest: %w", err)
	}
	defer func() { _ = f.Close() }()
	return Load(f)
}

// LoadString parses a manifest from an in-memory document.
func LoadString(doc string) (*Definition, error) {
	return Load(bytes.NewReader([]byte(doc)))
}

// validateDocument checks the raw document against the embedded JSON schema.
// The YAML is unmarshalled generically and re-marshalled as JSON so the
// schema engine sees plain JSON types.
func validateDocument(data []byte) error {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse manifest: %w", err)
	}
	docJSON, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal manifest for validation: %w", err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schema),
		gojsonschema.NewBytesLoader(docJSON),
	)
	if err != nil {
		return fmt.Errorf("validate manifest: %w", err)
	}
	if !result.Valid() {
		var msg string
		for i, e := range result.Errors() {
			if i > 0 {
				msg += "; "
			}
			msg += e.String()
		}
		return fmt.Errorf("manifest failed schema validation: %s", msg)
	}
	return nil
}
