package viewdef

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaSrc string

// Load reads a definition file. ".cue" and ".json" files are evaluated as
// CUE against the view schema; ".yaml" and ".yml" files are decoded
// strictly. The result is validated.
func Load(path string) (Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Definition{}, fmt.Errorf("read view definition: %w", err)
	}

	var d Definition
	switch strings.ToLower(filepath.Ext(path)) {
	case ".cue", ".json":
		d, err = ParseCUE(data, path)
	case ".yaml", ".yml":
		d, err = ParseYAML(data)
	default:
		return Definition{}, fmt.Errorf("view definition %s: unsupported extension", path)
	}
	if err != nil {
		return Definition{}, err
	}

	if err := d.Validate(); err != nil {
		return Definition{}, fmt.Errorf("invalid view definition %s: %w", path, err)
	}
	return d, nil
}

// ParseCUE evaluates data as CUE and unifies it with the view schema. The
// definition may be the whole file or nested under a top-level "view" field.
func ParseCUE(data []byte, filename string) (Definition, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaSrc, cue.Filename("schema.cue")).LookupPath(cue.ParsePath("#View"))
	if err := schema.Err(); err != nil {
		return Definition{}, fmt.Errorf("view schema: %w", err)
	}

	v := ctx.CompileBytes(data, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return Definition{}, formatCUEError(err)
	}
	if nested := v.LookupPath(cue.ParsePath("view")); nested.Exists() {
		v = nested
	}

	v = schema.Unify(v)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return Definition{}, formatCUEError(err)
	}

	js, err := v.MarshalJSON()
	if err != nil {
		return Definition{}, formatCUEError(err)
	}
	var d Definition
	dec := json.NewDecoder(bytes.NewReader(js))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&d); err != nil {
		return Definition{}, fmt.Errorf("decode view definition: %w", err)
	}
	return d, nil
}

// ParseYAML decodes a YAML definition, rejecting unknown fields.
func ParseYAML(data []byte) (Definition, error) {
	var d Definition
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&d); err != nil {
		if errors.Is(err, io.EOF) {
			return Definition{}, errors.New("view definition is empty")
		}
		return Definition{}, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return d, nil
}

// formatCUEError keeps the first CUE error and its position.
func formatCUEError(err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		return &DefinitionError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return err
}
