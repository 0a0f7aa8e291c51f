// Package column normalizes heterogeneous column definitions into a uniform,
// immutable descriptor set.
//
// A Store is built once per view definition and replaced wholesale when the
// definition changes. It is never mutated after Normalize returns, so any
// number of row projections may read it concurrently.
package column

import (
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Kind distinguishes record-backed columns from UI control columns.
type Kind uint8

const (
	// KindData columns read a field from the record.
	KindData Kind = iota
	// KindControl columns (select, show-source) do not map to record fields.
	KindControl
)

// String returns the kind keyword.
func (k Kind) String() string {
	if k == KindControl {
		return "control"
	}
	return "data"
}

// MarshalJSON encodes the kind keyword.
func (k Kind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// UnmarshalJSON accepts "data" or "control".
func (k *Kind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch s {
	case "data":
		*k = KindData
	case "control":
		*k = KindControl
	default:
		return fmt.Errorf("unknown column kind %q", s)
	}
	return nil
}

// Slot names a semantic position that layout logic looks up directly.
type Slot string

const (
	SlotNone   Slot = ""
	SlotID     Slot = "id"
	SlotImage  Slot = "image"
	SlotSelect Slot = "select"
	SlotSource Slot = "show-source"
)

// Well-known control column ids.
const (
	SelectColumnID = "select"
	SourceColumnID = "show-source"
)

// Descriptor is the normalized metadata for one column.
type Descriptor struct {
	// ID is unique within a view and may be namespaced ("task:completed_at").
	ID string `json:"id"`
	// Alias is an optional semantic type hint used for renderer resolution.
	Alias string `json:"alias,omitempty"`
	// Type is the native type declared by the server, if any.
	Type string `json:"type,omitempty"`
	// Title is the header label.
	Title string `json:"title"`
	Kind  Kind   `json:"kind"`
	// FieldPath overrides the record path derived from ID.
	FieldPath string `json:"path,omitempty"`
	Sortable  bool   `json:"sortable"`
	Visible   bool   `json:"visible"`
}

// Path returns the record path this column reads. Control columns without an
// explicit path return "", a root-relative control action.
func (d Descriptor) Path() string {
	if d.FieldPath != "" {
		return d.FieldPath
	}
	if d.Kind == KindControl {
		return ""
	}
	if _, after, found := strings.Cut(d.ID, ":"); found {
		return after
	}
	return d.ID
}

// Slot returns the semantic slot this column occupies, or SlotNone.
func (d Descriptor) Slot() Slot {
	switch {
	case d.ID == SelectColumnID:
		return SlotSelect
	case d.ID == SourceColumnID:
		return SlotSource
	case d.ID == "id" || d.Alias == "id":
		return SlotID
	case d.ID == "image" || d.Alias == "image":
		return SlotImage
	default:
		return SlotNone
	}
}

// isControlID reports whether id names a built-in control column.
func isControlID(id string) bool {
	return id == SelectColumnID || id == SourceColumnID
}

// DeriveTitle builds a header label from a column id:
// "task:completed_at" -> "Completed At".
func DeriveTitle(id string) string {
	name := id
	if _, after, found := strings.Cut(name, ":"); found {
		name = after
	}
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	name = strings.NewReplacer("_", " ", "-", " ").Replace(name)
	// Casers are stateful and must not be shared between goroutines.
	return cases.Title(language.English).String(strings.TrimSpace(name))
}
