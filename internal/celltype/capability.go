package celltype

import "encoding/json"

// Capability identifies how the UI layer should paint a cell.
// The zero value is CapabilityRaw, the universal fallback.
type Capability uint8

const (
	// CapabilityRaw displays the value as plain text.
	CapabilityRaw Capability = iota
	// CapabilityText is for free-form strings.
	CapabilityText
	// CapabilityNumber is for integer and fractional values.
	CapabilityNumber
	// CapabilityBoolean is for true/false values.
	CapabilityBoolean
	// CapabilityDate is for timestamps and dates.
	CapabilityDate
	// CapabilityImage is for image URLs.
	CapabilityImage
	// CapabilityAudio is for audio URLs.
	CapabilityAudio
	// CapabilityList is for arrays of scalars.
	CapabilityList
	// CapabilityObject is for nested objects.
	CapabilityObject
	// CapabilityUserList is for annotator/reviewer lists.
	CapabilityUserList
	// CapabilitySelector is the row selection checkbox.
	CapabilitySelector
	// CapabilitySource is the "show source" control.
	CapabilitySource
)

// String returns the keyword used by renderer providers.
func (c Capability) String() string {
	switch c {
	case CapabilityText:
		return "text"
	case CapabilityNumber:
		return "number"
	case CapabilityBoolean:
		return "boolean"
	case CapabilityDate:
		return "date"
	case CapabilityImage:
		return "image"
	case CapabilityAudio:
		return "audio"
	case CapabilityList:
		return "list"
	case CapabilityObject:
		return "object"
	case CapabilityUserList:
		return "user-list"
	case CapabilitySelector:
		return "selector"
	case CapabilitySource:
		return "source"
	default:
		return "raw"
	}
}

// MarshalJSON encodes the capability as its keyword.
func (c Capability) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}
