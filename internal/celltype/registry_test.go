package celltype

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_Order(t *testing.T) {
	r := NewRegistry()

	tests := []struct {
		name       string
		alias      string
		nativeType string
		want       Capability
	}{
		{"alias wins over native type", "image", "string", CapabilityImage},
		{"native type when alias unknown", "completed", "number", CapabilityNumber},
		{"native type when alias empty", "", "boolean", CapabilityBoolean},
		{"default when nothing matches", "completed", "", CapabilityRaw},
		{"default for unknown native type", "", "null", CapabilityRaw},
		{"namespaced alias", "task:image", "", CapabilityImage},
		{"case insensitive", "IMAGE", "", CapabilityImage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Resolve(tt.alias, tt.nativeType))
		})
	}
}

func TestResolve_NilRegistryFallsBack(t *testing.T) {
	var r *Registry
	assert.Equal(t, CapabilityRaw, r.Resolve("image", "string"))
}

func TestRegister_ReturnsCopy(t *testing.T) {
	base := NewRegistry()
	custom := base.Register("completed", CapabilityDate)

	assert.Equal(t, CapabilityDate, custom.Resolve("completed", ""))
	assert.Equal(t, CapabilityRaw, base.Resolve("completed", ""), "base registry must not change")
}

func TestWithout_RemovesEntries(t *testing.T) {
	r := NewRegistry().Without("image")

	assert.Equal(t, CapabilityText, r.Resolve("image", "string"))
	assert.Equal(t, CapabilityRaw, Empty().Resolve("image", "string"))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "completed_at", Normalize("task:completed_at"))
	assert.Equal(t, "image", Normalize(" Image "))
	assert.Equal(t, "", Normalize(""))
}

func TestCapability_MarshalJSON(t *testing.T) {
	b, err := json.Marshal(map[string]Capability{"c": CapabilityUserList})
	require.NoError(t, err)
	assert.JSONEq(t, `{"c":"user-list"}`, string(b))
	assert.Equal(t, "raw", Capability(200).String())
}
