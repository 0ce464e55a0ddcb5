package masking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskContact(t *testing.T) {
	assert.Equal(t, "****3210", MaskContact("9876543210"))
	assert.Equal(t, "****@example.com", MaskContact("ravi@example.com"))
	assert.Equal(t, "****", MaskContact("123"))
	assert.Equal(t, "", MaskContact("  "))
}

func TestMaskMetadataOnlyTouchesContactKeys(t *testing.T) {
	out := MaskMetadata(map[string]any{
		"name":   "Ravi",
		"mobile": "9876543210",
		"nested": map[string]any{"phone": "9123456789", "rate": 5.0},
	})

	assert.Equal(t, "Ravi", out["name"])
	assert.Equal(t, "****3210", out["mobile"])
	assert.Equal(t, map[string]any{"phone": "****6789", "rate": 5.0}, out["nested"])
	assert.Nil(t, MaskMetadata(nil))
}
