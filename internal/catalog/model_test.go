package catalog

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeID(t *testing.T) {
	assert.Equal(t, "prod-1", NormalizeID("drafts.prod-1"))
	assert.Equal(t, "prod-1", NormalizeID("prod-1"))
	assert.Equal(t, "", NormalizeID("drafts."))
}

func TestCategoryLabel_String(t *testing.T) {
	var c CategoryLabel
	require.NoError(t, json.Unmarshal([]byte(`"Electronics"`), &c))
	assert.Equal(t, "Electronics", string(c))
}

func TestCategoryLabel_Object(t *testing.T) {
	var c CategoryLabel
	require.NoError(t, json.Unmarshal([]byte(`{"title":"Electronics","_type":"category"}`), &c))
	assert.Equal(t, "Electronics", string(c))
}

func TestCategoryLabel_Invalid(t *testing.T) {
	var c CategoryLabel
	assert.Error(t, json.Unmarshal([]byte(`42`), &c))
}

func TestSlugField_String(t *testing.T) {
	var s SlugField
	require.NoError(t, json.Unmarshal([]byte(`"wireless-mouse"`), &s))
	assert.Equal(t, "wireless-mouse", string(s))
}

func TestSlugField_Object(t *testing.T) {
	var s SlugField
	require.NoError(t, json.Unmarshal([]byte(`{"current":"wireless-mouse","_type":"slug"}`), &s))
	assert.Equal(t, "wireless-mouse", string(s))
}
