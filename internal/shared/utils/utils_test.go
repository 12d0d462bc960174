package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidatePermissions(t *testing.T) {
	assert.NoError(t, ValidatePermissions([]string{"filesystem.read.*", "app.launch.notepad", "admin"}))
	assert.Error(t, ValidatePermissions([]string{""}))
	assert.Error(t, ValidatePermissions([]string{"app..launch"}))
	assert.Error(t, ValidatePermissions([]string{"app.*.launch"}))
}

func TestValidateAppID(t *testing.T) {
	assert.NoError(t, ValidateAppID("com.example.clock"))
	assert.Error(t, ValidateAppID(""))
	assert.Error(t, ValidateAppID(".."))
	assert.Error(t, ValidateAppID("a/b"))
}

func TestValidateJSONDepth(t *testing.T) {
	assert.NoError(t, ValidateJSONDepth([]byte(`{"a":{"b":1}}`), 3))
	assert.Error(t, ValidateJSONDepth([]byte(`{"a":{"b":{"c":{"d":1}}}}`), 2))
	assert.Error(t, ValidateJSONDepth([]byte(`{`), 2))
}

func TestHashJSONDeterministic(t *testing.T) {
	a, err := HashJSON(map[string]int{"x": 1, "y": 2})
	assert.NoError(t, err)
	b, err := HashJSON(map[string]int{"y": 2, "x": 1})
	assert.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, ShortHash(a), 8)
}
