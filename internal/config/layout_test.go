package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLayoutValid(t *testing.T) {
	require.NoError(t, DefaultLayout().Validate(9))
}

func TestLayoutValidateMissingField(t *testing.T) {
	l := DefaultLayout()
	delete(l, FieldMap)
	assert.Error(t, l.Validate(9))
}

func TestLoadLayoutOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "layout.yaml")
	content := "fields:\n  phone:\n    row: 1\n    col: 5\n  folder_url:\n    row: 0\n    col: 20\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	l, err := LoadLayout(path)
	require.NoError(t, err)

	assert.Equal(t, Offset{Row: 1, Col: 5}, l[FieldPhone])
	assert.Equal(t, Offset{Row: 0, Col: 20}, l[FieldFolderURL])
	assert.Equal(t, DefaultLayout()[FieldName], l[FieldName])
}

func TestLoadLayoutUnknownField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "layout.yaml")
	require.NoError(t, os.WriteFile(path, []byte("fields:\n  fax:\n    row: 0\n    col: 1\n"), 0o600))

	_, err := LoadLayout(path)
	assert.ErrorContains(t, err, "fax")
}

func TestLoadLayoutEmptyPath(t *testing.T) {
	l, err := LoadLayout("")
	require.NoError(t, err)
	assert.Len(t, l.Fields(), len(requiredFields))
}
