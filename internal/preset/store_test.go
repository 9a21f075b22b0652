package preset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore("")
	require.NoError(t, err)
	return s
}

func TestAddByIDRejectsOccupiedSlot(t *testing.T) {
	s := newTestStore(t)
	p := samplePreset(t)
	q := samplePreset(t)
	q.Name = "Other"

	require.NoError(t, s.AddByID(p, 7))
	assert.Equal(t, 7, p.ID)
	assert.ErrorIs(t, s.AddByID(q, 7), ErrInvalidArgument)
	assert.Same(t, p, s.FindByID(7))
}

func TestAddByIDRange(t *testing.T) {
	s := newTestStore(t)
	p := samplePreset(t)
	assert.ErrorIs(t, s.AddByID(p, 0), ErrInvalidArgument)
	assert.ErrorIs(t, s.AddByID(p, 201), ErrInvalidArgument)
	assert.ErrorIs(t, s.AddByID(nil, 3), ErrInvalidArgument)
}

func TestRemoveByIDDestroy(t *testing.T) {
	s := newTestStore(t)
	p := samplePreset(t)
	require.NoError(t, s.AddByID(p, 7))
	require.NoError(t, s.AddByName(p))

	require.NoError(t, s.RemoveByID(7, true))
	assert.Nil(t, s.FindByID(7))
	// Destroy drops the entity from the name index too.
	assert.Nil(t, s.FindByName(p.Name))
}

func TestRemoveByIDSteal(t *testing.T) {
	s := newTestStore(t)
	p := samplePreset(t)
	require.NoError(t, s.AddByID(p, 7))
	require.NoError(t, s.AddByName(p))

	require.NoError(t, s.RemoveByID(7, false))
	assert.Nil(t, s.FindByID(7))
	assert.Same(t, p, s.FindByName(p.Name))
}

func TestRemoveByNameDestroy(t *testing.T) {
	s := newTestStore(t)
	p := samplePreset(t)
	require.NoError(t, s.AddByID(p, 9))
	require.NoError(t, s.AddByName(p))

	require.NoError(t, s.RemoveByName(p.Name, true))
	assert.Nil(t, s.FindByName(p.Name))
	assert.Nil(t, s.FindByID(9))
}

func TestRemoveMissing(t *testing.T) {
	s := newTestStore(t)
	assert.ErrorIs(t, s.RemoveByID(5, true), ErrNotFound)
	assert.ErrorIs(t, s.RemoveByName("ghost", true), ErrNotFound)
}

func TestListOrder(t *testing.T) {
	s := newTestStore(t)
	a := samplePreset(t)
	a.Name = "Alpha"
	b := samplePreset(t)
	b.Name = "Beta"
	require.NoError(t, s.AddByID(b, 3))
	require.NoError(t, s.AddByID(a, 1))
	require.NoError(t, s.AddByName(b))
	require.NoError(t, s.AddByName(a))

	device, named := s.List()
	require.Len(t, device, MaxID)
	assert.Same(t, a, device[0].P)
	assert.Nil(t, device[1].P)
	assert.Same(t, b, device[2].P)
	// Named entries keep insertion order.
	require.Len(t, named, 2)
	assert.Equal(t, "Beta", named[0].Name)
	assert.Equal(t, "Alpha", named[1].Name)
}

func TestDocumentShape(t *testing.T) {
	s := newTestStore(t)
	p := samplePreset(t)
	require.NoError(t, s.AddByID(p, 2))
	doc := s.Document()
	device := doc["device"].([]any)
	require.Len(t, device, MaxID)
	assert.Nil(t, device[0])
	row := device[1].(map[string]any)
	assert.Equal(t, p.Name, row["name"])
}

func TestNewStoreCreatesFolder(t *testing.T) {
	folder := filepath.Join(t.TempDir(), "presets")
	s, err := NewStore(folder)
	require.NoError(t, err)
	assert.Equal(t, folder, s.Folder())
	info, err := os.Stat(folder)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestNewStoreRejectsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
	_, err := NewStore(path)
	assert.Error(t, err)
}

func TestImportExportBinary(t *testing.T) {
	s := newTestStore(t)
	p := samplePreset(t)
	path := filepath.Join(t.TempDir(), "a.bhb")
	require.NoError(t, Export(p, path, false))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, data, Size)

	q, err := s.Import(path, false)
	require.NoError(t, err)
	assert.Equal(t, p.Name, q.Name)
	// Import registers the preset by name.
	assert.Same(t, q, s.FindByName(p.Name))
}

func TestImportExportPHB(t *testing.T) {
	s := newTestStore(t)
	p := samplePreset(t)
	path := filepath.Join(t.TempDir(), "a.phb")
	require.NoError(t, Export(p, path, true))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	// PHB exports end with a newline.
	require.NotEmpty(t, data)
	assert.Equal(t, byte('\n'), data[len(data)-1])

	q, err := s.Import(path, true)
	require.NoError(t, err)
	assert.Equal(t, p.Name, q.Name)
	assert.Zero(t, q.ID)
}
