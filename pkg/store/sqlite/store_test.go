package sqlite

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChrisMcGann/RamanKey/pkg/core"
)

func openTemp(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "library.db")
	s, err := Open(path)
	require.NoError(t, err)
	return s, path
}

func calcite() *core.Record {
	return &core.Record{
		Name:        "Calcite",
		Wavenumbers: []float64{155.5, 281.25, 711, 1085.75},
		Intensities: []float64{20, 35, 15, 100},
		Peaks:       []float64{281.25, 1085.75},
		Metadata: core.Metadata{
			core.KeyName:              "Calcite",
			core.KeyChemistryElements: "Ca, C, O",
		},
	}
}

func TestPutAndGet(t *testing.T) {
	s, _ := openTemp(t)
	defer s.Close()

	require.NoError(t, s.Put(calcite()))

	rec, ok := s.Get("Calcite")
	require.True(t, ok)
	want := calcite()
	assert.Equal(t, want.Wavenumbers, rec.Wavenumbers)
	assert.Equal(t, want.Intensities, rec.Intensities)
	assert.Equal(t, want.Peaks, rec.Peaks)
	assert.Equal(t, want.Metadata, rec.Metadata)

	_, ok = s.Get("Quartz")
	assert.False(t, ok)
	assert.NoError(t, s.Err())
}

func TestPutReplacesKeepingOrder(t *testing.T) {
	s, _ := openTemp(t)
	defer s.Close()

	for _, name := range []string{"Calcite", "Quartz", "Gypsum"} {
		rec := calcite()
		rec.Name = name
		require.NoError(t, s.Put(rec))
	}

	updated := calcite()
	updated.Intensities = []float64{1, 2, 3, 4}
	updated.Metadata = core.Metadata{core.KeyName: "Calcite"}
	require.NoError(t, s.Put(updated))

	assert.Equal(t, []string{"Calcite", "Quartz", "Gypsum"}, s.Names())

	rec, ok := s.Get("Calcite")
	require.True(t, ok)
	assert.Equal(t, []float64{1, 2, 3, 4}, rec.Intensities)
	assert.Equal(t, core.Metadata{core.KeyName: "Calcite"}, rec.Metadata)

	n, err := s.Count()
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestPutRejectsInvalidRecords(t *testing.T) {
	s, _ := openTemp(t)
	defer s.Close()

	assert.Error(t, s.Put(nil))
	assert.Error(t, s.Put(&core.Record{Wavenumbers: []float64{1}, Intensities: []float64{1}}))
	assert.Error(t, s.Put(&core.Record{Name: "Broken", Wavenumbers: []float64{1, 2}, Intensities: []float64{1}}))

	n, err := s.Count()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestReopenPersists(t *testing.T) {
	s, path := openTemp(t)
	require.NoError(t, s.Put(calcite()))
	require.NoError(t, s.SetDescription("RRUFF excellent oriented"))
	require.NoError(t, s.Close())

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	records, err := s.Records()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Calcite", records[0].Name)

	h, err := s.Header()
	require.NoError(t, err)
	assert.Equal(t, schemaVersion, h.Version)
	assert.Equal(t, "RRUFF excellent oriented", h.Description)
	assert.NotEmpty(t, h.CreationDate)
	assert.NotEmpty(t, h.LastModifiedDate)
}

func TestStoreAsLibrary(t *testing.T) {
	s, _ := openTemp(t)
	defer s.Close()
	require.NoError(t, s.Put(calcite()))

	var lib core.Library = s
	records := core.Records(lib)
	require.Len(t, records, 1)
	assert.Equal(t, "Calcite", records[0].Name)
}

func TestDecodeFloat64(t *testing.T) {
	values, err := decodeFloat64(encodeFloat64([]float64{1.5, -2, 1e-9}))
	require.NoError(t, err)
	assert.Equal(t, []float64{1.5, -2, 1e-9}, values)

	_, err = decodeFloat64([]byte{1, 2, 3})
	assert.Error(t, err)
}
