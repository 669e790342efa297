package lvq

import (
	"bytes"
	"encoding/binary"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodec_RoundTripBitwise(t *testing.T) {
	c, err := New(4, 3)
	require.NoError(t, err)

	// Awkward doubles on purpose: negative zero, subnormals, extremes.
	require.NoError(t, c.Set([]float64{math.Copysign(0, -1), 1.5, -2.25, math.MaxFloat64}, 0))
	require.NoError(t, c.Set([]float64{math.SmallestNonzeroFloat64, -math.SmallestNonzeroFloat64, 0, 1e-310}, 1))
	require.NoError(t, c.Set([]float64{1.0 / 3.0, -0.1, 0.7, 42}, 2))
	require.NoError(t, c.SetLabels([]int{2, 0, 1}))

	var buf bytes.Buffer
	require.NoError(t, c.Store(&buf))

	got, err := Load(&buf)
	require.NoError(t, err)

	assert.Equal(t, c.Dim(), got.Dim())
	assert.Equal(t, c.Size(), got.Size())
	assert.Equal(t, c.Labels(), got.Labels())

	for i := 0; i < c.Size(); i++ {
		want, _ := c.Get(i)
		have, _ := got.Get(i)
		for j := range want {
			assert.Equal(t, math.Float64bits(want[j]), math.Float64bits(have[j]),
				"prototype %d component %d not bit-exact", i, j)
		}
	}
}

func TestCodec_RoundTripUnlabeled(t *testing.T) {
	c, err := New(2, 2)
	require.NoError(t, err)
	c.SetRandom(19)

	var buf bytes.Buffer
	require.NoError(t, c.Store(&buf))

	// Header + 2x2 doubles, no label section.
	assert.Len(t, buf.Bytes(), 15+2*2*8)

	got, err := Load(&buf)
	require.NoError(t, err)
	assert.Nil(t, got.Labels())
}

func TestCodec_FileRoundTrip(t *testing.T) {
	c, err := New(3, 2)
	require.NoError(t, err)
	c.SetRandom(7)
	require.NoError(t, c.SetLabels([]int{1, 0}))

	path := filepath.Join(t.TempDir(), "codebook.lvq")
	require.NoError(t, c.StoreFile(path))

	got, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, c.Labels(), got.Labels())

	want, _ := c.Get(1)
	have, _ := got.Get(1)
	assert.Equal(t, want, have)
}

func TestCodec_LoadErrors(t *testing.T) {
	c, err := New(2, 2)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, c.Store(&buf))
	blob := buf.Bytes()

	t.Run("bad magic", func(t *testing.T) {
		bad := append([]byte("XXX1"), blob[4:]...)
		_, err := Load(bytes.NewReader(bad))
		assert.ErrorIs(t, err, ErrFormat)
	})

	t.Run("unsupported version", func(t *testing.T) {
		bad := append([]byte(nil), blob...)
		binary.BigEndian.PutUint16(bad[4:6], 9)
		_, err := Load(bytes.NewReader(bad))
		assert.ErrorIs(t, err, ErrFormat)
	})

	t.Run("truncated header", func(t *testing.T) {
		_, err := Load(bytes.NewReader(blob[:10]))
		assert.ErrorIs(t, err, ErrFormat)
	})

	t.Run("truncated payload", func(t *testing.T) {
		_, err := Load(bytes.NewReader(blob[:len(blob)-3]))
		assert.ErrorIs(t, err, ErrFormat)
	})

	t.Run("non-finite component", func(t *testing.T) {
		bad := append([]byte(nil), blob...)
		binary.BigEndian.PutUint64(bad[15:23], math.Float64bits(math.NaN()))
		_, err := Load(bytes.NewReader(bad))
		assert.ErrorIs(t, err, ErrFormat)
	})

	t.Run("zero size", func(t *testing.T) {
		bad := append([]byte(nil), blob...)
		binary.BigEndian.PutUint32(bad[10:14], 0)
		_, err := Load(bytes.NewReader(bad))
		assert.ErrorIs(t, err, ErrFormat)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadFile(filepath.Join(t.TempDir(), "absent.lvq"))
		assert.ErrorIs(t, err, ErrIO)
	})
}
