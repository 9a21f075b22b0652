package preset

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Conceptual-Machines/hb100-editor/internal/catalog"
)

// samplePreset builds a preset exercising every section with a valid
// selector and distinctive parameter values.
func samplePreset(t *testing.T) *Preset {
	t.Helper()
	p := &Preset{ID: 42, Name: "Crunchy Lead"}
	for i := range catalog.Sections {
		section := &catalog.Sections[i]
		selector := uint16(i % len(section.Effects))
		effect, ok := section.Lookup(selector)
		require.True(t, ok)
		p.Effects[i] = Effect{Type: i, Active: i%2 == 0, ID: selector}
		for j := 0; j < effect.Params; j++ {
			p.Effects[i].Values[j] = uint16(100*i + 10 + j)
		}
	}
	for i := range p.Expressions {
		p.Expressions[i] = uint16(1000 + i)
	}
	return p
}

func TestBinaryRoundTrip(t *testing.T) {
	p := samplePreset(t)
	buf, err := p.Bytes()
	require.NoError(t, err)
	require.Len(t, buf, Size)

	q, err := FromBytes(buf)
	require.NoError(t, err)
	assert.Equal(t, p, q)
}

func TestBinaryEncodeDeterministic(t *testing.T) {
	p := samplePreset(t)
	a, err := p.Bytes()
	require.NoError(t, err)
	b, err := p.Bytes()
	require.NoError(t, err)
	assert.True(t, bytes.Equal(a, b))
}

func TestBinaryLayoutOffsets(t *testing.T) {
	p := samplePreset(t)
	buf, err := p.Bytes()
	require.NoError(t, err)

	assert.Equal(t, byte(42), buf[0])
	assert.Equal(t, "Crunchy Lead", trimName(buf[1:15]))
	// Expressions live in the last 12 bytes.
	assert.Equal(t, byte(1000%256), buf[172])
	assert.Equal(t, byte(1000/256), buf[173])
}

func TestCatalogueTotality(t *testing.T) {
	// Every selector in the catalogue survives an encode/decode cycle with
	// all of its declared parameter values; slots beyond the declared count
	// encode as zero.
	for si := range catalog.Sections {
		section := &catalog.Sections[si]
		for _, effect := range section.Effects {
			p := &Preset{ID: 1, Name: "T"}
			for i := range catalog.Sections {
				p.Effects[i] = Effect{Type: i, ID: 0}
			}
			p.Effects[si] = Effect{Type: si, Active: true, ID: effect.ID}
			for j := 0; j < catalog.MaxParams; j++ {
				p.Effects[si].Values[j] = uint16(j + 1)
			}
			buf, err := p.Bytes()
			require.NoError(t, err)
			q, err := FromBytes(buf)
			require.NoError(t, err, "%s/%s", section.Name, effect.Name)
			for j := 0; j < effect.Params; j++ {
				assert.Equal(t, uint16(j+1), q.Effects[si].Values[j])
			}
			for j := effect.Params; j < catalog.MaxParams; j++ {
				assert.Zero(t, q.Effects[si].Values[j],
					"%s/%s slot %d", section.Name, effect.Name, j)
			}
		}
	}
}

func TestFromBytesRejectsWrongSize(t *testing.T) {
	_, err := FromBytes(make([]byte, Size-1))
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = FromBytes(make([]byte, Size+1))
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestToBytesRejectsWrongSize(t *testing.T) {
	p := samplePreset(t)
	assert.ErrorIs(t, p.ToBytes(make([]byte, Size-1)), ErrInvalidArgument)
}

func TestFromBytesUnknownSelector(t *testing.T) {
	p := samplePreset(t)
	buf, err := p.Bytes()
	require.NoError(t, err)
	// Corrupt the FXCOMP selector (offset 15 + 2).
	buf[17] = 0xff
	_, err = FromBytes(buf)
	assert.ErrorIs(t, err, ErrUnknownEffect)
	assert.ErrorIs(t, err, ErrMalformedPreset)
}

func TestNameTrimming(t *testing.T) {
	p := samplePreset(t)
	p.Name = " Spacey "
	buf, err := p.Bytes()
	require.NoError(t, err)
	q, err := FromBytes(buf)
	require.NoError(t, err)
	assert.Equal(t, "Spacey", q.Name)
}

func TestDescribeListsEverySection(t *testing.T) {
	text := samplePreset(t).Describe()
	for _, s := range catalog.Sections {
		assert.Contains(t, text, s.Name)
	}
	for _, name := range catalog.Expressions {
		assert.Contains(t, text, name)
	}
}
