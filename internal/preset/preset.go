// Package preset implements the HB100 preset model and its three
// representations: the 184 byte binary dump the device speaks, the PHB JSON
// file format of the vendor editor, and the in-memory form used everywhere
// else. It also provides the registry the editor keeps presets in.
package preset

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/Conceptual-Machines/hb100-editor/internal/catalog"
)

const (
	// Size is the exact length of a binary preset dump.
	Size = 184
	// NameSize is the length of the name field in the binary layout.
	NameSize = 14
	// MaxID is the highest device slot.
	MaxID = 200
)

// Effect is the state of one section slot in a preset.
type Effect struct {
	Type   int
	Active bool
	ID     uint16
	Values [catalog.MaxParams]uint16
}

// Preset is a named snapshot of the device's nine effect blocks and six
// expression pedal parameters. ID is the device slot (1..200), or 0 when the
// preset is not assigned to a slot (e.g. freshly imported from a PHB file).
type Preset struct {
	ID          int
	Name        string
	Effects     [catalog.NumSections]Effect
	Expressions [catalog.NumExpressions]uint16
}

// FromBytes parses a preset from its 184 byte binary form.
func FromBytes(buf []byte) (*Preset, error) {
	if len(buf) != Size {
		return nil, fmt.Errorf("%w: need %d bytes, got %d", ErrInvalidArgument, Size, len(buf))
	}
	p := &Preset{}
	offset := 0
	p.ID = int(buf[offset])
	offset++
	p.Name = trimName(buf[offset : offset+NameSize])
	offset += NameSize
	for i := range catalog.Sections {
		section := &catalog.Sections[i]
		if err := p.parseEffect(i, buf[offset:offset+section.Size]); err != nil {
			return nil, err
		}
		offset += section.Size
	}
	for i := 0; i < catalog.NumExpressions; i++ {
		p.Expressions[i] = binary.LittleEndian.Uint16(buf[offset:])
		offset += 2
	}
	return p, nil
}

func (p *Preset) parseEffect(index int, block []byte) error {
	section := &catalog.Sections[index]
	e := &p.Effects[index]
	e.Type = index
	e.Active = binary.LittleEndian.Uint16(block[0:]) != 0
	e.ID = binary.LittleEndian.Uint16(block[2:])
	effect, ok := section.Lookup(e.ID)
	if !ok {
		return fmt.Errorf("%w: section %s selector %d", ErrUnknownEffect, section.Name, e.ID)
	}
	offset := 4
	for i := 0; i < effect.Params; i++ {
		e.Values[i] = binary.LittleEndian.Uint16(block[offset:])
		offset += 2
	}
	return nil
}

// ToBytes serialises the preset into buf, which must be exactly 184 bytes.
// Value slots beyond an effect's declared parameter count stay zero.
func (p *Preset) ToBytes(buf []byte) error {
	if len(buf) != Size {
		return fmt.Errorf("%w: need %d bytes, got %d", ErrInvalidArgument, Size, len(buf))
	}
	for i := range buf {
		buf[i] = 0
	}
	offset := 0
	buf[offset] = byte(p.ID)
	offset++
	copy(buf[offset:offset+NameSize], p.Name)
	offset += NameSize
	for i := range catalog.Sections {
		section := &catalog.Sections[i]
		e := &p.Effects[i]
		block := buf[offset:]
		var active uint16
		if e.Active {
			active = 1
		}
		binary.LittleEndian.PutUint16(block[0:], active)
		binary.LittleEndian.PutUint16(block[2:], e.ID)
		if effect, ok := section.Lookup(e.ID); ok {
			for j := 0; j < effect.Params; j++ {
				binary.LittleEndian.PutUint16(block[4+2*j:], e.Values[j])
			}
		}
		offset += section.Size
	}
	for i := 0; i < catalog.NumExpressions; i++ {
		binary.LittleEndian.PutUint16(buf[offset:], p.Expressions[i])
		offset += 2
	}
	return nil
}

// Bytes returns the binary form as a fresh slice.
func (p *Preset) Bytes() ([]byte, error) {
	buf := make([]byte, Size)
	if err := p.ToBytes(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// Describe renders a human readable dump of the preset: each section's
// state, the chosen effect and its named parameter values, then the
// expression pedal settings.
func (p *Preset) Describe() string {
	var b strings.Builder
	fmt.Fprintf(&b, "ID:   %d\n", p.ID)
	fmt.Fprintf(&b, "Name: %s\n", p.Name)
	b.WriteString("Effects\n")
	for i := range catalog.Sections {
		section := &catalog.Sections[i]
		e := &p.Effects[i]
		state := "off"
		if e.Active {
			state = "on"
		}
		fmt.Fprintf(&b, "  -- %s\n", section.Name)
		fmt.Fprintf(&b, "  -- -- State: %s\n", state)
		effect, ok := section.Lookup(e.ID)
		if !ok {
			fmt.Fprintf(&b, "  -- -- Effect: unknown (%d)\n", e.ID)
			continue
		}
		fmt.Fprintf(&b, "  -- -- Effect: %s\n", effect.Name)
		for j := 0; j < effect.Params; j++ {
			fmt.Fprintf(&b, "  -- -- -- %s: %d\n", effect.ParamNames[j], e.Values[j])
		}
	}
	b.WriteString("Expression\n")
	for i, name := range catalog.Expressions {
		fmt.Fprintf(&b, "  -- %s: %d\n", name, p.Expressions[i])
	}
	return b.String()
}

// trimName interprets a fixed-size name field: stop at the first NUL, then
// drop surrounding whitespace.
func trimName(field []byte) string {
	end := len(field)
	for i, c := range field {
		if c == 0 {
			end = i
			break
		}
	}
	return strings.TrimSpace(string(field[:end]))
}
