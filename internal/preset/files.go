package preset

import (
	"fmt"
	"os"

	"github.com/Conceptual-Machines/hb100-editor/internal/logger"
)

const maxPHBFileSize = 4096

// ReadFile loads a preset from disk. Binary files need at least 184 bytes;
// anything past the first 184 is ignored with a warning. PHB files are
// capped at 4 KiB.
func ReadFile(path string, phb bool) (*Preset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if phb {
		if len(data) > maxPHBFileSize {
			data = data[:maxPHBFileSize]
		}
		return FromPHB(string(data))
	}
	if len(data) < Size {
		return nil, fmt.Errorf("%w: %s is %d bytes, need %d", ErrMalformedPreset, path, len(data), Size)
	}
	if len(data) > Size {
		logger.Warn("Binary preset file larger than expected, truncating", logger.Fields{
			"path": path, "size": len(data),
		})
	}
	return FromBytes(data[:Size])
}

// WriteFile serialises a preset to disk. Binary files are written as the raw
// 184 byte form; PHB files get the JSON text plus a terminating newline.
func WriteFile(p *Preset, path string, phb bool) error {
	var data []byte
	if phb {
		text, err := p.ToPHB()
		if err != nil {
			return err
		}
		data = append([]byte(text), '\n')
	} else {
		buf, err := p.Bytes()
		if err != nil {
			return err
		}
		data = buf
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	logger.Info("Saved preset to file", logger.Fields{"path": path, "bytes": len(data)})
	return nil
}

// Import reads a preset file and, on success, registers it in the store
// under its name.
func (s *Store) Import(path string, phb bool) (*Preset, error) {
	p, err := ReadFile(path, phb)
	if err != nil {
		return nil, err
	}
	if err := s.AddByName(p); err != nil {
		return nil, err
	}
	return p, nil
}

// Export writes a preset to disk in the requested format.
func Export(p *Preset, path string, phb bool) error {
	if p == nil || path == "" {
		return ErrInvalidArgument
	}
	return WriteFile(p, path, phb)
}
