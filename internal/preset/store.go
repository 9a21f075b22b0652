package preset

import (
	"fmt"
	"os"
	"strings"

	"github.com/Conceptual-Machines/hb100-editor/internal/logger"
)

// Store is the editor's preset registry: one authoritative set of presets
// reachable through two indexes, the device slot (1..200) and the name.
// A preset may appear in both indexes at once; destroying it through either
// one drops it from both. The store is confined to the dispatch path and is
// not safe for concurrent use.
type Store struct {
	byID   map[int]*Preset
	byName map[string]*Preset
	names  []string
	folder string
}

// NewStore creates a registry. If folder is non-empty it is created (parents
// included) and every preset retrieved from the device is saved there.
func NewStore(folder string) (*Store, error) {
	s := &Store{
		byID:   make(map[int]*Preset),
		byName: make(map[string]*Preset),
	}
	if folder == "" {
		logger.Info("Presets folder: none (won't save retrieved presets)", nil)
		return s, nil
	}
	info, err := os.Stat(folder)
	switch {
	case err == nil && !info.IsDir():
		return nil, fmt.Errorf("%w: not a directory: %s", ErrInvalidArgument, folder)
	case err != nil:
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("stat %s: %w", folder, err)
		}
		if err := os.MkdirAll(folder, 0644); err != nil {
			return nil, fmt.Errorf("mkdir %s: %w", folder, err)
		}
	}
	s.folder = folder
	logger.Info("Presets folder", logger.Fields{"path": folder})
	return s, nil
}

// Folder returns the configured save folder, or "".
func (s *Store) Folder() string {
	return s.folder
}

// AddByID registers the preset under a device slot, setting its id. The slot
// must be free.
func (s *Store) AddByID(p *Preset, id int) error {
	if p == nil || id < 1 || id > MaxID {
		return ErrInvalidArgument
	}
	if _, taken := s.byID[id]; taken {
		return fmt.Errorf("%w: slot %d already taken", ErrInvalidArgument, id)
	}
	p.ID = id
	s.byID[id] = p
	return nil
}

// AddByName registers the preset under its (non-empty) name.
func (s *Store) AddByName(p *Preset) error {
	if p == nil || p.Name == "" {
		return ErrInvalidArgument
	}
	if _, seen := s.byName[p.Name]; !seen {
		s.names = append(s.names, p.Name)
	}
	s.byName[p.Name] = p
	return nil
}

// FindByID looks a preset up by device slot.
func (s *Store) FindByID(id int) *Preset {
	if id < 1 || id > MaxID {
		return nil
	}
	return s.byID[id]
}

// FindByName looks a preset up by name.
func (s *Store) FindByName(name string) *Preset {
	if name == "" {
		return nil
	}
	return s.byName[name]
}

// RemoveByID drops a slot entry. With destroy the preset is removed from the
// name index too; otherwise it is just detached from the slot index.
func (s *Store) RemoveByID(id int, destroy bool) error {
	p := s.FindByID(id)
	if p == nil {
		return fmt.Errorf("%w: slot %d", ErrNotFound, id)
	}
	delete(s.byID, id)
	if destroy {
		s.dropName(p)
	}
	return nil
}

// RemoveByName drops a name entry. With destroy the preset is removed from
// the slot index too.
func (s *Store) RemoveByName(name string, destroy bool) error {
	p := s.FindByName(name)
	if p == nil {
		return fmt.Errorf("%w: '%s'", ErrNotFound, name)
	}
	s.dropName(p)
	if destroy {
		for id, q := range s.byID {
			if q == p {
				delete(s.byID, id)
			}
		}
	}
	return nil
}

func (s *Store) dropName(p *Preset) {
	for name, q := range s.byName {
		if q != p {
			continue
		}
		delete(s.byName, name)
		for i, n := range s.names {
			if n == name {
				s.names = append(s.names[:i], s.names[i+1:]...)
				break
			}
		}
	}
}

// ListRow is one entry of a store listing. Device rows for empty slots have
// a nil preset.
type ListRow struct {
	Slot int
	P    *Preset
}

// List returns the device slots 1..200 in order (empty slots included) and
// then the named presets in insertion order.
func (s *Store) List() (device []ListRow, named []*Preset) {
	device = make([]ListRow, 0, MaxID)
	for id := 1; id <= MaxID; id++ {
		device = append(device, ListRow{Slot: id, P: s.byID[id]})
	}
	for _, name := range s.names {
		named = append(named, s.byName[name])
	}
	return device, named
}

// Document renders the listing as a JSON-able payload for API completions.
func (s *Store) Document() map[string]any {
	device := make([]any, 0, MaxID)
	named := make([]any, 0, len(s.names))
	rows, names := s.List()
	for _, row := range rows {
		if row.P == nil {
			device = append(device, nil)
			continue
		}
		device = append(device, map[string]any{"id": row.P.ID, "name": row.P.Name})
	}
	for _, p := range names {
		named = append(named, map[string]any{"name": p.Name})
	}
	return map[string]any{"device": device, "named": named}
}

// Print renders the listing the way the interactive CLI shows it: slot rows
// in three columns, then the named index.
func (s *Store) Print() string {
	var b strings.Builder
	b.WriteString("Device presets:\n")
	rows, named := s.List()
	populated := false
	for _, row := range rows {
		if row.P != nil {
			populated = true
			break
		}
	}
	if !populated {
		b.WriteString(" (none)")
	} else {
		b.WriteString(" ")
		for i, row := range rows {
			id, name := 0, ""
			if row.P != nil {
				id, name = row.P.ID, row.P.Name
			}
			fmt.Fprintf(&b, "[%03d] %-14s   ", id, name)
			if (i+1)%3 == 0 {
				b.WriteString("\n ")
			}
		}
	}
	b.WriteString("\n\nNamed presets:\n")
	if len(named) == 0 {
		b.WriteString(" (none)")
	} else {
		b.WriteString(" ")
		for i, p := range named {
			fmt.Fprintf(&b, "[XXX] %-14s   ", p.Name)
			if (i+1)%3 == 0 {
				b.WriteString("\n ")
			}
		}
	}
	b.WriteString("\n")
	return b.String()
}
