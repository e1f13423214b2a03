package local

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// ~ snapshot section
// a snapshot keeps collections, documents and graphs; cursors are dropped

type snapshot struct {
	NextID    int                  `json:"nextID"`
	Databases map[string]*database `json:"databases"`
}

// Save writes the server state to filePath as indented json, creating its directory
func (s *Server) Save(filePath string) error {
	s.m.Lock()
	data, err := json.MarshalIndent(snapshot{NextID: s.nextID, Databases: s.databases}, "", "  ")
	s.m.Unlock()
	if err != nil {
		return fmt.Errorf("encode server state: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return fmt.Errorf("save server state to %s: %w", filePath, err)
	}
	if err := os.WriteFile(filePath, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("save server state to %s: %w", filePath, err)
	}
	return nil
}

// LoadServer restores a server saved with Save.
// A missing file gives a server with empty databases of dbNames.
// Null entries in the snapshot are skipped.
func LoadServer(filePath string, dbNames ...string) (*Server, error) {
	s := NewServer(dbNames...)

	data, err := os.ReadFile(filePath)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load server state from %s: %w", filePath, err)
	}
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("load server state from %s: %w", filePath, err)
	}

	if snap.NextID > s.nextID {
		s.nextID = snap.NextID
	}
	for name, d := range snap.Databases {
		restored := newDatabase()
		if d != nil {
			for n, c := range d.Collections {
				if c == nil {
					continue
				}
				restored.Collections[n] = c
				restored.ids.Put(c.ID, n)
			}
			for n, g := range d.Graphs {
				if g == nil {
					continue
				}
				restored.Graphs[n] = g
			}
		}
		s.databases[name] = restored
	}
	return s, nil
}
