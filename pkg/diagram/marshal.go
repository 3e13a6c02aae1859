package diagram

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// Document is the canonical serialization format for a sub-diagram.
// Used for diagram files, API payloads, caching, and report storage.
//
// The format is designed for round-trip fidelity: import → optimize →
// export → re-import preserves block indices, wire order, and every path
// point (anchors included) exactly.
type Document struct {
	ID     string  `json:"id" bson:"id"`
	Blocks []Block `json:"blocks" bson:"blocks"`
	Wires  []Wire  `json:"wires" bson:"wires"`
}

// ToDocument converts a sub-diagram arena to its serialization format.
// Removed blocks are emitted with empty IDs to preserve arena indices.
func ToDocument(s *SubDiagram) Document {
	doc := Document{
		ID:     s.ID,
		Blocks: make([]Block, len(s.blocks)),
		Wires:  make([]Wire, len(s.wires)),
	}
	for i, b := range s.blocks {
		if b.removed {
			doc.Blocks[i] = Block{}
			continue
		}
		doc.Blocks[i] = b
	}
	copy(doc.Wires, s.wires)
	return doc
}

// FromDocument rebuilds a sub-diagram arena from its serialization
// format. Blocks with empty IDs occupy their slots as removed tombstones
// so wire port references resolve against the original indices.
func FromDocument(doc Document) (*SubDiagram, error) {
	s := New(doc.ID)
	for i, b := range doc.Blocks {
		if b.ID == "" {
			s.blocks = append(s.blocks, Block{removed: true})
			continue
		}
		if _, exists := s.blockID[b.ID]; exists {
			return nil, fmt.Errorf("block %d (%s): %w", i, b.ID, ErrDuplicateBlockID)
		}
		s.blockID[b.ID] = len(s.blocks)
		s.blocks = append(s.blocks, b)
	}
	for i, w := range doc.Wires {
		if len(w.To) == 0 {
			return nil, fmt.Errorf("wire %d: %w", i, ErrNoDestination)
		}
		s.wires = append(s.wires, w)
	}
	return s, nil
}

// Marshal serializes a sub-diagram to indented JSON.
func Marshal(s *SubDiagram) ([]byte, error) {
	return json.MarshalIndent(ToDocument(s), "", "  ")
}

// Unmarshal deserializes JSON bytes into a sub-diagram arena.
func Unmarshal(data []byte) (*SubDiagram, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return FromDocument(doc)
}

// Read deserializes a sub-diagram from a reader.
func Read(r io.Reader) (*SubDiagram, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return Unmarshal(data)
}

// ReadFile loads a sub-diagram from a JSON diagram file.
func ReadFile(path string) (*SubDiagram, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s, err := Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return s, nil
}

// WriteFile saves a sub-diagram to path. When backup is true and the file
// already exists, the previous contents are first copied to
// "<path>.<timestamp>.bak" so an optimization run can always be rolled
// back by hand.
func WriteFile(path string, s *SubDiagram, backup bool) error {
	if backup {
		if err := backupFile(path); err != nil {
			return err
		}
	}
	data, err := Marshal(s)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0644)
}

// backupFile copies an existing file aside with a timestamp suffix.
// A missing original is not an error (first write has nothing to back up).
func backupFile(path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	bak := fmt.Sprintf("%s.%s.bak", path, time.Now().Format("20060102-150405"))
	return os.WriteFile(bak, data, 0644)
}
