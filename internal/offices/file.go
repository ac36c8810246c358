package offices

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/iwkbu-monitor/iwkbu-monitor/internal/rekap"
)

// FileRepository serves office tables parsed from a JSON catalogue:
//
//	{"tables": {"rekap": [{"sequence": 1, "parent_group": "KANWIL ...", ...}]}}
type FileRepository struct {
	tables map[string][]rekap.OfficeDescriptor
}

type catalogueFile struct {
	Tables map[string][]rekap.OfficeDescriptor `json:"tables"`
}

// LoadFile reads and validates the catalogue at path.
func LoadFile(path string) (*FileRepository, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("offices: open catalogue: %w", err)
	}
	defer func() { _ = f.Close() }()
	return Parse(f)
}

// Parse reads a catalogue document.
func Parse(r io.Reader) (*FileRepository, error) {
	var doc catalogueFile
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("offices: decode catalogue: %w", err)
	}
	if len(doc.Tables) == 0 {
		return nil, fmt.Errorf("offices: catalogue has no tables")
	}
	for name, table := range doc.Tables {
		for i := range table {
			table[i].ParentGroup = strings.TrimSpace(table[i].ParentGroup)
		}
		if err := Validate(name, table); err != nil {
			return nil, err
		}
	}
	return &FileRepository{tables: doc.Tables}, nil
}

// NewStatic wraps in-memory tables.
func NewStatic(tables map[string][]rekap.OfficeDescriptor) *FileRepository {
	return &FileRepository{tables: tables}
}

// Table returns a copy of the named table.
func (r *FileRepository) Table(_ context.Context, name string) ([]rekap.OfficeDescriptor, error) {
	table, ok := r.tables[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", rekap.ErrTableNotFound, name)
	}
	out := make([]rekap.OfficeDescriptor, len(table))
	copy(out, table)
	return out, nil
}

// Tables lists table names in sorted order.
func (r *FileRepository) Tables(context.Context) ([]string, error) {
	names := make([]string, 0, len(r.tables))
	for name := range r.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

var _ Repository = (*FileRepository)(nil)
