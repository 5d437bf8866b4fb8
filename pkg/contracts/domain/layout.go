package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// LayoutSignature is a short stable fingerprint of a recognized table
// layout. Two documents whose columns map to the same ordered set of
// canonical fields share a signature regardless of how many raw PDF
// columns each table had.
type LayoutSignature string

// ComputeLayoutSignature derives the signature from canonical fields in
// column order. The digest is truncated; 16 hex chars are plenty for
// the handful of layouts Meralco has ever published.
func ComputeLayoutSignature(fields []CanonicalField) LayoutSignature {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = string(f)
	}
	sum := sha256.Sum256([]byte(strings.Join(names, "|")))
	return LayoutSignature(hex.EncodeToString(sum[:])[:16])
}

// ColumnAssignment binds one raw table column to a canonical field.
type ColumnAssignment struct {
	Column int            `json:"column"`
	Field  CanonicalField `json:"field"`
}

// ColumnMapping is an immutable resolved mapping from raw column
// indices to canonical fields for one document layout.
type ColumnMapping struct {
	byColumn map[int]CanonicalField
	byField  map[CanonicalField]int
	ordered  []ColumnAssignment
}

// NewColumnMapping validates and freezes a set of assignments. Both
// column indices and canonical fields must be unique.
func NewColumnMapping(assignments []ColumnAssignment) (*ColumnMapping, error) {
	m := &ColumnMapping{
		byColumn: make(map[int]CanonicalField, len(assignments)),
		byField:  make(map[CanonicalField]int, len(assignments)),
	}
	ordered := make([]ColumnAssignment, len(assignments))
	copy(ordered, assignments)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Column < ordered[j].Column })
	for _, a := range ordered {
		if a.Column < 0 {
			return nil, fmt.Errorf("column index %d out of range", a.Column)
		}
		if prev, ok := m.byColumn[a.Column]; ok {
			return nil, fmt.Errorf("column %d assigned to both %s and %s", a.Column, prev, a.Field)
		}
		if prev, ok := m.byField[a.Field]; ok {
			return nil, fmt.Errorf("field %s mapped by both column %d and column %d", a.Field, prev, a.Column)
		}
		m.byColumn[a.Column] = a.Field
		m.byField[a.Field] = a.Column
	}
	m.ordered = ordered
	return m, nil
}

// Column returns the raw column index mapped to the field.
func (m *ColumnMapping) Column(f CanonicalField) (int, bool) {
	col, ok := m.byField[f]
	return col, ok
}

// Field returns the canonical field mapped to the raw column index.
func (m *ColumnMapping) Field(col int) (CanonicalField, bool) {
	f, ok := m.byColumn[col]
	return f, ok
}

// Has reports whether the field is mapped.
func (m *ColumnMapping) Has(f CanonicalField) bool {
	_, ok := m.byField[f]
	return ok
}

// Fields lists the mapped canonical fields in raw column order.
func (m *ColumnMapping) Fields() []CanonicalField {
	fields := make([]CanonicalField, len(m.ordered))
	for i, a := range m.ordered {
		fields[i] = a.Field
	}
	return fields
}

// Assignments returns a copy of the column/field pairs in column order.
func (m *ColumnMapping) Assignments() []ColumnAssignment {
	out := make([]ColumnAssignment, len(m.ordered))
	copy(out, m.ordered)
	return out
}

// Len reports the number of mapped columns.
func (m *ColumnMapping) Len() int {
	return len(m.ordered)
}

// Signature fingerprints the mapping by its ordered canonical fields.
// Raw column positions are deliberately excluded so cosmetic layout
// shifts (extra spacer columns, reordered whitespace) do not produce a
// new signature.
func (m *ColumnMapping) Signature() LayoutSignature {
	return ComputeLayoutSignature(m.Fields())
}
