package types

import "strings"

// DataType enumerates the scalar column types the core understands.
// A DataType of KindExtension carries an opaque type OID and name registered by the
// (out-of-scope) extension registry; the core stores it but never inspects
// ExtName/ExtOID beyond round-tripping them through the catalog.
type DataType struct {
	Kind    Kind
	ExtOID  uint32
	ExtName string
}

func IntType() DataType    { return DataType{Kind: KindInt} }
func FloatType() DataType  { return DataType{Kind: KindFloat} }
func StringType() DataType { return DataType{Kind: KindString} }
func BoolType() DataType   { return DataType{Kind: KindBool} }

// Column describes one column in a table schema.
type Column struct {
	Name        string
	Type        DataType
	IsPrimaryKey bool
}

// Schema is the ordered list of columns making up a table's shape.
type Schema struct {
	Columns []Column
}

func NewSchema(columns []Column) Schema { return Schema{Columns: columns} }

// ColumnIndex returns the position of the named column, matched
// case-insensitively, or -1 if the schema has no such column.
func (s Schema) ColumnIndex(name string) int {
	for i, c := range s.Columns {
		if strings.EqualFold(c.Name, name) {
			return i
		}
	}
	return -1
}

// PrimaryKeyIndex returns the position of the column flagged as the primary
// key. When no column carries the flag, it falls back to column 0 - tables
// created without an explicit PK still get a usable row identity, matching
// the executor's assumption that every table has a primary index.
func (s Schema) PrimaryKeyIndex() int {
	for i, c := range s.Columns {
		if c.IsPrimaryKey {
			return i
		}
	}
	if len(s.Columns) > 0 {
		return 0
	}
	return -1
}

func (s Schema) Len() int      { return len(s.Columns) }
func (s Schema) IsEmpty() bool { return len(s.Columns) == 0 }
