package index

import (
	"github.com/cuemby/chubaodb-go/pkg/pserrors"
	"github.com/cuemby/chubaodb-go/pkg/types"
)

// FieldKind is the index-internal representation of a scalar field type.
type FieldKind int

const (
	KindInt64 FieldKind = iota
	KindFloat64
	KindStringKeyword
	KindTextTokenized
)

// SchemaField is one entry of the built schema, in declaration order. The
// two reserved bookkeeping fields (_iid, _iid_bytes) are not modeled as
// SchemaField entries: this engine keys postings directly by iid (a
// uint32), so no separate fast-access field is needed to decode a hit's
// iid out of a generic document. Only the schema's semantics
// (reserved-field count, array/null projection) are kept.
type SchemaField struct {
	Name  string
	Kind  FieldKind
	Array bool
}

// Schema is the built, validated index schema for one collection.
type Schema struct {
	Fields []SchemaField
}

// reservedFieldCount accounts for the two reserved fields (_iid,
// _iid_bytes) that always exist alongside any configured scalar fields;
// SpaceNoIndex fires when no scalar field was actually configured.
const reservedFieldCount = 2

func buildSchema(c *types.Collection) (*Schema, error) {
	s := &Schema{}
	for _, name := range c.ScalarFieldIndex {
		f, ok := c.FieldByName(name)
		if !ok {
			return nil, pserrors.New(types.FieldTypeErr, "scalar_field_index references unknown field %q", name)
		}
		kind, err := kindOf(f.Type)
		if err != nil {
			return nil, err
		}
		s.Fields = append(s.Fields, SchemaField{Name: f.Name, Kind: kind, Array: f.Array})
	}
	return s, nil
}

func kindOf(t types.FieldType) (FieldKind, error) {
	switch t {
	case types.FieldInt:
		return KindInt64, nil
	case types.FieldFloat:
		return KindFloat64, nil
	case types.FieldString:
		return KindStringKeyword, nil
	case types.FieldText:
		return KindTextTokenized, nil
	case types.FieldVector, types.FieldBytes:
		return 0, pserrors.New(types.FieldTypeErr, "field type %q cannot be indexed", t)
	default:
		return 0, pserrors.New(types.FieldTypeErr, "unknown field type %q", t)
	}
}

// checkIndex rejects a schema with no scalar fields configured (only the
// two reserved fields would exist): such a collection is not searchable.
func (s *Schema) checkIndex() error {
	if reservedFieldCount+len(s.Fields) <= reservedFieldCount {
		return pserrors.New(types.SpaceNoIndex, "collection has no indexed scalar fields")
	}
	return nil
}

func (s *Schema) fieldByName(name string) (SchemaField, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return SchemaField{}, false
}
