// Package schema implements the typed field-schema and record storage the
// measurement plugins write into: append-only schemas handing out opaque
// field keys, records addressed by those keys, alias-based slot lookup, and
// catalogs of records sharing one schema.
package schema

import (
	"fmt"
	"sort"
	"sync/atomic"
)

// FieldType enumerates the storage types a schema field can have.
type FieldType int

const (
	// F64 is a double-precision numeric field.
	F64 FieldType = iota
	// Flag is a boolean failure/condition field.
	Flag
)

func (t FieldType) String() string {
	switch t {
	case F64:
		return "F64"
	case Flag:
		return "Flag"
	}
	return fmt.Sprintf("FieldType(%d)", int(t))
}

// Field describes one named slot in every record of a schema.
type Field struct {
	Name string
	Type FieldType
	Doc  string
}

var schemaIDs atomic.Uint64

// Schema is a mutable, append-only mapping from field names to typed slots.
// All mutation happens during pipeline setup; a schema is effectively frozen
// once measurement begins.
type Schema struct {
	id      uint64
	fields  []Field
	byName  map[string]Key
	nF64    int
	nFlag   int
	aliases *AliasMap
}

// New creates an empty schema.
func New() *Schema {
	return &Schema{
		id:      schemaIDs.Add(1),
		byName:  make(map[string]Key),
		aliases: NewAliasMap(),
	}
}

// MakeMinimalSchema creates a schema carrying the fields every source record
// has regardless of configured plugins: the sky coordinate pair.
func MakeMinimalSchema() *Schema {
	s := New()
	s.MustAddField("coord_ra", F64, "sky coordinate right ascension (radians)")
	s.MustAddField("coord_dec", F64, "sky coordinate declination (radians)")
	return s
}

// AddField appends a new typed field and returns its key. Duplicate names
// are rejected.
func (s *Schema) AddField(name string, t FieldType, doc string) (Key, error) {
	if _, exists := s.byName[name]; exists {
		return Key{}, fmt.Errorf("field %q already present in schema", name)
	}
	var index int
	switch t {
	case F64:
		index = s.nF64
		s.nF64++
	case Flag:
		index = s.nFlag
		s.nFlag++
	default:
		return Key{}, fmt.Errorf("unsupported field type %v for field %q", t, name)
	}
	k := Key{schemaID: s.id, typ: t, index: index, valid: true}
	s.fields = append(s.fields, Field{Name: name, Type: t, Doc: doc})
	s.byName[name] = k
	return k, nil
}

// MustAddField is AddField for setup code where a duplicate indicates a
// programmer error.
func (s *Schema) MustAddField(name string, t FieldType, doc string) Key {
	k, err := s.AddField(name, t, doc)
	if err != nil {
		panic(err)
	}
	return k
}

// Find returns the key for a field name, resolving aliases first.
func (s *Schema) Find(name string) (Key, bool) {
	resolved := s.aliases.Resolve(name)
	k, ok := s.byName[resolved]
	return k, ok
}

// HasField reports whether a field (after alias resolution) exists.
func (s *Schema) HasField(name string) bool {
	_, ok := s.Find(name)
	return ok
}

// Names returns all field names in a deterministic order.
func (s *Schema) Names() []string {
	names := make([]string, 0, len(s.byName))
	for n := range s.byName {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Fields returns the fields in allocation order.
func (s *Schema) Fields() []Field { return s.fields }

// Aliases returns the schema's alias map.
func (s *Schema) Aliases() *AliasMap { return s.aliases }

// Key is an opaque handle to one named, typed slot in every record of the
// schema that allocated it. The zero Key is invalid.
type Key struct {
	schemaID uint64
	typ      FieldType
	index    int
	valid    bool
}

// IsValid reports whether the key refers to an allocated field.
func (k Key) IsValid() bool { return k.valid }

// Type returns the key's field type.
func (k Key) Type() FieldType { return k.typ }

// Mapper pairs the reference (input) schema of a forced-measurement run with
// the output schema being built for the measurement catalog.
type Mapper struct {
	in  *Schema
	out *Schema
}

// NewMapper creates a mapper over a reference schema, starting the output
// from a fresh minimal schema.
func NewMapper(in *Schema) *Mapper {
	return &Mapper{in: in, out: MakeMinimalSchema()}
}

// InputSchema returns the reference schema.
func (m *Mapper) InputSchema() *Schema { return m.in }

// EditOutputSchema returns the output schema for field allocation.
func (m *Mapper) EditOutputSchema() *Schema { return m.out }
