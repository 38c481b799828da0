package schema

import (
	"fmt"
	"math"

	"github.com/vk/starmeasgo/internal/image"
)

// Record holds the measured values for one object. It is created once per
// detected source, mutated in place by each plugin in turn, and outlives the
// measurement run as catalog output.
//
// Numeric fields start as NaN so an unmeasured value is never mistaken for a
// measured zero; flag fields start false.
type Record struct {
	schema *Schema
	f64s   []float64
	flags  []bool

	id     int64
	parent int64

	footprint *image.Footprint
	heavy     *image.HeavyFootprint
}

// NewRecord creates a record for the given schema. Catalog.AddNew is the
// usual constructor; this exists for tests and forced-measurement internals.
func NewRecord(s *Schema) *Record {
	r := &Record{
		schema: s,
		f64s:   make([]float64, s.nF64),
		flags:  make([]bool, s.nFlag),
	}
	for i := range r.f64s {
		r.f64s[i] = math.NaN()
	}
	return r
}

// Schema returns the schema that owns this record's layout.
func (r *Record) Schema() *Schema { return r.schema }

// ID returns the record's catalog identifier.
func (r *Record) ID() int64 { return r.id }

// Parent returns the id of the record's pre-deblending parent, or 0.
func (r *Record) Parent() int64 { return r.parent }

// SetParent marks this record as a deblended child of the given record id.
func (r *Record) SetParent(id int64) { r.parent = id }

// Footprint returns the attached footprint, or nil.
func (r *Record) Footprint() *image.Footprint { return r.footprint }

// SetFootprint attaches a footprint.
func (r *Record) SetFootprint(fp *image.Footprint) { r.footprint = fp }

// HeavyFootprint returns the deblended per-object pixel data, or nil.
func (r *Record) HeavyFootprint() *image.HeavyFootprint { return r.heavy }

// SetHeavyFootprint attaches deblended pixel data; the plain footprint is
// updated to match.
func (r *Record) SetHeavyFootprint(h *image.HeavyFootprint) {
	r.heavy = h
	if h != nil {
		r.footprint = &h.Footprint
	}
}

func (r *Record) check(k Key, t FieldType) int {
	if !k.valid {
		panic("schema: use of invalid field key")
	}
	if k.schemaID != r.schema.id {
		panic(fmt.Sprintf("schema: key from schema %d used with record of schema %d", k.schemaID, r.schema.id))
	}
	if k.typ != t {
		panic(fmt.Sprintf("schema: %v key used where %v expected", k.typ, t))
	}
	return k.index
}

// GetF64 reads a numeric field.
func (r *Record) GetF64(k Key) float64 {
	return r.f64s[r.check(k, F64)]
}

// SetF64 writes a numeric field.
func (r *Record) SetF64(k Key, v float64) {
	r.f64s[r.check(k, F64)] = v
}

// GetFlag reads a flag field.
func (r *Record) GetFlag(k Key) bool {
	return r.flags[r.check(k, Flag)]
}

// SetFlag writes a flag field.
func (r *Record) SetFlag(k Key, v bool) {
	r.flags[r.check(k, Flag)] = v
}

// Catalog is an ordered collection of records sharing one schema.
type Catalog struct {
	schema  *Schema
	records []*Record
	nextID  int64
}

// NewCatalog creates an empty catalog over a schema.
func NewCatalog(s *Schema) *Catalog {
	return &Catalog{schema: s, nextID: 1}
}

// Schema returns the catalog's schema.
func (c *Catalog) Schema() *Schema { return c.schema }

// AddNew appends a fresh record and assigns it the next id.
func (c *Catalog) AddNew() *Record {
	r := NewRecord(c.schema)
	r.id = c.nextID
	c.nextID++
	c.records = append(c.records, r)
	return r
}

// AddWithID appends a fresh record carrying an externally assigned id, as
// forced measurement does when mirroring a reference catalog.
func (c *Catalog) AddWithID(id int64) *Record {
	r := NewRecord(c.schema)
	r.id = id
	if id >= c.nextID {
		c.nextID = id + 1
	}
	c.records = append(c.records, r)
	return r
}

// Records returns the records in insertion order.
func (c *Catalog) Records() []*Record { return c.records }

// Len returns the number of records.
func (c *Catalog) Len() int { return len(c.records) }
