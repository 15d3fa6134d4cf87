package particles

import "sync"

// FieldKey identifies one memoized field.
type FieldKey struct {
	Row       Row
	Intensity Intensity
}

// FieldCache memoizes raindrop fields per (row, intensity) for the lifetime of a mount.
// Repeated lookups return the same slice until Invalidate is called.
type FieldCache struct {
	gen        *Generator
	forceSplat bool

	mu     sync.Mutex
	fields map[FieldKey][]Spec
}

// NewFieldCache creates a cache backed by gen. forceSplat applies to every field it generates.
func NewFieldCache(gen *Generator, forceSplat bool) *FieldCache {
	return &FieldCache{
		gen:        gen,
		forceSplat: forceSplat,
		fields:     make(map[FieldKey][]Spec),
	}
}

// Field returns the memoized field for row and intensity, generating it on first use.
// Callers must not modify the returned slice.
func (c *FieldCache) Field(row Row, intensity Intensity) []Spec {
	key := FieldKey{Row: row, Intensity: intensity}

	c.mu.Lock()
	defer c.mu.Unlock()

	if field, ok := c.fields[key]; ok {
		return field
	}

	field := c.gen.Field(row, intensity, c.forceSplat)
	c.fields[key] = field
	return field
}

// Len returns the number of memoized fields.
func (c *FieldCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.fields)
}

// Invalidate drops every memoized field. The next lookup regenerates.
func (c *FieldCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fields = make(map[FieldKey][]Spec)
}
