package object

const dictInitialCapacity = 8
const dictMaxLoad = 0.75

// NewDictionary allocates an empty open-addressed Dictionary.
func NewDictionary() *DictionaryObject {
	return &DictionaryObject{
		Header:  Header{Kind: KindDictionary},
		entries: make([]entry, dictInitialCapacity),
	}
}

// Len returns the number of live (non-tombstone) entries.
func (d *DictionaryObject) Len() int { return d.count }

func (d *DictionaryObject) findSlot(key Value, hash uint32, heap *Heap) int {
	cap := len(d.entries)
	idx := int(hash) % cap
	var tombstone = -1
	for {
		e := &d.entries[idx]
		if !e.present {
			if !e.key.IsUndefined() {
				// Truly empty slot (zero-valued key).
				if tombstone != -1 {
					return tombstone
				}
				return idx
			}
			// Tombstone (key set to Undefined sentinel, spec.md §3.3).
			if tombstone == -1 {
				tombstone = idx
			}
		} else if ValuesEqual(e.key, key) {
			return idx
		}
		idx = (idx + 1) % cap
	}
}

// Get looks up key, returning (value, true) if present.
func (d *DictionaryObject) Get(key Value, heap *Heap) (Value, bool) {
	if len(d.entries) == 0 {
		return Nil, false
	}
	hash := HashValue(key, heap)
	idx := d.findSlot(key, hash, heap)
	e := &d.entries[idx]
	if !e.present {
		return Nil, false
	}
	return e.value, true
}

// Set inserts or overwrites key -> value, growing the table if the load
// factor exceeds dictMaxLoad.
func (d *DictionaryObject) Set(key, value Value, heap *Heap) {
	if float64(d.count+1) > float64(len(d.entries))*dictMaxLoad {
		d.grow(heap)
	}
	hash := HashValue(key, heap)
	idx := d.findSlot(key, hash, heap)
	e := &d.entries[idx]
	isNew := !e.present
	if isNew && e.key.IsUndefined() {
		d.count++
	} else if isNew {
		// reusing a tombstone slot still counts as a new live entry
		d.count++
	}
	e.key = key
	e.value = value
	e.present = true
}

// Delete removes key, leaving an Undefined-keyed tombstone behind so
// probe chains through this slot remain valid (spec.md §3.3).
func (d *DictionaryObject) Delete(key Value, heap *Heap) bool {
	if len(d.entries) == 0 {
		return false
	}
	hash := HashValue(key, heap)
	idx := d.findSlot(key, hash, heap)
	e := &d.entries[idx]
	if !e.present {
		return false
	}
	e.present = false
	e.key = Undefined
	e.value = Nil
	d.count--
	return true
}

func (d *DictionaryObject) grow(heap *Heap) {
	old := d.entries
	newCap := len(old) * 2
	if newCap == 0 {
		newCap = dictInitialCapacity
	}
	d.entries = make([]entry, newCap)
	d.count = 0
	for _, e := range old {
		if e.present {
			d.Set(e.key, e.value, heap)
		}
	}
}

// Each calls fn for every live entry, in table order (not insertion
// order). Used by GC tracing and by language-level iteration primitives.
func (d *DictionaryObject) Each(fn func(key, value Value)) {
	for _, e := range d.entries {
		if e.present {
			fn(e.key, e.value)
		}
	}
}
