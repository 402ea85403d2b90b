package hashpage

import "maps"

// Data is an in-memory bag shared by pages for the life of the runtime.
type Data struct {
	values map[string]any
}

func newData() *Data {
	return &Data{values: make(map[string]any)}
}

// Get returns the value stored under key.
func (d *Data) Get(key string) (any, bool) {
	v, ok := d.values[key]
	return v, ok
}

// Set stores v under key.
func (d *Data) Set(key string, v any) {
	d.values[key] = v
}

// Delete removes key.
func (d *Data) Delete(key string) {
	delete(d.values, key)
}

// Merge copies every entry of values into the bag.
func (d *Data) Merge(values map[string]any) {
	maps.Copy(d.values, values)
}

// All returns a copy of the bag.
func (d *Data) All() map[string]any {
	return maps.Clone(d.values)
}
