package model

// Attributes is a mutable bag of values shared by everything that takes part
// in one compilation. Visitors use it to pass information from one round to a
// later one. It is not safe for concurrent use; processing is single-threaded.
type Attributes struct {
	values map[string]interface{}
}

// NewAttributes returns an empty bag.
func NewAttributes() *Attributes {
	return &Attributes{values: map[string]interface{}{}}
}

// Get returns the value stored under key.
func (a *Attributes) Get(key string) (interface{}, bool) {
	v, ok := a.values[key]
	return v, ok
}

// Put stores a value, replacing any previous one.
func (a *Attributes) Put(key string, v interface{}) {
	a.values[key] = v
}

// Remove deletes the value stored under key.
func (a *Attributes) Remove(key string) {
	delete(a.values, key)
}

// Contains returns true if a value is stored under key.
func (a *Attributes) Contains(key string) bool {
	_, ok := a.values[key]
	return ok
}

// Attr returns the value stored under key if it has type T.
func Attr[T any](a *Attributes, key string) (T, bool) {
	v, ok := a.values[key].(T)
	return v, ok
}

// AttrOrInit returns the value stored under key, first storing the result of
// init if there is no value of type T yet.
func AttrOrInit[T any](a *Attributes, key string, init func() T) T {
	if v, ok := a.values[key].(T); ok {
		return v
	}
	v := init()
	a.values[key] = v
	return v
}
