package rmap

// Entry is a key value pair captured by a snapshot.
// It is not updated by later writes to the map.
type Entry struct {
	key   string
	value string
	m     *Map
}

// Key returns the key of the entry
func (e *Entry) Key() string {
	return e.key
}

// Value returns the value of the entry as of the snapshot or the last SetValue
func (e *Entry) Value() string {
	return e.value
}

// SetValue writes the value through to the map and updates the local copy.
// It returns the value the map held before.
func (e *Entry) SetValue(value string) (string, error) {
	prev, _, err := e.m.Put(e.key, value)
	if err != nil {
		return "", err
	}
	e.value = value
	return prev, nil
}

// String formats the entry as key=value
func (e *Entry) String() string {
	return e.key + "=" + e.value
}
