package state

var (
	flagPrefix    = []byte("flag")
	counterPrefix = []byte("counter")
)

// Flag reports whether the boolean marker under scope/key has been set.
func (m *Manager) Flag(scope string, key []byte) (bool, error) {
	_, ok, err := m.get(hashKey(flagPrefix, []byte(scope), key))
	return ok, err
}

// SetFlag sets the boolean marker under scope/key.
func (m *Manager) SetFlag(scope string, key []byte) {
	m.put(hashKey(flagPrefix, []byte(scope), key), []byte{1})
}

// ClearFlag removes the marker under scope/key.
func (m *Manager) ClearFlag(scope string, key []byte) {
	m.delete(hashKey(flagPrefix, []byte(scope), key))
}

// NextCounter increments and returns the counter stored under scope. The
// first call returns 1.
func (m *Manager) NextCounter(scope string) (uint64, error) {
	key := hashKey(counterPrefix, []byte(scope))
	var current uint64
	if _, err := m.getRLP(key, &current); err != nil {
		return 0, err
	}
	current++
	if err := m.putRLP(key, current); err != nil {
		return 0, err
	}
	return current, nil
}
