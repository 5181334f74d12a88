package state

var recordPrefix = []byte("record")

// Record decodes the rlp value stored under scope/key into out.
func (m *Manager) Record(scope string, key []byte, out interface{}) (bool, error) {
	return m.getRLP(hashKey(recordPrefix, []byte(scope), key), out)
}

// PutRecord rlp-encodes value under scope/key.
func (m *Manager) PutRecord(scope string, key []byte, value interface{}) error {
	return m.putRLP(hashKey(recordPrefix, []byte(scope), key), value)
}
