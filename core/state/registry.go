package state

var (
	ownerPrefix      = []byte("owner")
	trustPrefix      = []byte("trust")
	trustIndexPrefix = []byte("trust-index")
)

// Owner returns the owner recorded for the scope.
func (m *Manager) Owner(scope string) ([20]byte, bool, error) {
	var raw []byte
	ok, err := m.getRLP(hashKey(ownerPrefix, []byte(scope)), &raw)
	if err != nil || !ok {
		return [20]byte{}, false, err
	}
	var owner [20]byte
	copy(owner[:], raw)
	return owner, true, nil
}

// SetOwner records the owner of the scope.
func (m *Manager) SetOwner(scope string, owner [20]byte) error {
	return m.putRLP(hashKey(ownerPrefix, []byte(scope)), owner[:])
}

// Trusted reports whether subject is recorded as trusted in the scope.
func (m *Manager) Trusted(scope string, subject [20]byte) (bool, error) {
	_, ok, err := m.get(hashKey(trustPrefix, []byte(scope), subject[:]))
	return ok, err
}

// SetTrusted records or clears trust for subject within the scope and keeps
// the scope's index in sync.
func (m *Manager) SetTrusted(scope string, subject [20]byte, trusted bool) error {
	key := hashKey(trustPrefix, []byte(scope), subject[:])
	list, err := m.TrustedList(scope)
	if err != nil {
		return err
	}
	pos := -1
	for i, existing := range list {
		if existing == subject {
			pos = i
			break
		}
	}
	if trusted {
		m.put(key, []byte{1})
		if pos >= 0 {
			return nil
		}
		list = append(list, subject)
	} else {
		m.delete(key)
		if pos < 0 {
			return nil
		}
		list = append(list[:pos], list[pos+1:]...)
	}
	return m.writeTrustIndex(scope, list)
}

// TrustedList returns the trusted subjects of the scope in grant order.
func (m *Manager) TrustedList(scope string) ([][20]byte, error) {
	var raw [][]byte
	if _, err := m.getRLP(hashKey(trustIndexPrefix, []byte(scope)), &raw); err != nil {
		return nil, err
	}
	out := make([][20]byte, len(raw))
	for i := range raw {
		copy(out[i][:], raw[i])
	}
	return out, nil
}

func (m *Manager) writeTrustIndex(scope string, list [][20]byte) error {
	raw := make([][]byte, len(list))
	for i := range list {
		raw[i] = append([]byte(nil), list[i][:]...)
	}
	return m.putRLP(hashKey(trustIndexPrefix, []byte(scope)), raw)
}
