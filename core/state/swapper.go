package state

var (
	swapperBindingPrefix = []byte("swapper-binding")
	swapperRecordPrefix  = []byte("swapper-record")
)

// SwapperRecord describes a swapper handle created on behalf of an account.
type SwapperRecord struct {
	Address            [20]byte
	Owner              [20]byte
	Beneficiary        [20]byte
	TokenToBeneficiary string
	ScaledOfferFactor  uint32
	CreatedAt          uint64
}

type storedSwapperRecord struct {
	Address            []byte
	Owner              []byte
	Beneficiary        []byte
	TokenToBeneficiary string
	ScaledOfferFactor  uint32
	CreatedAt          uint64
}

// SwapperBinding returns the handle bound to account within the manager scope.
func (m *Manager) SwapperBinding(scope [20]byte, account [20]byte) ([20]byte, bool, error) {
	var raw []byte
	ok, err := m.getRLP(hashKey(swapperBindingPrefix, scope[:], account[:]), &raw)
	if err != nil || !ok {
		return [20]byte{}, false, err
	}
	var handle [20]byte
	copy(handle[:], raw)
	return handle, true, nil
}

// SetSwapperBinding binds handle to account within the manager scope.
func (m *Manager) SetSwapperBinding(scope [20]byte, account [20]byte, handle [20]byte) error {
	return m.putRLP(hashKey(swapperBindingPrefix, scope[:], account[:]), handle[:])
}

// DeleteSwapperBinding clears the binding of account within the manager scope.
func (m *Manager) DeleteSwapperBinding(scope [20]byte, account [20]byte) {
	m.delete(hashKey(swapperBindingPrefix, scope[:], account[:]))
}

// SwapperRecordGet loads the record of the swapper at addr.
func (m *Manager) SwapperRecordGet(addr [20]byte) (*SwapperRecord, bool, error) {
	var stored storedSwapperRecord
	ok, err := m.getRLP(hashKey(swapperRecordPrefix, addr[:]), &stored)
	if err != nil || !ok {
		return nil, false, err
	}
	rec := &SwapperRecord{
		TokenToBeneficiary: stored.TokenToBeneficiary,
		ScaledOfferFactor:  stored.ScaledOfferFactor,
		CreatedAt:          stored.CreatedAt,
	}
	copy(rec.Address[:], stored.Address)
	copy(rec.Owner[:], stored.Owner)
	copy(rec.Beneficiary[:], stored.Beneficiary)
	return rec, true, nil
}

// SwapperRecordPut stores the swapper record keyed by its address.
func (m *Manager) SwapperRecordPut(rec *SwapperRecord) error {
	if rec == nil {
		return nil
	}
	return m.putRLP(hashKey(swapperRecordPrefix, rec.Address[:]), storedSwapperRecord{
		Address:            append([]byte(nil), rec.Address[:]...),
		Owner:              append([]byte(nil), rec.Owner[:]...),
		Beneficiary:        append([]byte(nil), rec.Beneficiary[:]...),
		TokenToBeneficiary: rec.TokenToBeneficiary,
		ScaledOfferFactor:  rec.ScaledOfferFactor,
		CreatedAt:          rec.CreatedAt,
	})
}
