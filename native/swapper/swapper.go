package swapper

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"pthooks/core/events"
	"pthooks/core/state"
	"pthooks/core/types"
)

var (
	ErrNilState     = errors.New("swapper: state not configured")
	ErrZeroAccount  = errors.New("swapper: zero account")
	ErrNotOwner     = errors.New("swapper: caller does not own swapper")
	ErrUnknown      = errors.New("swapper: unknown swapper")
	ErrInvalidParam = errors.New("swapper: invalid parameters")
)

// MaxScaledOfferFactor is the scaled offer factor representing a 100% oracle
// quote.
const MaxScaledOfferFactor = 1_000_000

// Params configures a new swapper handle.
type Params struct {
	TokenToBeneficiary string
	// ScaledOfferFactor discounts the oracle quote; 990000 pays out 99% of it.
	ScaledOfferFactor uint32
}

func (p Params) validate() error {
	if state.NormalizeAsset(p.TokenToBeneficiary) == "" {
		return fmt.Errorf("%w: token required", ErrInvalidParam)
	}
	if p.ScaledOfferFactor == 0 || p.ScaledOfferFactor > MaxScaledOfferFactor {
		return fmt.Errorf("%w: scaled offer factor %d", ErrInvalidParam, p.ScaledOfferFactor)
	}
	return nil
}

type factoryState interface {
	NextCounter(scope string) (uint64, error)
	SwapperRecordGet(addr [20]byte) (*state.SwapperRecord, bool, error)
	SwapperRecordPut(rec *state.SwapperRecord) error
}

// Factory creates swapper handles and tracks their ownership.
type Factory interface {
	Create(owner, beneficiary [20]byte, params Params) (*state.SwapperRecord, error)
	Get(handle [20]byte) (*state.SwapperRecord, bool, error)
	TransferOwnership(caller, handle, next [20]byte) error
}

// StateFactory is a Factory persisting handles in journaled state. Handle
// addresses derive from the factory address and a creation counter.
type StateFactory struct {
	address [20]byte
	state   factoryState
	nowFn   func() int64
}

// NewStateFactory constructs a factory at address.
func NewStateFactory(st factoryState, address [20]byte) (*StateFactory, error) {
	if st == nil {
		return nil, ErrNilState
	}
	return &StateFactory{address: address, state: st, nowFn: func() int64 { return time.Now().Unix() }}, nil
}

// SetNowFunc overrides the time source used for deterministic testing.
func (f *StateFactory) SetNowFunc(now func() int64) {
	if now == nil {
		f.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	f.nowFn = now
}

func (f *StateFactory) Create(owner, beneficiary [20]byte, params Params) (*state.SwapperRecord, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	nonce, err := f.state.NextCounter("swapper-factory/" + types.HexAddress(f.address))
	if err != nil {
		return nil, err
	}
	buf := binary.BigEndian.AppendUint64(append([]byte{}, f.address[:]...), nonce)
	var handle [20]byte
	copy(handle[:], ethcrypto.Keccak256(buf)[12:])
	rec := &state.SwapperRecord{
		Address:            handle,
		Owner:              owner,
		Beneficiary:        beneficiary,
		TokenToBeneficiary: state.NormalizeAsset(params.TokenToBeneficiary),
		ScaledOfferFactor:  params.ScaledOfferFactor,
		CreatedAt:          uint64(f.nowFn()),
	}
	if err := f.state.SwapperRecordPut(rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (f *StateFactory) Get(handle [20]byte) (*state.SwapperRecord, bool, error) {
	return f.state.SwapperRecordGet(handle)
}

func (f *StateFactory) TransferOwnership(caller, handle, next [20]byte) error {
	rec, ok, err := f.state.SwapperRecordGet(handle)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUnknown
	}
	if rec.Owner != caller {
		return ErrNotOwner
	}
	rec.Owner = next
	return f.state.SwapperRecordPut(rec)
}

type bindingState interface {
	SwapperBinding(scope [20]byte, account [20]byte) ([20]byte, bool, error)
	SetSwapperBinding(scope [20]byte, account [20]byte, handle [20]byte) error
	DeleteSwapperBinding(scope [20]byte, account [20]byte)
}

// Manager keeps at most one active swapper per account. The manager owns
// every bound swapper and hands ownership to the account whenever a binding
// is superseded or removed, so no binding disappears without a recovery path.
type Manager struct {
	address [20]byte
	state   bindingState
	factory Factory
	emitter events.Emitter
}

// NewManager constructs a binding manager identified by address.
func NewManager(st bindingState, factory Factory, address [20]byte) (*Manager, error) {
	if st == nil || factory == nil {
		return nil, ErrNilState
	}
	return &Manager{address: address, state: st, factory: factory, emitter: events.NoopEmitter{}}, nil
}

// SetEmitter configures the event emitter used by the manager.
func (m *Manager) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		m.emitter = events.NoopEmitter{}
		return
	}
	m.emitter = emitter
}

// Address returns the manager identity that owns bound swappers.
func (m *Manager) Address() [20]byte { return m.address }

// Lookup returns the swapper bound to account without side effects.
func (m *Manager) Lookup(account [20]byte) ([20]byte, bool, error) {
	return m.state.SwapperBinding(m.address, account)
}

// GetOrCreate returns the existing binding unchanged or creates one.
func (m *Manager) GetOrCreate(account [20]byte, params Params) ([20]byte, error) {
	if types.IsZeroAddress(account) {
		return [20]byte{}, ErrZeroAccount
	}
	if handle, ok, err := m.Lookup(account); err != nil || ok {
		return handle, err
	}
	return m.create(account, params, [20]byte{}, "created")
}

func (m *Manager) create(account [20]byte, params Params, old [20]byte, action string) ([20]byte, error) {
	rec, err := m.factory.Create(m.address, account, params)
	if err != nil {
		return [20]byte{}, err
	}
	if err := m.state.SetSwapperBinding(m.address, account, rec.Address); err != nil {
		return [20]byte{}, err
	}
	m.emitter.Emit(events.SwapperBindingChanged{Account: account, Action: action, OldSwapper: old, NewSwapper: rec.Address})
	return rec.Address, nil
}

// Replace hands any existing swapper to account and binds a new one. The
// replacement is created before the old handle changes owner, so a failing
// factory leaves the binding and its ownership untouched.
func (m *Manager) Replace(account [20]byte, params Params) ([20]byte, error) {
	if types.IsZeroAddress(account) {
		return [20]byte{}, ErrZeroAccount
	}
	if err := params.validate(); err != nil {
		return [20]byte{}, err
	}
	old, ok, err := m.Lookup(account)
	if err != nil {
		return [20]byte{}, err
	}
	if !ok {
		return m.create(account, params, [20]byte{}, "created")
	}
	rec, err := m.factory.Create(m.address, account, params)
	if err != nil {
		return [20]byte{}, err
	}
	if err := m.factory.TransferOwnership(m.address, old, account); err != nil {
		// The fresh handle is unbound; release it to the account.
		if releaseErr := m.factory.TransferOwnership(m.address, rec.Address, account); releaseErr != nil {
			err = errors.Join(err, releaseErr)
		}
		return [20]byte{}, err
	}
	if err := m.state.SetSwapperBinding(m.address, account, rec.Address); err != nil {
		return [20]byte{}, err
	}
	m.emitter.Emit(events.SwapperBindingChanged{Account: account, Action: "replaced", OldSwapper: old, NewSwapper: rec.Address})
	return rec.Address, nil
}

// RemoveAndRecover hands the bound swapper to account and clears the
// binding. It returns the released handle, or ok=false when none existed.
func (m *Manager) RemoveAndRecover(account [20]byte) ([20]byte, bool, error) {
	old, ok, err := m.Lookup(account)
	if err != nil || !ok {
		return [20]byte{}, false, err
	}
	if err := m.factory.TransferOwnership(m.address, old, account); err != nil {
		return [20]byte{}, false, err
	}
	m.state.DeleteSwapperBinding(m.address, account)
	m.emitter.Emit(events.SwapperBindingChanged{Account: account, Action: "removed", OldSwapper: old})
	return old, true, nil
}
