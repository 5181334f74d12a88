package access

import (
	"errors"

	"pthooks/core/events"
	"pthooks/core/types"
)

var (
	ErrNilState      = errors.New("access: state not configured")
	ErrUnauthorized  = errors.New("access: caller is not the owner")
	ErrZeroAddress   = errors.New("access: zero address")
	ErrOwnerNotFound = errors.New("access: owner not set")
)

type registryState interface {
	Owner(scope string) ([20]byte, bool, error)
	SetOwner(scope string, owner [20]byte) error
	Trusted(scope string, subject [20]byte) (bool, error)
	SetTrusted(scope string, subject [20]byte, trusted bool) error
	TrustedList(scope string) ([][20]byte, error)
}

// TrustRegistry records the callers a hook grants privileged effects to.
// Only the owner may grow or shrink it; nothing removes an entry implicitly.
type TrustRegistry struct {
	scope   string
	state   registryState
	emitter events.Emitter
}

// NewTrustRegistry binds a registry to scope and records owner if the scope
// has no owner yet.
func NewTrustRegistry(state registryState, scope string, owner [20]byte, emitter events.Emitter) (*TrustRegistry, error) {
	if state == nil {
		return nil, ErrNilState
	}
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	r := &TrustRegistry{scope: scope, state: state, emitter: emitter}
	if _, ok, err := state.Owner(scope); err != nil {
		return nil, err
	} else if !ok {
		if types.IsZeroAddress(owner) {
			return nil, ErrZeroAddress
		}
		if err := state.SetOwner(scope, owner); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Scope returns the storage scope of the registry.
func (r *TrustRegistry) Scope() string { return r.scope }

// Owner returns the current owner.
func (r *TrustRegistry) Owner() ([20]byte, error) {
	owner, ok, err := r.state.Owner(r.scope)
	if err != nil {
		return [20]byte{}, err
	}
	if !ok {
		return [20]byte{}, ErrOwnerNotFound
	}
	return owner, nil
}

func (r *TrustRegistry) onlyOwner(caller [20]byte) error {
	owner, err := r.Owner()
	if err != nil {
		return err
	}
	if owner != caller {
		return ErrUnauthorized
	}
	return nil
}

// TransferOwnership hands the owner capability to next.
func (r *TrustRegistry) TransferOwnership(caller, next [20]byte) error {
	if err := r.onlyOwner(caller); err != nil {
		return err
	}
	if types.IsZeroAddress(next) {
		return ErrZeroAddress
	}
	if err := r.state.SetOwner(r.scope, next); err != nil {
		return err
	}
	r.emitter.Emit(events.OwnershipTransferred{Registry: r.scope, Previous: caller, Current: next})
	return nil
}

// Grant marks subject as trusted.
func (r *TrustRegistry) Grant(caller, subject [20]byte) error {
	if err := r.onlyOwner(caller); err != nil {
		return err
	}
	if types.IsZeroAddress(subject) {
		return ErrZeroAddress
	}
	if err := r.state.SetTrusted(r.scope, subject, true); err != nil {
		return err
	}
	r.emitter.Emit(events.TrustGranted{Registry: r.scope, Owner: caller, Subject: subject})
	return nil
}

// Revoke removes subject from the registry.
func (r *TrustRegistry) Revoke(caller, subject [20]byte) error {
	if err := r.onlyOwner(caller); err != nil {
		return err
	}
	if err := r.state.SetTrusted(r.scope, subject, false); err != nil {
		return err
	}
	r.emitter.Emit(events.TrustRevoked{Registry: r.scope, Owner: caller, Subject: subject})
	return nil
}

// IsTrusted reports whether subject may trigger privileged effects.
func (r *TrustRegistry) IsTrusted(subject [20]byte) (bool, error) {
	if types.IsZeroAddress(subject) {
		return false, nil
	}
	return r.state.Trusted(r.scope, subject)
}

// List returns the trusted subjects in grant order.
func (r *TrustRegistry) List() ([][20]byte, error) {
	return r.state.TrustedList(r.scope)
}
