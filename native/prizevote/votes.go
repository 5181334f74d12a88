package prizevote

import (
	"errors"
	"math/big"

	"pthooks/core/events"
	"pthooks/core/types"
	"pthooks/native/prizepool"
)

var (
	ErrNilState      = errors.New("prizevote: state not configured")
	ErrZeroAddress   = errors.New("prizevote: zero address")
	ErrNegativeValue = errors.New("prizevote: vote must not be negative")
)

type voteState interface {
	Vote(scope [20]byte, account [20]byte) (*big.Int, error)
	SetVote(scope [20]byte, account [20]byte, value *big.Int) error
}

// Votes records the minimum prize value each account wants to receive.
// Accounts set their own vote; zero means no preference.
type Votes struct {
	scope   [20]byte
	state   voteState
	emitter events.Emitter
}

// NewVotes binds a vote book to scope.
func NewVotes(st voteState, scope [20]byte) (*Votes, error) {
	if st == nil {
		return nil, ErrNilState
	}
	if types.IsZeroAddress(scope) {
		return nil, ErrZeroAddress
	}
	return &Votes{scope: scope, state: st, emitter: events.NoopEmitter{}}, nil
}

// SetEmitter configures the event emitter used by the vote book.
func (v *Votes) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		v.emitter = events.NoopEmitter{}
		return
	}
	v.emitter = emitter
}

// SetVote records the caller's own preference.
func (v *Votes) SetVote(account [20]byte, value *big.Int) error {
	if types.IsZeroAddress(account) {
		return ErrZeroAddress
	}
	current := big.NewInt(0)
	if value != nil {
		if value.Sign() < 0 {
			return ErrNegativeValue
		}
		current.Set(value)
	}
	previous, err := v.state.Vote(v.scope, account)
	if err != nil {
		return err
	}
	if previous.Cmp(current) == 0 {
		return nil
	}
	if err := v.state.SetVote(v.scope, account, current); err != nil {
		return err
	}
	v.emitter.Emit(events.VoteChanged{Account: account, Previous: previous, Current: current})
	return nil
}

// VoteOf returns the account's preference.
func (v *Votes) VoteOf(account [20]byte) (*big.Int, error) {
	return v.state.Vote(v.scope, account)
}

// Preference returns the average vote of accounts weighted by their
// time-weighted balance in vault over [start, end). Accounts without a vote
// or without balance carry no weight. It returns zero when nobody does.
func (v *Votes) Preference(twab prizepool.TwabController, vault [20]byte, accounts [][20]byte, start, end int64) (*big.Int, error) {
	weighted := new(big.Int)
	total := new(big.Int)
	for _, account := range accounts {
		vote, err := v.VoteOf(account)
		if err != nil {
			return nil, err
		}
		if vote.Sign() == 0 {
			continue
		}
		weight, err := twab.GetTwabBetween(vault, account, start, end)
		if err != nil {
			return nil, err
		}
		if weight.Sign() == 0 {
			continue
		}
		weighted.Add(weighted, new(big.Int).Mul(vote, weight))
		total.Add(total, weight)
	}
	if total.Sign() == 0 {
		return big.NewInt(0), nil
	}
	return weighted.Quo(weighted, total), nil
}
