package prizepool

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"pthooks/core/types"
)

const twabScope = "twab/observations"

var ErrInvalidRange = errors.New("twab: invalid time range")

type twabState interface {
	Record(scope string, key []byte, out interface{}) (bool, error)
	PutRecord(scope string, key []byte, value interface{}) error
}

// observation is the balance held from Timestamp onward together with the
// cumulative balance-seconds accrued up to Timestamp.
type observation struct {
	Timestamp  uint64
	Balance    *big.Int
	Cumulative *big.Int
}

// Twab is a time-weighted balance ledger stored in journaled state.
type Twab struct {
	state twabState
	nowFn func() int64
}

// NewTwab constructs a ledger over st.
func NewTwab(st twabState) (*Twab, error) {
	if st == nil {
		return nil, ErrNilState
	}
	return &Twab{state: st, nowFn: func() int64 { return time.Now().Unix() }}, nil
}

// SetNowFunc overrides the time source used for deterministic testing.
func (t *Twab) SetNowFunc(now func() int64) {
	if now == nil {
		t.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	t.nowFn = now
}

func twabKey(vault, account [20]byte) []byte {
	return append(append([]byte{}, vault[:]...), account[:]...)
}

func (t *Twab) load(vault, account [20]byte) ([]observation, error) {
	var obs []observation
	if _, err := t.state.Record(twabScope, twabKey(vault, account), &obs); err != nil {
		return nil, err
	}
	return obs, nil
}

func cumulativeAt(obs []observation, ts int64) *big.Int {
	if ts < 0 {
		return big.NewInt(0)
	}
	at := uint64(ts)
	for i := len(obs) - 1; i >= 0; i-- {
		if obs[i].Timestamp <= at {
			elapsed := new(big.Int).SetUint64(at - obs[i].Timestamp)
			out := new(big.Int).Mul(obs[i].Balance, elapsed)
			return out.Add(out, obs[i].Cumulative)
		}
	}
	return big.NewInt(0)
}

func (t *Twab) adjust(vault, account [20]byte, delta *big.Int) error {
	if types.IsZeroAddress(account) {
		return fmt.Errorf("twab: zero account")
	}
	now := t.nowFn()
	if now < 0 {
		return fmt.Errorf("twab: negative timestamp")
	}
	obs, err := t.load(vault, account)
	if err != nil {
		return err
	}
	balance := big.NewInt(0)
	if len(obs) > 0 {
		balance.Set(obs[len(obs)-1].Balance)
	}
	next := new(big.Int).Add(balance, delta)
	if next.Sign() < 0 {
		return fmt.Errorf("twab: burn exceeds balance %s", balance)
	}
	cum := cumulativeAt(obs, now)
	if len(obs) > 0 && obs[len(obs)-1].Timestamp == uint64(now) {
		obs[len(obs)-1].Balance = next
	} else {
		obs = append(obs, observation{Timestamp: uint64(now), Balance: next, Cumulative: cum})
	}
	return t.state.PutRecord(twabScope, twabKey(vault, account), obs)
}

func (t *Twab) Mint(vault, account [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	return t.adjust(vault, account, amount)
}

func (t *Twab) Burn(vault, account [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	return t.adjust(vault, account, new(big.Int).Neg(amount))
}

func (t *Twab) BalanceOf(vault, account [20]byte) (*big.Int, error) {
	obs, err := t.load(vault, account)
	if err != nil {
		return nil, err
	}
	if len(obs) == 0 {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(obs[len(obs)-1].Balance), nil
}

// GetTwabBetween returns the average balance over [start, end).
func (t *Twab) GetTwabBetween(vault, account [20]byte, start, end int64) (*big.Int, error) {
	if end <= start || start < 0 {
		return nil, ErrInvalidRange
	}
	obs, err := t.load(vault, account)
	if err != nil {
		return nil, err
	}
	diff := new(big.Int).Sub(cumulativeAt(obs, end), cumulativeAt(obs, start))
	return diff.Quo(diff, big.NewInt(end-start)), nil
}
