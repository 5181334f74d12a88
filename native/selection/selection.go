package selection

import (
	"context"
	"encoding/binary"
	"errors"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

var (
	ErrEmptyRange = errors.New("selection: empty candidate range")
	ErrNilRandom  = errors.New("selection: nil random number")
)

// maxRehash bounds the rejection loop of UniformIndex. With n < 2^64 a
// single rejection has probability below 2^-192.
const maxRehash = 64

// DefaultAttemptCost is the budget charged for one pick attempt.
const DefaultAttemptCost = 1

// Seed derives the per-attempt seed keccak256(random ‖ tier ‖ prizeIndex ‖
// attempt) from finalized draw randomness and static claim parameters only.
func Seed(random *uint256.Int, tier uint8, prizeIndex uint32, attempt uint64) *uint256.Int {
	buf := make([]byte, 0, 32+1+4+8)
	r := random.Bytes32()
	buf = append(buf, r[:]...)
	buf = append(buf, tier)
	buf = binary.BigEndian.AppendUint32(buf, prizeIndex)
	buf = binary.BigEndian.AppendUint64(buf, attempt)
	return new(uint256.Int).SetBytes(ethcrypto.Keccak256(buf))
}

// UniformIndex maps seed to [0, n) without modulo bias. Seeds falling in
// the top 2^256 mod n values are rejected and the seed is re-hashed, so every
// index is produced by exactly floor(2^256 / n) accepted seeds.
func UniformIndex(seed *uint256.Int, n uint64) (uint64, error) {
	if n == 0 {
		return 0, ErrEmptyRange
	}
	bound := uint256.NewInt(n)
	// rem = 2^256 mod n = (MaxUint256 mod n + 1) mod n
	ceiling := new(uint256.Int).SetAllOne()
	rem := new(uint256.Int).Mod(ceiling, bound)
	rem.AddUint64(rem, 1)
	rem.Mod(rem, bound)
	// Accept seeds in [0, 2^256 - rem).
	limit := new(uint256.Int).Sub(ceiling, rem)
	current := new(uint256.Int).Set(seed)
	for i := 0; i < maxRehash; i++ {
		if rem.IsZero() || current.Cmp(limit) <= 0 {
			break
		}
		b := current.Bytes32()
		current.SetBytes(ethcrypto.Keccak256(b[:]))
	}
	return new(uint256.Int).Mod(current, bound).Uint64(), nil
}

// Request describes one selection.
type Request struct {
	Random         *uint256.Int
	Tier           uint8
	PrizeIndex     uint32
	CandidateCount uint64
	// AttemptCost is charged against the budget per attempt; zero means
	// DefaultAttemptCost.
	AttemptCost uint64
}

// Validator resolves the candidate at index. ok=false marks the candidate
// invalid and triggers a resample; a non-nil error aborts the selection.
type Validator func(index uint64) (candidate [20]byte, ok bool, err error)

// Result reports the outcome of Select.
type Result struct {
	Index     uint64
	Candidate [20]byte
	Attempts  uint64
	Fallback  bool
}

// Select samples candidate indices, salting the seed with the attempt
// counter, until validate accepts one or the budget is exhausted. On
// exhaustion it returns fallback with Fallback set. The outcome depends only
// on req and validate, so identical inputs replay identically.
func Select(ctx context.Context, budget *Budget, req Request, fallback [20]byte, validate Validator) (Result, error) {
	if req.Random == nil {
		return Result{}, ErrNilRandom
	}
	cost := req.AttemptCost
	if cost == 0 {
		cost = DefaultAttemptCost
	}
	result := Result{Candidate: fallback, Fallback: true}
	if req.CandidateCount == 0 {
		return result, nil
	}
	for budget.Spend(cost) {
		if ctx != nil {
			if err := ctx.Err(); err != nil {
				return Result{}, err
			}
		}
		seed := Seed(req.Random, req.Tier, req.PrizeIndex, result.Attempts)
		result.Attempts++
		index, err := UniformIndex(seed, req.CandidateCount)
		if err != nil {
			return Result{}, err
		}
		candidate, ok, err := validate(index)
		if err != nil {
			return Result{}, err
		}
		if ok {
			result.Index = index
			result.Candidate = candidate
			result.Fallback = false
			return result, nil
		}
	}
	return result, nil
}
