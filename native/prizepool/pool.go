package prizepool

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"

	"github.com/holiman/uint256"

	"pthooks/core/state"
	"pthooks/core/types"
)

var (
	ErrNilState       = errors.New("prizepool: state not configured")
	ErrNoDrawAwarded  = errors.New("prizepool: no draw awarded")
	ErrInvalidTier    = errors.New("prizepool: invalid tier")
	ErrInvalidIndex   = errors.New("prizepool: invalid prize index")
	ErrNotWinner      = errors.New("prizepool: did not win")
	ErrAlreadyClaimed = errors.New("prizepool: prize already claimed")
	ErrRewardTooLarge = errors.New("prizepool: reward exceeds prize size")
	ErrInvalidAmount  = errors.New("prizepool: amount must be positive")
)

const (
	claimedScope      = "prizepool/claimed"
	contributionAsset = "PRIZEPOOL-CONTRIBUTION"
)

type poolState interface {
	Balance(asset string, addr [20]byte) (*big.Int, error)
	Transfer(asset string, from, to [20]byte, amount *big.Int) error
	Mint(asset string, addr [20]byte, amount *big.Int) error
	Flag(scope string, key []byte) (bool, error)
	SetFlag(scope string, key []byte)
}

// Tier describes the prize size and count of a tier.
type Tier struct {
	PrizeSize  *big.Int
	PrizeCount uint32
}

// Win identifies one winning prize of an awarded draw.
type Win struct {
	Vault      [20]byte
	Winner     [20]byte
	Tier       uint8
	PrizeIndex uint32
}

type winKey struct {
	drawID uint32
	win    Win
}

// Pool is an in-memory prize pool. Winners and randomness are published by
// AwardDraw; claims and contributions go through the journaled state so
// that an aborted claim rolls back its prize transfer.
type Pool struct {
	address       [20]byte
	prizeToken    string
	state         poolState
	tiers         []Tier
	canaryTiers   uint8
	firstOpensAt  int64
	periodSeconds int64

	lastAwarded uint32
	random      *uint256.Int
	winners     map[winKey]struct{}
}

// Config captures the static parameters of a Pool.
type Config struct {
	Address           [20]byte
	PrizeToken        string
	Tiers             []Tier
	CanaryTiers       uint8
	FirstDrawOpensAt  int64
	DrawPeriodSeconds int64
}

// NewPool constructs a pool over st.
func NewPool(st poolState, cfg Config) (*Pool, error) {
	if st == nil {
		return nil, ErrNilState
	}
	if types.IsZeroAddress(cfg.Address) {
		return nil, fmt.Errorf("prizepool: zero pool address")
	}
	if len(cfg.Tiers) == 0 || len(cfg.Tiers) > 255 {
		return nil, fmt.Errorf("prizepool: tier count %d out of range", len(cfg.Tiers))
	}
	if cfg.DrawPeriodSeconds <= 0 {
		return nil, fmt.Errorf("prizepool: draw period must be positive")
	}
	if cfg.CanaryTiers == 0 {
		cfg.CanaryTiers = 1
	}
	if int(cfg.CanaryTiers) > len(cfg.Tiers) {
		return nil, fmt.Errorf("prizepool: canary tiers %d exceed tier count", cfg.CanaryTiers)
	}
	tiers := make([]Tier, len(cfg.Tiers))
	for i, tier := range cfg.Tiers {
		size := big.NewInt(0)
		if tier.PrizeSize != nil {
			if tier.PrizeSize.Sign() < 0 {
				return nil, fmt.Errorf("prizepool: tier %d has negative prize size", i)
			}
			size.Set(tier.PrizeSize)
		}
		tiers[i] = Tier{PrizeSize: size, PrizeCount: tier.PrizeCount}
	}
	return &Pool{
		address:       cfg.Address,
		prizeToken:    state.NormalizeAsset(cfg.PrizeToken),
		state:         st,
		tiers:         tiers,
		canaryTiers:   cfg.CanaryTiers,
		firstOpensAt:  cfg.FirstDrawOpensAt,
		periodSeconds: cfg.DrawPeriodSeconds,
		random:        new(uint256.Int),
		winners:       make(map[winKey]struct{}),
	}, nil
}

func (p *Pool) Address() [20]byte  { return p.address }
func (p *Pool) PrizeToken() string { return p.prizeToken }

// AwardDraw publishes the random number and winners of the next draw and
// returns its id.
func (p *Pool) AwardDraw(random *uint256.Int, winners []Win) (uint32, error) {
	if random == nil {
		return 0, fmt.Errorf("prizepool: nil random number")
	}
	for _, w := range winners {
		if err := p.checkPrize(w.Tier, w.PrizeIndex); err != nil {
			return 0, err
		}
	}
	p.lastAwarded++
	p.random = new(uint256.Int).Set(random)
	for _, w := range winners {
		p.winners[winKey{drawID: p.lastAwarded, win: w}] = struct{}{}
	}
	return p.lastAwarded, nil
}

func (p *Pool) checkPrize(tier uint8, prizeIndex uint32) error {
	if int(tier) >= len(p.tiers) {
		return fmt.Errorf("%w: %d", ErrInvalidTier, tier)
	}
	if prizeIndex >= p.tiers[tier].PrizeCount {
		return fmt.Errorf("%w: %d >= %d", ErrInvalidIndex, prizeIndex, p.tiers[tier].PrizeCount)
	}
	return nil
}

func (p *Pool) IsWinner(vault, winner [20]byte, tier uint8, prizeIndex uint32) (bool, error) {
	if p.lastAwarded == 0 {
		return false, ErrNoDrawAwarded
	}
	if err := p.checkPrize(tier, prizeIndex); err != nil {
		return false, err
	}
	_, ok := p.winners[winKey{drawID: p.lastAwarded, win: Win{Vault: vault, Winner: winner, Tier: tier, PrizeIndex: prizeIndex}}]
	return ok, nil
}

func (p *Pool) GetLastAwardedDrawID() (uint32, error) {
	if p.lastAwarded == 0 {
		return 0, ErrNoDrawAwarded
	}
	return p.lastAwarded, nil
}

func (p *Pool) GetWinningRandomNumber() (*uint256.Int, error) {
	if p.lastAwarded == 0 {
		return nil, ErrNoDrawAwarded
	}
	return new(uint256.Int).Set(p.random), nil
}

func (p *Pool) GetTierPrizeSize(tier uint8) (*big.Int, error) {
	if int(tier) >= len(p.tiers) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidTier, tier)
	}
	return new(big.Int).Set(p.tiers[tier].PrizeSize), nil
}

func (p *Pool) GetTierPrizeCount(tier uint8) (uint32, error) {
	if int(tier) >= len(p.tiers) {
		return 0, fmt.Errorf("%w: %d", ErrInvalidTier, tier)
	}
	return p.tiers[tier].PrizeCount, nil
}

func (p *Pool) NumberOfTiers() uint8 { return uint8(len(p.tiers)) }

// IsCanaryTier reports whether tier is one of the trailing canary tiers.
func (p *Pool) IsCanaryTier(tier uint8) bool {
	return int(tier) < len(p.tiers) && int(tier) >= len(p.tiers)-int(p.canaryTiers)
}

func (p *Pool) ContributePrizeTokens(vault [20]byte, amount *big.Int) (*big.Int, error) {
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	if err := p.state.Mint(contributionAsset, vault, amount); err != nil {
		return nil, err
	}
	return new(big.Int).Set(amount), nil
}

// Contributions returns the total contributed on behalf of vault.
func (p *Pool) Contributions(vault [20]byte) (*big.Int, error) {
	return p.state.Balance(contributionAsset, vault)
}

func claimKey(drawID uint32, vault, winner [20]byte, tier uint8, prizeIndex uint32) []byte {
	buf := make([]byte, 0, 4+20+20+1+4)
	buf = binary.BigEndian.AppendUint32(buf, drawID)
	buf = append(buf, vault[:]...)
	buf = append(buf, winner[:]...)
	buf = append(buf, tier)
	return binary.BigEndian.AppendUint32(buf, prizeIndex)
}

func (p *Pool) ClaimPrize(vault, winner [20]byte, tier uint8, prizeIndex uint32, recipient [20]byte, reward *big.Int, rewardRecipient [20]byte) (*big.Int, error) {
	won, err := p.IsWinner(vault, winner, tier, prizeIndex)
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, ErrNotWinner
	}
	key := claimKey(p.lastAwarded, vault, winner, tier, prizeIndex)
	claimed, err := p.state.Flag(claimedScope, key)
	if err != nil {
		return nil, err
	}
	if claimed {
		return nil, ErrAlreadyClaimed
	}
	if reward == nil {
		reward = big.NewInt(0)
	}
	size := p.tiers[tier].PrizeSize
	if reward.Sign() < 0 || reward.Cmp(size) > 0 {
		return nil, ErrRewardTooLarge
	}
	p.state.SetFlag(claimedScope, key)
	amount := new(big.Int).Sub(size, reward)
	if reward.Sign() > 0 {
		if err := p.state.Transfer(p.prizeToken, p.address, rewardRecipient, reward); err != nil {
			return nil, err
		}
	}
	if amount.Sign() > 0 {
		if err := p.state.Transfer(p.prizeToken, p.address, recipient, amount); err != nil {
			return nil, err
		}
	}
	return amount, nil
}

// WasClaimed reports whether the prize of the latest awarded draw was claimed.
func (p *Pool) WasClaimed(vault, winner [20]byte, tier uint8, prizeIndex uint32) (bool, error) {
	return p.state.Flag(claimedScope, claimKey(p.lastAwarded, vault, winner, tier, prizeIndex))
}

func (p *Pool) DrawOpensAt(drawID uint32) int64 {
	if drawID == 0 {
		return p.firstOpensAt
	}
	return p.firstOpensAt + int64(drawID-1)*p.periodSeconds
}

func (p *Pool) DrawClosesAt(drawID uint32) int64 {
	return p.DrawOpensAt(drawID) + p.periodSeconds
}

func (p *Pool) DrawPeriodSeconds() int64 { return p.periodSeconds }
