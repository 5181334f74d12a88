package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sort"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"pthooks/config"
	"pthooks/core/events"
	"pthooks/core/state"
	"pthooks/core/types"
	"pthooks/native/access"
	"pthooks/native/claimer"
	"pthooks/native/compound"
	"pthooks/native/hooks"
	"pthooks/native/prizepool"
	"pthooks/native/prizevote"
	"pthooks/native/raffle"
	"pthooks/native/redirect"
	"pthooks/native/selection"
	"pthooks/native/swaphook"
	"pthooks/native/swapper"
	"pthooks/native/verify"
	"pthooks/observability/logging"
	"pthooks/observability/metrics"
	"pthooks/storage"
)

const (
	trustScope   = "hooksim/trust"
	drawsCounter = "hooksim/draws"
)

// Simulator-local deployments that have no configuration of their own.
var (
	redirectAddress = [20]byte{0x54, 19: 0x01}
	swapHookAddress = [20]byte{0x55, 19: 0x01}
	voteHookAddress = [20]byte{0x56, 19: 0x01}
	factoryAddress  = [20]byte{0x57, 19: 0x01}
)

// Hook assigned to each depositor, round robin.
const (
	planNone = iota
	planCompound
	planRaffle
	planSwapper
	planVote
	planRedirect
	planCount
)

var planNames = [planCount]string{"none", "compound", "raffle", "swapper", "prizevote", "redirect"}

type deployment struct {
	name    string
	address [20]byte
	hook    hooks.Hook
}

type simulation struct {
	cfg    *config.Config
	logger *slog.Logger

	st         *state.Manager
	pool       *prizepool.Pool
	twab       *prizepool.Twab
	vault      *prizepool.ShareVault
	trust      *access.TrustRegistry
	registry   *hooks.Registry
	dispatcher *hooks.Dispatcher
	claimer    *claimer.Claimer
	compound   *compound.Hook
	swaps      *swaphook.Hook
	owners     *raffle.StaticOwners
	votes      *prizevote.Votes
	recorder   *events.Recorder
	emitter    events.Emitter

	deployments map[int]deployment
	depositors  [][20]byte
	drawID      uint32
	now         int64
}

// logEmitter writes every event at debug level.
type logEmitter struct {
	logger *slog.Logger
}

func (l logEmitter) Emit(evt events.Event) {
	structured, ok := evt.(interface{ Event() *types.Event })
	if !ok {
		l.logger.Debug("event", slog.String("type", evt.EventType()))
		return
	}
	rendered := structured.Event()
	keys := make([]string, 0, len(rendered.Attributes))
	for key := range rendered.Attributes {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	args := make([]any, 0, len(keys)+1)
	args = append(args, slog.String("type", rendered.Type))
	for _, key := range keys {
		args = append(args, slog.String(key, rendered.Attributes[key]))
	}
	l.logger.Debug("event", args...)
}

func newSimulation(cfg *config.Config, db storage.Database, logger *slog.Logger, depositorCount int) (*simulation, error) {
	if depositorCount <= 0 {
		return nil, fmt.Errorf("hooksim: depositor count must be positive")
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &simulation{
		cfg:         cfg,
		logger:      logger,
		st:          state.NewManager(db),
		recorder:    &events.Recorder{},
		deployments: make(map[int]deployment),
	}
	s.emitter = events.Multi{s.recorder, metrics.Events(), logEmitter{logger: logger}}

	if err := s.deployPool(); err != nil {
		return nil, err
	}
	if err := s.deployHooks(); err != nil {
		return nil, err
	}
	if err := s.deployClaimer(); err != nil {
		return nil, err
	}
	if err := s.onboard(depositorCount); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *simulation) clock() int64 { return s.now }

func (s *simulation) deployPool() error {
	poolCfg, err := s.cfg.PoolConfig()
	if err != nil {
		return err
	}
	if s.pool, err = prizepool.NewPool(s.st, poolCfg); err != nil {
		return err
	}
	reserve, err := config.Amount(s.cfg.Pool.Reserve)
	if err != nil {
		return err
	}
	if reserve.Sign() > 0 {
		if err := s.st.Mint(s.pool.PrizeToken(), s.pool.Address(), reserve); err != nil {
			return err
		}
	}

	// Draws of earlier runs are replayed without winners so claim keys of
	// the new draw never collide with persisted ones.
	next, err := s.st.NextCounter(drawsCounter)
	if err != nil {
		return err
	}
	for i := uint64(1); i < next; i++ {
		if _, err := s.pool.AwardDraw(new(uint256.Int), nil); err != nil {
			return err
		}
	}
	s.drawID = uint32(next)
	s.now = s.pool.DrawOpensAt(s.drawID)

	if s.twab, err = prizepool.NewTwab(s.st); err != nil {
		return err
	}
	s.twab.SetNowFunc(s.clock)
	vaultAddr, err := config.Address(s.cfg.Vault.Address)
	if err != nil {
		return err
	}
	if s.vault, err = prizepool.NewShareVault(s.st, s.twab, vaultAddr, s.cfg.Pool.PrizeToken, s.cfg.Vault.ShareToken); err != nil {
		return err
	}

	owner, err := config.Address(s.cfg.Trust.Owner)
	if err != nil {
		return err
	}
	if s.trust, err = access.NewTrustRegistry(s.st, trustScope, owner, s.emitter); err != nil {
		return err
	}
	trusted, err := s.cfg.TrustedVaults()
	if err != nil {
		return err
	}
	for _, addr := range trusted {
		ok, err := s.trust.IsTrusted(addr)
		if err != nil {
			return err
		}
		if !ok {
			if err := s.trust.Grant(owner, addr); err != nil {
				return err
			}
		}
	}

	if s.registry, err = hooks.NewRegistry(s.st); err != nil {
		return err
	}
	if s.dispatcher, err = hooks.NewDispatcher(s.st, vaultAddr, s.pool, s.registry); err != nil {
		return err
	}
	s.dispatcher.SetEmitter(s.emitter)
	s.dispatcher.SetSelectionBudget(uint64(s.cfg.Selection.Budget))
	return nil
}

func (s *simulation) verifier(hookAddr [20]byte) (*verify.Verifier, error) {
	var opts []verify.Option
	if !s.cfg.Trust.Strict {
		opts = append(opts, verify.WithoutWinCheck())
	}
	return verify.NewVerifier(s.trust, s.pool, verify.NewReplayGuard(s.st, hookAddr), opts...)
}

func (s *simulation) register(plan int, address [20]byte, hook hooks.Hook) error {
	if err := s.registry.Register(address, hook); err != nil {
		return err
	}
	s.deployments[plan] = deployment{name: planNames[plan], address: address, hook: hook}
	return nil
}

func (s *simulation) deployHooks() error {
	compoundAddr, err := config.Address(s.cfg.Compound.Address)
	if err != nil {
		return err
	}
	v, err := s.verifier(compoundAddr)
	if err != nil {
		return err
	}
	if s.compound, err = compound.New(s.st, compound.Config{
		Address:  compoundAddr,
		Pool:     s.pool,
		Vault:    s.vault,
		Schedule: s.cfg.Compound.Fees,
		Verifier: v,
	}); err != nil {
		return err
	}
	s.compound.SetEmitter(s.emitter)
	liquidity, err := config.Amount(s.cfg.Compound.Liquidity)
	if err != nil {
		return err
	}
	if liquidity.Sign() > 0 {
		if err := s.st.Mint(s.pool.PrizeToken(), compoundAddr, liquidity); err != nil {
			return err
		}
		if _, err := s.compound.Replenish(); err != nil && !errors.Is(err, compound.ErrNothingIdle) {
			return err
		}
	}
	if err := s.register(planCompound, compoundAddr, s.compound); err != nil {
		return err
	}

	raffleAddr, err := config.Address(s.cfg.Raffle.Address)
	if err != nil {
		return err
	}
	if v, err = s.verifier(raffleAddr); err != nil {
		return err
	}
	s.owners = raffle.NewStaticOwners()
	raffleHook, err := raffle.New(s.st, raffle.Config{
		Address:        raffleAddr,
		Pool:           s.pool,
		Owners:         s.owners,
		FirstTokenID:   s.cfg.Raffle.FirstTokenID,
		TokenCount:     s.cfg.Raffle.TokenCount,
		Verifier:       v,
		FallbackBudget: uint64(s.cfg.Selection.Budget),
	})
	if err != nil {
		return err
	}
	raffleHook.SetEmitter(s.emitter)
	if err := s.register(planRaffle, raffleAddr, raffleHook); err != nil {
		return err
	}

	factory, err := swapper.NewStateFactory(s.st, factoryAddress)
	if err != nil {
		return err
	}
	factory.SetNowFunc(s.clock)
	manager, err := swapper.NewManager(s.st, factory, swapHookAddress)
	if err != nil {
		return err
	}
	manager.SetEmitter(s.emitter)
	if v, err = s.verifier(swapHookAddress); err != nil {
		return err
	}
	if s.swaps, err = swaphook.New(swapHookAddress, manager, v); err != nil {
		return err
	}
	s.swaps.SetEmitter(s.emitter)
	if err := s.register(planSwapper, swapHookAddress, s.swaps); err != nil {
		return err
	}

	if s.votes, err = prizevote.NewVotes(s.st, voteHookAddress); err != nil {
		return err
	}
	s.votes.SetEmitter(s.emitter)
	if v, err = s.verifier(voteHookAddress); err != nil {
		return err
	}
	voteHook, err := prizevote.NewHook(s.st, voteHookAddress, s.pool, s.votes, v)
	if err != nil {
		return err
	}
	voteHook.SetEmitter(s.emitter)
	if err := s.register(planVote, voteHookAddress, voteHook); err != nil {
		return err
	}

	if v, err = s.verifier(redirectAddress); err != nil {
		return err
	}
	donate, err := redirect.ForDailyTier(redirectAddress, types.BurnAddress, s.pool, redirect.WithVerifier(v))
	if err != nil {
		return err
	}
	donate.SetEmitter(s.emitter)
	return s.register(planRedirect, redirectAddress, donate)
}

func (s *simulation) deployClaimer() error {
	addr, err := config.Address(s.cfg.Claimer.Address)
	if err != nil {
		return err
	}
	opts := []claimer.Option{
		claimer.WithRamp(s.cfg.Claimer.Ramp),
		claimer.WithLogger(s.logger),
		claimer.WithEmitter(s.emitter),
		claimer.WithClock(func() time.Time { return time.Unix(s.now, 0) }),
	}
	if s.cfg.Claimer.Reinvest {
		opts = append(opts, claimer.WithReinvestVault(s.vault))
	}
	s.claimer, err = claimer.New(addr, s.pool, opts...)
	return err
}

func depositorAddress(i int) [20]byte {
	return [20]byte(ethcrypto.Keccak256([]byte(fmt.Sprintf("hooksim/depositor/%d", i)))[12:])
}

// onboard funds depositors, deposits into the vault and opts each one into
// a hook.
func (s *simulation) onboard(count int) error {
	unit := big.NewInt(1_000_000_000_000_000_000)
	tier0, err := s.pool.GetTierPrizeSize(0)
	if err != nil {
		return err
	}
	for i := 0; i < count; i++ {
		account := depositorAddress(i)
		s.depositors = append(s.depositors, account)
		amount := new(big.Int).Mul(unit, big.NewInt(int64(i+1)))
		if err := s.st.Mint(s.pool.PrizeToken(), account, amount); err != nil {
			return err
		}
		if _, err := s.vault.Deposit(account, account, amount); err != nil {
			return err
		}

		plan := i % planCount
		switch plan {
		case planNone:
			continue
		case planSwapper:
			if _, err := s.swaps.EnsureSwapper(account, swapper.Params{TokenToBeneficiary: s.vault.ShareToken(), ScaledOfferFactor: 990_000}); err != nil {
				return err
			}
		case planVote:
			if err := s.votes.SetVote(account, tier0); err != nil {
				return err
			}
		}
		d := s.deployments[plan]
		if err := s.registry.SetHooks(s.vault.Address(), account, state.HookSettings{
			UseBeforeClaimPrize: true,
			UseAfterClaimPrize:  true,
			Implementation:      d.address,
		}); err != nil {
			return err
		}
	}
	for id := uint64(0); id < s.cfg.Raffle.TokenCount; id++ {
		s.owners.Set(s.cfg.Raffle.FirstTokenID+id, s.depositors[int(id)%len(s.depositors)])
	}
	return nil
}

// drawWinners assigns every prize of every tier to a depositor.
func (s *simulation) drawWinners(random *uint256.Int) ([]prizepool.Win, error) {
	var wins []prizepool.Win
	r := random.Bytes32()
	for tier := uint8(0); tier < s.pool.NumberOfTiers(); tier++ {
		count, err := s.pool.GetTierPrizeCount(tier)
		if err != nil {
			return nil, err
		}
		for idx := uint32(0); idx < count; idx++ {
			seed := new(uint256.Int).SetBytes(ethcrypto.Keccak256([]byte("hooksim/winner"), r[:], []byte{tier, byte(idx >> 24), byte(idx >> 16), byte(idx >> 8), byte(idx)}))
			pick, err := selection.UniformIndex(seed, uint64(len(s.depositors)))
			if err != nil {
				return nil, err
			}
			wins = append(wins, prizepool.Win{Vault: s.vault.Address(), Winner: s.depositors[pick], Tier: tier, PrizeIndex: idx})
		}
	}
	return wins, nil
}

type batchSummary struct {
	Tier        uint8  `json:"tier"`
	Mode        string `json:"mode"`
	Rate        string `json:"rate"`
	BatchID     string `json:"batchId"`
	Claimed     uint64 `json:"claimed"`
	Failed      uint64 `json:"failed"`
	TotalReward string `json:"totalReward"`
	Reinvested  string `json:"reinvested"`
}

type runReport struct {
	DrawID      uint32            `json:"drawId"`
	Random      string            `json:"random"`
	Depositors  int               `json:"depositors"`
	Hooks       map[string]string `json:"hooks"`
	Batches     []batchSummary    `json:"batches"`
	Events      map[string]int    `json:"events"`
	HookReserve string            `json:"hookReserve"`
	Burned      string            `json:"burned"`
}

// run awards the draw, claims every tier from the canary tiers down and
// commits the resulting state.
func (s *simulation) run(ctx context.Context, random *uint256.Int, elapsed time.Duration) (runReport, error) {
	report, err := s.execute(ctx, random, elapsed)
	if err != nil {
		s.st.Discard()
		return runReport{}, err
	}
	if err := s.st.Commit(); err != nil {
		return runReport{}, err
	}
	return report, nil
}

func (s *simulation) execute(ctx context.Context, random *uint256.Int, elapsed time.Duration) (runReport, error) {
	wins, err := s.drawWinners(random)
	if err != nil {
		return runReport{}, err
	}
	drawID, err := s.pool.AwardDraw(random, wins)
	if err != nil {
		return runReport{}, err
	}
	if drawID != s.drawID {
		return runReport{}, fmt.Errorf("hooksim: awarded draw %d, expected %d", drawID, s.drawID)
	}
	s.now = s.pool.DrawClosesAt(drawID) + int64(elapsed/time.Second)
	s.logger.Info("draw awarded",
		slog.Uint64("drawId", uint64(drawID)),
		slog.Int("prizes", len(wins)),
		logging.Address(logging.KeyVault, s.vault.Address()),
	)

	byTier := make(map[uint8][]claimer.Winner)
	for _, w := range wins {
		byTier[w.Tier] = append(byTier[w.Tier], claimer.Winner{Winner: w.Winner, PrizeIndex: w.PrizeIndex})
	}
	report := runReport{
		DrawID:     drawID,
		Random:     random.Hex(),
		Depositors: len(s.depositors),
		Hooks:      make(map[string]string),
		Events:     make(map[string]int),
	}
	for _, d := range s.deployments {
		report.Hooks[d.name] = types.HexAddress(d.address)
	}
	for tier := int(s.pool.NumberOfTiers()) - 1; tier >= 0; tier-- {
		winners := byTier[uint8(tier)]
		if len(winners) == 0 {
			continue
		}
		batch, err := s.claimer.ClaimPrizes(ctx, s.dispatcher, claimer.Batch{
			Tier:            uint8(tier),
			Winners:         winners,
			RewardRecipient: s.claimer.Address(),
		})
		if err != nil {
			return runReport{}, fmt.Errorf("hooksim: tier %d: %w", tier, err)
		}
		for _, item := range batch.Items {
			if item.Err != nil {
				s.logger.Debug("prize skipped", append(logging.Prize(s.vault.Address(), item.Winner, uint8(tier), item.PrizeIndex), logging.Err(item.Err))...)
			}
		}
		report.Batches = append(report.Batches, batchSummary{
			Tier:        uint8(tier),
			Mode:        string(batch.Decision.Mode),
			Rate:        batch.Decision.Rate.String(),
			BatchID:     batch.BatchID,
			Claimed:     batch.Claimed,
			Failed:      batch.Failed,
			TotalReward: batch.TotalReward.String(),
			Reinvested:  batch.Reinvested.String(),
		})
	}
	for _, evt := range s.recorder.Events() {
		report.Events[evt.EventType()]++
	}
	reserve, err := s.compound.Reserve()
	if err != nil {
		return runReport{}, err
	}
	report.HookReserve = reserve.String()
	burned, err := s.st.Balance(s.pool.PrizeToken(), types.BurnAddress)
	if err != nil {
		return runReport{}, err
	}
	report.Burned = burned.String()
	return report, nil
}
