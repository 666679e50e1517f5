// Package enrich turns raw factory logs into user-facing pool records.
package enrich

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"poolScope/internal/chain"
	"poolScope/internal/dex"
	"poolScope/internal/model"
)

// ErrCreatorUnresolved is reported in place of a score when the originating
// transaction could not be resolved.
const ErrCreatorUnresolved = "creator unresolved"

const (
	DefaultLimit       = 15
	DefaultConcurrency = 8
)

// Reputation looks up a creator score. A nil score with a nil error means
// no history.
type Reputation interface {
	Lookup(ctx context.Context, addr common.Address) (*int64, error)
}

type Config struct {
	// Limit is how many of the most recent deployments get fully enriched.
	Limit       int
	Concurrency int
}

type Pipeline struct {
	cfg        Config
	reputation Reputation
	symbols    *dex.SymbolCache
	logger     *zap.Logger
}

func New(cfg Config, reputation Reputation, symbols *dex.SymbolCache, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Limit <= 0 {
		cfg.Limit = DefaultLimit
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	return &Pipeline{cfg: cfg, reputation: reputation, symbols: symbols, logger: logger}
}

// LatestPools enriches the most recent deployments in logs. All creators in
// the window are resolved so first-deployment flags reflect the whole scan.
// Lookup failures degrade individual fields; only a panic in a lookup is
// returned as an error.
func (p *Pipeline) LatestPools(ctx context.Context, prov chain.Provider, logs []types.Log) ([]model.EnrichedPool, error) {
	events := p.Decode(logs)
	if len(events) == 0 {
		return []model.EnrichedPool{}, nil
	}

	creators, err := p.ResolveCreators(ctx, prov, events)
	if err != nil {
		return nil, err
	}
	counts := CountCreators(events, creators)

	SortRecent(events)
	if len(events) > p.cfg.Limit {
		events = events[:p.cfg.Limit]
	}

	reps := newReputationMemo(p.reputation, p.logger)
	out := make([]model.EnrichedPool, len(events))

	g := new(errgroup.Group)
	g.SetLimit(p.cfg.Concurrency)
	for i, ev := range events {
		i, ev := i, ev
		goSafe(g, func() error {
			creator := creators[ev.TxHash]
			d, err := p.lookupDetails(ctx, prov, ev)
			if err != nil {
				return err
			}
			rep := reps.get(ctx, creator)

			out[i] = model.EnrichedPool{
				Address:           hexAddress(ev.Pool),
				Token0:            hexAddress(ev.Token0),
				Token1:            hexAddress(ev.Token1),
				Token0Symbol:      d.symbol0,
				Token1Symbol:      d.symbol1,
				Stable:            ev.Stable,
				Creator:           hexAddress(creator),
				CreatorScore:      rep.Score,
				CreatorScoreError: rep.Error,
				BlockNumber:       ev.BlockNumber,
				Timestamp:         d.timestamp,
				IsFirstPool:       creator != (common.Address{}) && counts[creator] == 1,
				TxHash:            txHash(ev),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// CreatorPools resolves every deployment in logs and keeps the ones whose
// originating account is creator.
func (p *Pipeline) CreatorPools(ctx context.Context, prov chain.Provider, logs []types.Log, creator common.Address) (model.CreatorSummary, error) {
	summary := model.CreatorSummary{
		Creator: hexAddress(creator),
		Pools:   []model.CreatorPool{},
	}
	if creator == (common.Address{}) {
		summary.CreatorScoreError = ErrCreatorUnresolved
		return summary, nil
	}

	events := p.Decode(logs)
	creators, err := p.ResolveCreators(ctx, prov, events)
	if err != nil {
		return summary, err
	}

	mine := make([]model.PoolCreated, 0)
	for _, ev := range events {
		if creators[ev.TxHash] == creator {
			mine = append(mine, ev)
		}
	}
	SortRecent(mine)

	pools := make([]model.CreatorPool, len(mine))
	g := new(errgroup.Group)
	g.SetLimit(p.cfg.Concurrency)
	for i, ev := range mine {
		i, ev := i, ev
		goSafe(g, func() error {
			d, err := p.lookupDetails(ctx, prov, ev)
			if err != nil {
				return err
			}
			pools[i] = model.CreatorPool{
				Address:      hexAddress(ev.Pool),
				Token0:       hexAddress(ev.Token0),
				Token1:       hexAddress(ev.Token1),
				Token0Symbol: d.symbol0,
				Token1Symbol: d.symbol1,
				Stable:       ev.Stable,
				BlockNumber:  ev.BlockNumber,
				Timestamp:    d.timestamp,
				TxHash:       txHash(ev),
			}
			return nil
		})
	}

	var rep model.Reputation
	goSafe(g, func() error {
		rep = lookupReputation(ctx, p.reputation, creator)
		logFailedReputation(p.logger, creator, rep)
		return nil
	})
	if err := g.Wait(); err != nil {
		return summary, err
	}

	summary.CreatorScore = rep.Score
	summary.CreatorScoreError = rep.Error
	summary.TotalPools = len(pools)
	summary.Pools = pools
	return summary, nil
}

// Decode converts logs to deployments, dropping logs that do not decode.
func (p *Pipeline) Decode(logs []types.Log) []model.PoolCreated {
	events := make([]model.PoolCreated, 0, len(logs))
	for _, l := range logs {
		ev, err := dex.DecodePoolCreated(l)
		if err != nil {
			p.logger.Warn("drop undecodable log",
				zap.Uint64("block", l.BlockNumber),
				zap.String("tx", l.TxHash.Hex()),
				zap.Uint("index", l.Index),
				zap.Error(err),
			)
			continue
		}
		events = append(events, ev)
	}
	return events
}

// ResolveCreators maps each distinct tx hash to its originating account.
// Missing hashes and failed lookups resolve to the zero address.
func (p *Pipeline) ResolveCreators(ctx context.Context, prov chain.Provider, events []model.PoolCreated) (map[common.Hash]common.Address, error) {
	hashes := make([]common.Hash, 0, len(events))
	seen := make(map[common.Hash]struct{}, len(events))
	for _, ev := range events {
		if !ev.HasTxHash() {
			continue
		}
		if _, ok := seen[ev.TxHash]; ok {
			continue
		}
		seen[ev.TxHash] = struct{}{}
		hashes = append(hashes, ev.TxHash)
	}

	var mu sync.Mutex
	creators := make(map[common.Hash]common.Address, len(hashes))
	g := new(errgroup.Group)
	g.SetLimit(p.cfg.Concurrency)
	for _, h := range hashes {
		h := h
		goSafe(g, func() error {
			from, err := prov.TransactionSender(ctx, h)
			if err != nil {
				p.logger.Debug("sender lookup failed", zap.String("tx", h.Hex()), zap.Error(err))
				return nil
			}
			mu.Lock()
			creators[h] = from
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return creators, nil
}

// CountCreators counts deployments per resolved creator. Unresolved
// deployments are not counted.
func CountCreators(events []model.PoolCreated, creators map[common.Hash]common.Address) map[common.Address]int {
	counts := make(map[common.Address]int)
	for _, ev := range events {
		creator := creators[ev.TxHash]
		if creator == (common.Address{}) {
			continue
		}
		counts[creator]++
	}
	return counts
}

// SortRecent orders deployments by block number, newest first. Ties keep
// their discovery order.
func SortRecent(events []model.PoolCreated) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].BlockNumber > events[j].BlockNumber
	})
}

type details struct {
	symbol0   string
	symbol1   string
	timestamp uint64
}

func (p *Pipeline) lookupDetails(ctx context.Context, prov chain.Provider, ev model.PoolCreated) (details, error) {
	var d details
	g := new(errgroup.Group)
	goSafe(g, func() error {
		d.symbol0 = dex.TokenSymbol(ctx, prov, ev.Token0, p.symbols, p.logger)
		return nil
	})
	goSafe(g, func() error {
		d.symbol1 = dex.TokenSymbol(ctx, prov, ev.Token1, p.symbols, p.logger)
		return nil
	})
	goSafe(g, func() error {
		ts, err := prov.BlockTimestamp(ctx, ev.BlockNumber)
		if err != nil {
			p.logger.Debug("block timestamp failed", zap.Uint64("block", ev.BlockNumber), zap.Error(err))
			return nil
		}
		d.timestamp = ts
		return nil
	})
	if err := g.Wait(); err != nil {
		return details{}, err
	}
	return d, nil
}

// goSafe schedules fn on g, reporting a panic as the task's error.
func goSafe(g *errgroup.Group, fn func() error) {
	g.Go(func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("enrichment panic: %v", r)
			}
		}()
		return fn()
	})
}

func lookupReputation(ctx context.Context, r Reputation, creator common.Address) model.Reputation {
	if creator == (common.Address{}) {
		return model.Reputation{Error: ErrCreatorUnresolved}
	}
	if r == nil {
		return model.Reputation{Error: "reputation service not configured"}
	}
	score, err := r.Lookup(ctx, creator)
	if err != nil {
		return model.Reputation{Error: err.Error()}
	}
	return model.Reputation{Score: score}
}

func logFailedReputation(logger *zap.Logger, creator common.Address, rep model.Reputation) {
	if !rep.Failed() || creator == (common.Address{}) {
		return
	}
	logger.Debug("reputation lookup failed", zap.String("creator", hexAddress(creator)), zap.String("error", rep.Error))
}

// reputationMemo shares one lookup per creator within a request.
type reputationMemo struct {
	r      Reputation
	logger *zap.Logger
	mu     sync.Mutex
	m  map[common.Address]*memoEntry
}

type memoEntry struct {
	once sync.Once
	rep  model.Reputation
}

func newReputationMemo(r Reputation, logger *zap.Logger) *reputationMemo {
	return &reputationMemo{r: r, logger: logger, m: make(map[common.Address]*memoEntry)}
}

func (m *reputationMemo) get(ctx context.Context, creator common.Address) model.Reputation {
	m.mu.Lock()
	e, ok := m.m[creator]
	if !ok {
		e = &memoEntry{}
		m.m[creator] = e
	}
	m.mu.Unlock()

	e.once.Do(func() {
		e.rep = lookupReputation(ctx, m.r, creator)
		logFailedReputation(m.logger, creator, e.rep)
	})
	return e.rep
}

func hexAddress(a common.Address) string {
	return strings.ToLower(a.Hex())
}

func txHash(ev model.PoolCreated) string {
	if !ev.HasTxHash() {
		return ""
	}
	return ev.TxHash.Hex()
}
