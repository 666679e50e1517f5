// Package service answers pool queries from the cache or a fresh scan.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"poolScope/internal/cache"
	"poolScope/internal/dex"
	"poolScope/internal/enrich"
	"poolScope/internal/indexer"
	"poolScope/internal/metrics"
	"poolScope/internal/model"
	"poolScope/internal/storage"
)

const (
	DefaultScanDepth        uint64 = 100_000
	DefaultCreatorScanDepth uint64 = 200_000
)

const DefaultArchiveTimeout = 15 * time.Second

type Config struct {
	Factory          common.Address
	ScanDepth        uint64
	CreatorScanDepth uint64
	// ArchiveTimeout bounds one background archive write.
	ArchiveTimeout time.Duration
}

type Service struct {
	cfg      Config
	query    indexer.Query
	selector *indexer.Selector
	pipeline *enrich.Pipeline
	cache    *cache.ResultCache
	sink     storage.Sink
	logger   *zap.Logger
	now      func() time.Time
	archives sync.WaitGroup
}

// New wires the orchestrator. sink may be nil.
func New(cfg Config, selector *indexer.Selector, pipeline *enrich.Pipeline, results *cache.ResultCache, sink storage.Sink, logger *zap.Logger) (*Service, error) {
	if selector == nil || pipeline == nil || results == nil {
		return nil, fmt.Errorf("selector, pipeline and cache are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ScanDepth == 0 {
		cfg.ScanDepth = DefaultScanDepth
	}
	if cfg.CreatorScanDepth == 0 {
		cfg.CreatorScanDepth = DefaultCreatorScanDepth
	}
	if cfg.ArchiveTimeout <= 0 {
		cfg.ArchiveTimeout = DefaultArchiveTimeout
	}
	topic, err := dex.PoolCreatedTopic()
	if err != nil {
		return nil, err
	}
	return &Service{
		cfg:      cfg,
		query:    indexer.Query{Address: cfg.Factory, Topic0: topic},
		selector: selector,
		pipeline: pipeline,
		cache:    results,
		sink:     sink,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// LatestPools never fails: a total scan failure yields an empty response.
func (s *Service) LatestPools(ctx context.Context) model.PoolsResponse {
	if entry, ok := s.cache.Get(cache.LatestPoolsKey); ok {
		return model.PoolsResponse{
			Pools:       entry.Pools,
			LastUpdated: entry.CreatedAt.UnixMilli(),
			Cached:      true,
		}
	}

	t0 := time.Now()
	pools, err := s.scanLatest(ctx)
	if err != nil {
		resp := model.PoolsResponse{
			Pools:       []model.EnrichedPool{},
			LastUpdated: s.now().UnixMilli(),
		}
		if errors.Is(err, indexer.ErrNoData) {
			metrics.ObservePipeline("latest", "empty", t0)
			s.logger.Warn("no provider returned pool deployments")
		} else {
			metrics.ObservePipeline("latest", "error", t0)
			s.logger.Error("latest pools scan failed", zap.Error(err))
			resp.Error = "scan failed"
		}
		return resp
	}

	entry := s.cache.Put(cache.LatestPoolsKey, pools)
	metrics.ObservePipeline("latest", "ok", t0)
	s.archive(ctx, pools)

	return model.PoolsResponse{
		Pools:       entry.Pools,
		LastUpdated: entry.CreatedAt.UnixMilli(),
		Cached:      false,
	}
}

// CreatorPools rescans the wider creator window on every call.
func (s *Service) CreatorPools(ctx context.Context, creator common.Address) model.CreatorSummary {
	t0 := time.Now()
	summary, err := s.scanCreator(ctx, creator)
	switch {
	case err == nil:
		metrics.ObservePipeline("creator", "ok", t0)
	case errors.Is(err, indexer.ErrNoData):
		metrics.ObservePipeline("creator", "empty", t0)
	default:
		metrics.ObservePipeline("creator", "error", t0)
		s.logger.Error("creator scan failed", zap.String("creator", creator.Hex()), zap.Error(err))
		summary.Pools = []model.CreatorPool{}
		summary.TotalPools = 0
		summary.Error = "scan failed"
	}
	return summary
}

func (s *Service) scanLatest(ctx context.Context) (pools []model.EnrichedPool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pipeline panic: %v", r)
		}
	}()

	res, err := s.selector.Scan(ctx, indexer.ScanSpec{Query: s.query, Depth: s.cfg.ScanDepth})
	if err != nil {
		return nil, err
	}
	return s.pipeline.LatestPools(ctx, res.Provider, res.Logs)
}

// scanCreator always returns a usable summary, even alongside an error.
func (s *Service) scanCreator(ctx context.Context, creator common.Address) (summary model.CreatorSummary, err error) {
	summary = model.CreatorSummary{Creator: strings.ToLower(creator.Hex()), Pools: []model.CreatorPool{}}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pipeline panic: %v", r)
		}
	}()

	res, err := s.selector.Scan(ctx, indexer.ScanSpec{Query: s.query, Depth: s.cfg.CreatorScanDepth})
	if err != nil {
		empty, perr := s.pipeline.CreatorPools(ctx, nil, nil, creator)
		if perr != nil {
			return summary, perr
		}
		return empty, err
	}
	return s.pipeline.CreatorPools(ctx, res.Provider, res.Logs, creator)
}

// archive writes pools to the sink in the background so a slow sink never
// delays the response. Close waits for pending writes.
func (s *Service) archive(ctx context.Context, pools []model.EnrichedPool) {
	if s.sink == nil || len(pools) == 0 {
		return
	}
	s.archives.Add(1)
	go func() {
		defer s.archives.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ArchiveTimeout)
		defer cancel()
		if err := s.sink.PutPools(ctx, pools); err != nil {
			s.logger.Warn("archive pools failed", zap.Int("pools", len(pools)), zap.Error(err))
		}
	}()
}

// Close waits for background archive writes to finish.
func (s *Service) Close() {
	s.archives.Wait()
}
