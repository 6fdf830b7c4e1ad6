// Package refdata owns the slowly-changing reference tables the rating
// pipeline divides by: per-region expectation baselines with their
// coefficient sets, and per-region ship-tier tables. Both refresh on a
// timer, each refresh replacing the whole table; the last good copy is
// checkpointed to disk and read back when upstream is down at start.
package refdata

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"warships-rating/internal/config"
	"warships-rating/internal/constants"
	"warships-rating/internal/domain"
	"warships-rating/internal/rating"
	"warships-rating/internal/stats"

	"github.com/rs/zerolog"
)

// Regions the store keeps tables for.
var Regions = []string{"na", "eu", "asia", "ru"}

const (
	expectedCheckpointFile = "expected.json"
	tiersCheckpointFile    = "ship_tiers.json"
)

// Source fetches the reference datasets from the game-data service.
type Source interface {
	ExpectedValues(ctx context.Context, region string) (map[int64]stats.Sample, rating.Coefficients, error)
	ShipTiers(ctx context.Context, region string) (map[int64]float64, error)
}

// Tables is a consistent snapshot of everything rating computation needs
// for one region.
type Tables struct {
	Expected     map[int64]stats.Sample
	Coefficients rating.Coefficients
	Tiers        map[int64]float64
}

type regionExpected struct {
	Ships        map[int64]stats.Sample
	Coefficients rating.Coefficients
}

type Store struct {
	source   Source
	dir      string
	interval time.Duration
	logger   zerolog.Logger

	mu       sync.RWMutex
	expected map[string]regionExpected
	tiers    map[string]map[int64]float64

	done chan struct{}
	wg   sync.WaitGroup
}

func NewStore(cfg *config.Config, source Source, logger zerolog.Logger) *Store {
	interval := cfg.RefDataTTL
	if interval <= 0 {
		interval = constants.RefDataInterval
	}
	return &Store{
		source:   source,
		dir:      cfg.CheckpointDir,
		interval: interval,
		logger:   logger,
		expected: map[string]regionExpected{},
		tiers:    map[string]map[int64]float64{},
		done:     make(chan struct{}),
	}
}

// Start performs the initial load and begins the periodic refresh loop.
// Memory is seeded from the checkpoints first; the refresh then replaces
// each region it can reach, so regions behind a partial upstream outage
// keep their last-known-good tables and the post-refresh checkpoint
// rewrite carries them forward. A store with neither checkpoint nor a
// reachable upstream is not an error at startup; it stays not-ready and
// Snapshot fails until a refresh succeeds.
func (s *Store) Start(ctx context.Context) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("refdata: checkpoint dir: %w", err)
	}

	s.loadCheckpoints()
	s.refreshExpected(ctx)
	s.refreshTiers(ctx)

	s.wg.Add(1)
	go s.run()
	return nil
}

// Stop terminates the refresh loop.
func (s *Store) Stop() {
	close(s.done)
	s.wg.Wait()
}

func (s *Store) run() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), constants.RefreshTimeout)
			s.refreshExpected(ctx)
			s.refreshTiers(ctx)
			cancel()
		}
	}
}

// Snapshot returns the tables for a region. The returned maps are the
// live whole-table values; refreshes replace them rather than mutate
// them, so a holder never observes a mid-update state.
func (s *Store) Snapshot(region string) (Tables, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	exp, okExp := s.expected[region]
	tiers, okTiers := s.tiers[region]
	if !okExp || !okTiers {
		return Tables{}, fmt.Errorf("region %q: %w", region, domain.ErrReferenceDataUnavailable)
	}
	return Tables{
		Expected:     exp.Ships,
		Coefficients: exp.Coefficients,
		Tiers:        tiers,
	}, nil
}

func (s *Store) refreshExpected(ctx context.Context) {
	for _, region := range Regions {
		ships, coeff, err := s.source.ExpectedValues(ctx, region)
		if err != nil {
			s.logger.Warn().Err(err).Str("region", region).Msg("expected-values refresh failed, keeping previous table")
			continue
		}
		ships = sanitizeExpected(ships)
		if len(ships) == 0 || !coeff.Valid() {
			s.logger.Error().Str("region", region).Msg("expected-values payload failed validation, keeping previous table")
			continue
		}
		s.mu.Lock()
		s.expected[region] = regionExpected{Ships: ships, Coefficients: coeff}
		s.mu.Unlock()
		s.logger.Debug().Str("region", region).Int("ships", len(ships)).Msg("expected-values table replaced")
	}
	s.checkpointExpected()
}

func (s *Store) refreshTiers(ctx context.Context) {
	for _, region := range Regions {
		tiers, err := s.source.ShipTiers(ctx, region)
		if err != nil {
			s.logger.Warn().Err(err).Str("region", region).Msg("ship-tier refresh failed, keeping previous table")
			continue
		}
		if len(tiers) == 0 {
			s.logger.Error().Str("region", region).Msg("empty ship-tier payload, keeping previous table")
			continue
		}
		s.mu.Lock()
		s.tiers[region] = tiers
		s.mu.Unlock()
		s.logger.Debug().Str("region", region).Int("ships", len(tiers)).Msg("ship-tier table replaced")
	}
	s.checkpointTiers()
}

// sanitizeExpected drops counters that would become zero denominators and
// ships left with no positive counters at all.
func sanitizeExpected(ships map[int64]stats.Sample) map[int64]stats.Sample {
	out := make(map[int64]stats.Sample, len(ships))
	for id, sample := range ships {
		clean := stats.Sample{}
		for k, f := range sample {
			if f.IsNested() || f.Value > 0 {
				clean[k] = f
			}
		}
		if len(clean) > 0 {
			out[id] = clean
		}
	}
	return out
}

// Checkpoint layout: one flat JSON document per dataset, keyed region
// then ship id, overwritten wholesale after each refresh pass.

type expectedCheckpoint map[string]struct {
	Ships        map[string]stats.Sample `json:"ships"`
	Coefficients rating.Coefficients     `json:"coefficients"`
}

type tiersCheckpoint map[string]map[string]float64

func (s *Store) checkpointExpected() {
	s.mu.RLock()
	doc := expectedCheckpoint{}
	for region, exp := range s.expected {
		ships := make(map[string]stats.Sample, len(exp.Ships))
		for id, sample := range exp.Ships {
			ships[strconv.FormatInt(id, 10)] = sample
		}
		doc[region] = struct {
			Ships        map[string]stats.Sample `json:"ships"`
			Coefficients rating.Coefficients     `json:"coefficients"`
		}{Ships: ships, Coefficients: exp.Coefficients}
	}
	s.mu.RUnlock()

	if len(doc) == 0 {
		return
	}
	s.writeCheckpoint(expectedCheckpointFile, doc)
}

func (s *Store) checkpointTiers() {
	s.mu.RLock()
	doc := tiersCheckpoint{}
	for region, tiers := range s.tiers {
		m := make(map[string]float64, len(tiers))
		for id, tier := range tiers {
			m[strconv.FormatInt(id, 10)] = tier
		}
		doc[region] = m
	}
	s.mu.RUnlock()

	if len(doc) == 0 {
		return
	}
	s.writeCheckpoint(tiersCheckpointFile, doc)
}

func (s *Store) writeCheckpoint(name string, doc any) {
	blob, err := json.Marshal(doc)
	if err != nil {
		s.logger.Error().Err(err).Str("file", name).Msg("failed to encode checkpoint")
		return
	}
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, blob, 0o644); err != nil {
		s.logger.Error().Err(err).Str("file", path).Msg("failed to write checkpoint")
		return
	}
	s.logger.Debug().Str("file", path).Msg("checkpoint written")
}

func (s *Store) loadCheckpoints() {
	if doc, err := readCheckpoint[expectedCheckpoint](filepath.Join(s.dir, expectedCheckpointFile)); err != nil {
		s.logger.Warn().Err(err).Msg("no expected-values checkpoint available")
	} else {
		s.mu.Lock()
		for region, entry := range doc {
			ships := make(map[int64]stats.Sample, len(entry.Ships))
			for idStr, sample := range entry.Ships {
				id, err := strconv.ParseInt(idStr, 10, 64)
				if err != nil {
					continue
				}
				ships[id] = sample
			}
			s.expected[region] = regionExpected{Ships: sanitizeExpected(ships), Coefficients: entry.Coefficients}
		}
		s.mu.Unlock()
		s.logger.Info().Int("regions", len(doc)).Msg("expected-values loaded from checkpoint")
	}

	if doc, err := readCheckpoint[tiersCheckpoint](filepath.Join(s.dir, tiersCheckpointFile)); err != nil {
		s.logger.Warn().Err(err).Msg("no ship-tier checkpoint available")
	} else {
		s.mu.Lock()
		for region, entry := range doc {
			tiers := make(map[int64]float64, len(entry))
			for idStr, tier := range entry {
				id, err := strconv.ParseInt(idStr, 10, 64)
				if err != nil {
					continue
				}
				tiers[id] = tier
			}
			s.tiers[region] = tiers
		}
		s.mu.Unlock()
		s.logger.Info().Int("regions", len(doc)).Msg("ship tiers loaded from checkpoint")
	}
}

func readCheckpoint[T any](path string) (T, error) {
	var doc T
	blob, err := os.ReadFile(path)
	if err != nil {
		return doc, err
	}
	if err := json.Unmarshal(blob, &doc); err != nil {
		return doc, fmt.Errorf("decode %s: %w", path, err)
	}
	return doc, nil
}
