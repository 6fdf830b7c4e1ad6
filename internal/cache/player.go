// Package cache owns the per-entity state tables: it decides whether a
// rating request is served from memory, triggers a refresh, or joins a
// refresh already in flight for the same key.
package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"warships-rating/internal/constants"
	"warships-rating/internal/domain"
	"warships-rating/internal/rating"
	"warships-rating/internal/refdata"
	"warships-rating/internal/stats"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const dateLayout = "20060102"

// Upstream is the game-data collaborator the caches fetch through.
type Upstream interface {
	PlayerSummary(ctx context.Context, region string, accountID int64) (*domain.PlayerSummary, error)
	PlayerShips(ctx context.Context, region string, accountID int64) (map[int64]stats.Sample, error)
	PlayerDaily(ctx context.Context, region string, accountID int64, dates []string) (map[string]stats.Sample, error)
	ClanInfo(ctx context.Context, region string, clanID int64) (*domain.ClanInfo, error)
}

// ReferenceData supplies the expectation and tier tables per region.
type ReferenceData interface {
	Snapshot(region string) (refdata.Tables, error)
}

type playerEntry struct {
	mu        sync.Mutex
	populated bool
	hidden    bool
	result    domain.PlayerRating
	lastFetch time.Time
}

// PlayerCache serves player rating requests. Per key it guarantees at
// most one outstanding upstream refresh; concurrent callers for the same
// key share the in-flight result.
type PlayerCache struct {
	upstream Upstream
	refdata  ReferenceData
	logger   zerolog.Logger

	mu    sync.Mutex
	table *lru.Cache[string, *playerEntry]
	group singleflight.Group

	now func() time.Time
}

func NewPlayerCache(upstream Upstream, ref ReferenceData, logger zerolog.Logger) *PlayerCache {
	table, _ := lru.New[string, *playerEntry](constants.PlayerCacheSize)
	return &PlayerCache{
		upstream: upstream,
		refdata:  ref,
		logger:   logger,
		table:    table,
		now:      time.Now,
	}
}

func playerKey(region string, accountID int64) string {
	return fmt.Sprintf("%s:%d", region, accountID)
}

func (c *PlayerCache) entry(key string) *playerEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.table.Get(key); ok {
		return e
	}
	e := &playerEntry{}
	c.table.Add(key, e)
	return e
}

// GetRating returns the player's rating, refreshing through the upstream
// when the cached copy is missing, expired, or force is set. A refresh
// failure after at least one successful fetch degrades to the stale
// cached result instead of an error.
func (c *PlayerCache) GetRating(ctx context.Context, region string, accountID int64, force bool) (*domain.PlayerRating, error) {
	key := playerKey(region, accountID)
	e := c.entry(key)

	e.mu.Lock()
	if e.hidden && !force {
		e.mu.Unlock()
		return nil, fmt.Errorf("player %s: %w", key, domain.ErrHiddenProfile)
	}
	if e.populated && !force && c.now().Sub(e.lastFetch) < constants.PlayerRefreshTTL {
		out := copyPlayerResult(&e.result, false)
		e.mu.Unlock()
		return out, nil
	}
	e.mu.Unlock()

	v, err, _ := c.group.Do(key, func() (any, error) {
		// The refresh outlives an abandoning caller so the cache still
		// gets populated for the next one.
		refreshCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), constants.RefreshTimeout)
		defer cancel()
		return c.refresh(refreshCtx, region, accountID, e)
	})
	if err != nil {
		return nil, err
	}
	c.touch(key, e)
	return v.(*domain.PlayerRating), nil
}

// touch re-registers the entry after a successful refresh; the table may
// have evicted it while the refresh was in flight. Safe to clobber: entry
// writes are serialized per key by the singleflight group, so a
// replacement entry created mid-flight is still unpopulated.
func (c *PlayerCache) touch(key string, e *playerEntry) {
	c.mu.Lock()
	c.table.Add(key, e)
	c.mu.Unlock()
}

func (c *PlayerCache) refresh(ctx context.Context, region string, accountID int64, e *playerEntry) (*domain.PlayerRating, error) {
	key := playerKey(region, accountID)

	summary, err := c.upstream.PlayerSummary(ctx, region, accountID)
	if err != nil {
		if errors.Is(err, domain.ErrUpstreamUnavailable) {
			if stale := c.staleResult(e); stale != nil {
				c.logger.Warn().Err(err).Str("player", key).Msg("refresh failed, serving stale cached rating")
				return stale, nil
			}
		}
		c.logger.Error().Err(err).Str("player", key).Msg("player fetch failed with no cached data")
		return nil, err
	}

	if summary.Hidden {
		e.mu.Lock()
		e.hidden = true
		e.result.Nickname = summary.Nickname
		e.lastFetch = c.now()
		e.mu.Unlock()
		c.logger.Info().Str("player", key).Msg("profile is hidden, caching marker")
		return nil, fmt.Errorf("player %s: %w", key, domain.ErrHiddenProfile)
	}

	newBattles := summary.AllTime.Get(stats.Battles)

	e.mu.Lock()
	if e.populated && !e.hidden && newBattles == e.result.AllTime.Get(stats.Battles) {
		// Nothing changed upstream since the last check; refresh the
		// denormalized identity fields and reuse the computed rating.
		e.result.Nickname = summary.Nickname
		e.result.ClanTag = summary.ClanTag
		e.lastFetch = c.now()
		out := copyPlayerResult(&e.result, false)
		e.mu.Unlock()
		c.logger.Debug().Str("player", key).Float64("battles", newBattles).Msg("battle count unchanged, reusing rating")
		return out, nil
	}
	e.hidden = false
	e.mu.Unlock()

	tables, err := c.refdata.Snapshot(region)
	if err != nil {
		c.logger.Error().Err(err).Str("player", key).Msg("reference data not ready, cannot compute rating")
		return nil, err
	}

	var (
		perShip map[int64]stats.Sample
		daily   map[string]stats.Sample
		dates   = recentDates(c.now(), constants.RecentWindowDays)
	)
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		perShip, err = c.upstream.PlayerShips(gCtx, region, accountID)
		return err
	})
	g.Go(func() error {
		var err error
		daily, err = c.upstream.PlayerDaily(gCtx, region, accountID, dates)
		if err != nil {
			// The recent delta is a derived nicety; a full refresh
			// without it is still a success.
			c.logger.Warn().Err(err).Str("player", key).Msg("daily snapshots unavailable, skipping recent delta")
			daily = nil
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		if errors.Is(err, domain.ErrUpstreamUnavailable) {
			if stale := c.staleResult(e); stale != nil {
				c.logger.Warn().Err(err).Str("player", key).Msg("ship stats fetch failed, serving stale cached rating")
				return stale, nil
			}
		}
		return nil, err
	}

	wtr := rating.Aggregate(tables.Expected, tables.Coefficients, perShip, tables.Tiers)
	recent, since := recentDelta(summary.AllTime, daily, dates)

	e.mu.Lock()
	e.populated = true
	e.result = domain.PlayerRating{
		AccountID:   accountID,
		Region:      region,
		Nickname:    summary.Nickname,
		ClanTag:     summary.ClanTag,
		Rating:      wtr,
		Bucket:      rating.Classify(wtr),
		AllTime:     summary.AllTime,
		Recent:      recent,
		RecentSince: since,
		PerShip:     perShip,
		FetchedAt:   c.now(),
	}
	e.lastFetch = c.now()
	out := copyPlayerResult(&e.result, false)
	e.mu.Unlock()

	c.logger.Info().Str("player", key).Float64("rating", wtr).Str("bucket", rating.Classify(wtr).String()).Msg("player rating refreshed")
	return out, nil
}

func (c *PlayerCache) staleResult(e *playerEntry) *domain.PlayerRating {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.populated {
		return nil
	}
	return copyPlayerResult(&e.result, true)
}

func copyPlayerResult(r *domain.PlayerRating, stale bool) *domain.PlayerRating {
	out := *r
	out.Stale = stale
	out.AllTime = r.AllTime.Clone()
	out.Recent = r.Recent.Clone()
	if r.PerShip != nil {
		out.PerShip = make(map[int64]stats.Sample, len(r.PerShip))
		for id, s := range r.PerShip {
			out.PerShip[id] = s.Clone()
		}
	}
	if r.RecentSince != nil {
		since := *r.RecentSince
		out.RecentSince = &since
	}
	return &out
}

// recentDates lists the last n calendar days, most recent first, in the
// upstream date format.
func recentDates(now time.Time, n int) []string {
	dates := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		dates = append(dates, now.AddDate(0, 0, -i).Format(dateLayout))
	}
	return dates
}

// recentDelta derives the recent-window delta from the daily all-time
// snapshots. dates are scanned most-recent-first; the first day with a
// positive, sane battle-count delta against the current all-time battles
// becomes the baseline. No usable day means no recent stats.
func recentDelta(allTime stats.Sample, daily map[string]stats.Sample, dates []string) (stats.Sample, *time.Time) {
	current := allTime.Get(stats.Battles)
	for _, date := range dates {
		snapshot, ok := daily[date]
		if !ok {
			continue
		}
		base := snapshot.Get(stats.Battles)
		if base <= 0 || base >= current {
			continue
		}
		since, err := time.Parse(dateLayout, date)
		if err != nil {
			continue
		}
		return allTime.Diff(snapshot), &since
	}
	return nil, nil
}
