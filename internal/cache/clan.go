package cache

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"warships-rating/internal/constants"
	"warships-rating/internal/domain"
	"warships-rating/internal/rating"
	"warships-rating/internal/stats"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

type clanEntry struct {
	mu        sync.Mutex
	populated bool
	result    domain.ClanRating
	lastFetch time.Time
}

// ClanCache serves clan rating requests. Member ratings resolve through
// the PlayerCache, so a clan refresh warms the player table as a side
// effect.
type ClanCache struct {
	upstream Upstream
	players  *PlayerCache
	logger   zerolog.Logger

	mu    sync.Mutex
	table *lru.Cache[string, *clanEntry]
	group singleflight.Group

	now func() time.Time
}

func NewClanCache(upstream Upstream, players *PlayerCache, logger zerolog.Logger) *ClanCache {
	table, _ := lru.New[string, *clanEntry](constants.ClanCacheSize)
	return &ClanCache{
		upstream: upstream,
		players:  players,
		logger:   logger,
		table:    table,
		now:      time.Now,
	}
}

func (c *ClanCache) entry(key string) *clanEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.table.Get(key); ok {
		return e
	}
	e := &clanEntry{}
	c.table.Add(key, e)
	return e
}

// GetRating returns the clan's battle-weighted rating over its members,
// with the same refresh, dedup and stale-serving discipline as the player
// cache.
func (c *ClanCache) GetRating(ctx context.Context, region string, clanID int64, force bool) (*domain.ClanRating, error) {
	key := fmt.Sprintf("%s:%d", region, clanID)
	e := c.entry(key)

	e.mu.Lock()
	if e.populated && !force && c.now().Sub(e.lastFetch) < constants.ClanRefreshTTL {
		out := copyClanResult(&e.result, false)
		e.mu.Unlock()
		return out, nil
	}
	e.mu.Unlock()

	v, err, _ := c.group.Do(key, func() (any, error) {
		refreshCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), constants.RefreshTimeout)
		defer cancel()
		return c.refresh(refreshCtx, region, clanID, e)
	})
	if err != nil {
		return nil, err
	}
	c.touch(key, e)
	return v.(*domain.ClanRating), nil
}

// touch re-registers the entry after a successful refresh, as the player
// cache does; the table may have evicted it mid-flight.
func (c *ClanCache) touch(key string, e *clanEntry) {
	c.mu.Lock()
	c.table.Add(key, e)
	c.mu.Unlock()
}

func (c *ClanCache) refresh(ctx context.Context, region string, clanID int64, e *clanEntry) (*domain.ClanRating, error) {
	key := fmt.Sprintf("%s:%d", region, clanID)

	info, err := c.upstream.ClanInfo(ctx, region, clanID)
	if err != nil {
		if errors.Is(err, domain.ErrUpstreamUnavailable) {
			e.mu.Lock()
			if e.populated {
				out := copyClanResult(&e.result, true)
				e.mu.Unlock()
				c.logger.Warn().Err(err).Str("clan", key).Msg("clan refresh failed, serving stale cached rating")
				return out, nil
			}
			e.mu.Unlock()
		}
		c.logger.Error().Err(err).Str("clan", key).Msg("clan fetch failed with no cached data")
		return nil, err
	}

	members := make([]*domain.PlayerRating, len(info.MemberIDs))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(constants.ClanFetchConcurrency)
	for i, memberID := range info.MemberIDs {
		g.Go(func() error {
			pr, err := c.players.GetRating(gCtx, region, memberID, false)
			if err != nil {
				// Hidden or vanished members shrink the aggregate
				// instead of failing it.
				c.logger.Warn().Err(err).Str("clan", key).Int64("member", memberID).Msg("skipping member in clan aggregate")
				return nil
			}
			members[i] = pr
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var (
		memberRatings []domain.MemberRating
		ratings       []float64
		battles       []float64
		samples       []stats.Sample
	)
	for _, pr := range members {
		if pr == nil {
			continue
		}
		b := pr.AllTime.Get(stats.Battles)
		memberRatings = append(memberRatings, domain.MemberRating{
			AccountID: pr.AccountID,
			Nickname:  pr.Nickname,
			Rating:    pr.Rating,
			Bucket:    pr.Bucket,
			Battles:   b,
		})
		ratings = append(ratings, pr.Rating)
		battles = append(battles, b)
		samples = append(samples, pr.AllTime)
	}
	sort.Slice(memberRatings, func(i, j int) bool {
		return memberRatings[i].Rating > memberRatings[j].Rating
	})

	wtr := rating.WeightedAverage(ratings, battles)

	e.mu.Lock()
	e.populated = true
	e.result = domain.ClanRating{
		ClanID:      clanID,
		Region:      region,
		Name:        info.Name,
		Tag:         info.Tag,
		Description: info.Description,
		Rating:      wtr,
		Bucket:      rating.Classify(wtr),
		Members:     memberRatings,
		Combined:    stats.Merge(samples...),
		FetchedAt:   c.now(),
	}
	e.lastFetch = c.now()
	out := copyClanResult(&e.result, false)
	e.mu.Unlock()

	c.logger.Info().Str("clan", key).Float64("rating", wtr).Int("members", len(memberRatings)).Msg("clan rating refreshed")
	return out, nil
}

func copyClanResult(r *domain.ClanRating, stale bool) *domain.ClanRating {
	out := *r
	out.Stale = stale
	out.Combined = r.Combined.Clone()
	out.Members = make([]domain.MemberRating, len(r.Members))
	copy(out.Members, r.Members)
	return &out
}
