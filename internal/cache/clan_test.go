package cache

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"warships-rating/internal/domain"
	"warships-rating/internal/stats"

	"github.com/rs/zerolog"
)

func clanFixtureUpstream() *fakeUpstream {
	up := &fakeUpstream{}
	up.clanFn = func(region string, id int64) (*domain.ClanInfo, error) {
		return &domain.ClanInfo{
			ClanID:      id,
			Name:        "Test Fleet",
			Tag:         "TF",
			Description: "testing",
			MemberIDs:   []int64{1, 2, 3},
		}, nil
	}
	up.summaryFn = func(region string, id int64) (*domain.PlayerSummary, error) {
		switch id {
		case 2:
			return &domain.PlayerSummary{AccountID: id, Hidden: true}, nil
		case 3:
			return &domain.PlayerSummary{AccountID: id, Nickname: "veteran", AllTime: playerStats(300)}, nil
		default:
			return &domain.PlayerSummary{AccountID: id, Nickname: "rookie", AllTime: playerStats(100)}, nil
		}
	}
	up.shipsFn = func(region string, id int64) (map[int64]stats.Sample, error) {
		if id == 3 {
			return map[int64]stats.Sample{42: playerStats(300)}, nil
		}
		return map[int64]stats.Sample{42: playerStats(100)}, nil
	}
	return up
}

func newTestClanCache(up *fakeUpstream) *ClanCache {
	players := NewPlayerCache(up, &fakeRefData{tables: testTables()}, zerolog.Nop())
	return NewClanCache(up, players, zerolog.Nop())
}

func TestClanRatingAggregatesMembers(t *testing.T) {
	up := clanFixtureUpstream()
	c := newTestClanCache(up)

	got, err := c.GetRating(context.Background(), "na", 500, false)
	if err != nil {
		t.Fatalf("GetRating failed: %v", err)
	}
	if got.Name != "Test Fleet" || got.Tag != "TF" {
		t.Errorf("clan meta not populated: %q %q", got.Name, got.Tag)
	}
	// Member 2 is hidden and must be skipped, not fail the aggregate.
	if len(got.Members) != 2 {
		t.Fatalf("members = %d, want 2", len(got.Members))
	}
	// Both resolvable members rate exactly 1000 against the fixture
	// baseline, so the battle-weighted clan rating is 1000.
	if got.Rating != 1000 {
		t.Errorf("clan rating = %v, want 1000", got.Rating)
	}
	if battles := got.Combined.Get(stats.Battles); battles != 400 {
		t.Errorf("combined battles = %v, want 400", battles)
	}
	// Members come back sorted by rating descending.
	if got.Members[0].Rating < got.Members[1].Rating {
		t.Error("members not sorted by rating")
	}
}

func TestClanRatingCached(t *testing.T) {
	up := clanFixtureUpstream()
	c := newTestClanCache(up)

	if _, err := c.GetRating(context.Background(), "na", 500, false); err != nil {
		t.Fatalf("GetRating failed: %v", err)
	}
	if _, err := c.GetRating(context.Background(), "na", 500, false); err != nil {
		t.Fatalf("cached GetRating failed: %v", err)
	}
	if _, _, _, clan := up.counts(); clan != 1 {
		t.Errorf("clan fetches = %d, want 1", clan)
	}
}

func TestClanStaleServedOnRefreshFailure(t *testing.T) {
	up := clanFixtureUpstream()
	c := newTestClanCache(up)

	first, err := c.GetRating(context.Background(), "na", 500, false)
	if err != nil {
		t.Fatalf("initial GetRating failed: %v", err)
	}

	up.mu.Lock()
	up.clanFn = func(region string, id int64) (*domain.ClanInfo, error) {
		return nil, fmt.Errorf("%w: gateway timeout", domain.ErrUpstreamUnavailable)
	}
	up.mu.Unlock()

	got, err := c.GetRating(context.Background(), "na", 500, true)
	if err != nil {
		t.Fatalf("expected stale result, got error: %v", err)
	}
	if !got.Stale {
		t.Error("result after failed refresh should be marked stale")
	}
	if got.Rating != first.Rating {
		t.Errorf("stale rating = %v, want cached %v", got.Rating, first.Rating)
	}
}

func TestClanNotFoundPropagates(t *testing.T) {
	up := clanFixtureUpstream()
	up.clanFn = func(region string, id int64) (*domain.ClanInfo, error) {
		return nil, fmt.Errorf("clan %d: %w", id, domain.ErrNotFound)
	}
	c := newTestClanCache(up)

	_, err := c.GetRating(context.Background(), "na", 500, false)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
