package domain

import (
	"time"

	"warships-rating/internal/rating"
	"warships-rating/internal/stats"
)

// PlayerSummary is the upstream account view: identity plus the all-time
// battle counters. Hidden profiles carry no statistics.
type PlayerSummary struct {
	AccountID int64
	Nickname  string
	ClanTag   string
	Hidden    bool
	AllTime   stats.Sample
}

// ClanInfo is the upstream clan view.
type ClanInfo struct {
	ClanID      int64
	Name        string
	Tag         string
	Description string
	MemberIDs   []int64
}

// PlayerRating is the result handed to callers: the composite rating plus
// its derived views. Samples are deep copies; mutating them never touches
// cache state.
type PlayerRating struct {
	AccountID int64
	Region    string
	Nickname  string
	ClanTag   string

	Rating float64
	Bucket rating.Bucket

	// Stale marks a result served from cache because the refresh that
	// should have replaced it failed.
	Stale bool

	AllTime stats.Sample
	// Recent is the delta over the recent-day window, nil when no day in
	// the window yields a usable baseline.
	Recent      stats.Sample
	RecentSince *time.Time
	PerShip     map[int64]stats.Sample

	FetchedAt time.Time
}

// MemberRating is one clan member's contribution to the clan rating.
type MemberRating struct {
	AccountID int64
	Nickname  string
	Rating    float64
	Bucket    rating.Bucket
	Battles   float64
}

// ClanRating aggregates member ratings, battle-weighted, together with
// the merged clan-total sample.
type ClanRating struct {
	ClanID      int64
	Region      string
	Name        string
	Tag         string
	Description string

	Rating float64
	Bucket rating.Bucket
	Stale  bool

	Members  []MemberRating
	Combined stats.Sample

	FetchedAt time.Time
}

// TrackedPlayer is one watchlist entry: a player some channel keeps an
// eye on.
type TrackedPlayer struct {
	ID        string
	Channel   string
	Region    string
	AccountID int64
	AddedAt   time.Time
}
