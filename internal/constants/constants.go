package constants

import "time"

const (
	PlayerRefreshTTL = 5 * time.Minute
	ClanRefreshTTL   = 10 * time.Minute
	RefDataInterval  = 5 * time.Minute
)

const (
	ExternalAPITimeout = 10 * time.Second
	RefreshTimeout     = 25 * time.Second
	DatabaseTimeout    = 5 * time.Second
	RequestTimeout     = 30 * time.Second
)

const (
	// PlayerCacheSize bounds the per-player LRU table to the expected
	// working set of a busy channel roster.
	PlayerCacheSize = 4096
	ClanCacheSize   = 512
)

const (
	// RecentWindowDays is how far back the recent-delta scan looks for a
	// usable daily baseline.
	RecentWindowDays = 8

	// ClanFetchConcurrency caps concurrent member fetches during a clan
	// refresh.
	ClanFetchConcurrency = 4
)

const (
	DBMaxOpenConns    = 25
	DBMaxIdleConns    = 5
	DBConnMaxLifetime = 1 * time.Hour
	DBMaxIdleTime     = 10 * time.Minute
)

const (
	ShutdownTimeout = 5 * time.Second
)
