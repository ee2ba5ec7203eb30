package config

import "time"

var (
	AppVersion        = "v1.0.0"
	AppPort           = "3000"
	AppDebug          = false
	AppBasePath       = ""
	AppTrustedProxies []string // Trusted proxy IP ranges (e.g., "0.0.0.0/0" for all, or specific CIDRs)

	// Default location used when a request does not carry one.
	DefaultPostcode = "2000"

	// Search cache
	CacheMaxSize    = 1000
	CacheTTL        = 10 * time.Minute
	CacheBackend    = "memory" // "memory" or "valkey"
	ValkeyAddress   = "localhost:6379"
	ValkeyPassword  = ""
	ValkeyDB        = 0
	ValkeyKeyPrefix = "salewatch"

	// Outbound HTTP retry policy
	RetryMaxAttempts   = 3
	RetryBackoffFactor = 1.0
	RequestTimeout     = 30 * time.Second

	// Circuit breaker / degradation
	BreakerFailureThreshold = 5
	BreakerTimeout          = 60 * time.Second
	SourceSearchTimeout     = 15 * time.Second
	LastGoodMaxAge          = time.Hour
	MinSuccessRate          = 0.3

	// Rate limiting (requests / window seconds / burst) per class
	RateLimitGlobal   = [3]int{100, 60, 10}
	RateLimitCheck    = [3]int{20, 60, 5}
	RateLimitHeavy    = [3]int{5, 60, 2}
	RateLimitAdmin    = [3]int{200, 60, 20}
	RateLimitReapAge  = time.Hour
	RateLimitReapTick = 5 * time.Minute

	// Matching thresholds and bonuses
	MatchMinSimilarity    = 0.3
	MatchHighConfidence   = 0.8
	MatchMediumConfidence = 0.6
	MatchExactWordBonus   = 0.2
	MatchBrandBonus       = 0.15
	MatchSizeBonus        = 0.1
	MatchKeywordBonus     = 0.05
	MatchMaxAlternatives  = 8

	// Price history storage. Driver is inferred from the URI:
	// a postgres:// URI selects postgres, anything else is sqlite.
	PriceDBURI = "file:storages/pricehistory.db?_journal_mode=WAL&_foreign_keys=on"

	PathStorages = "storages"
)
