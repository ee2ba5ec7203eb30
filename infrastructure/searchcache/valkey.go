package searchcache

import (
	"context"
	"encoding/json"
	"time"

	domainCache "github.com/ozcart/salewatch/domains/cache"
	"github.com/ozcart/salewatch/domains/catalog"
	"github.com/ozcart/salewatch/infrastructure/valkey"
	"github.com/sirupsen/logrus"
)

const valkeyOpTimeout = 2 * time.Second

// Valkey is the shared-backend variant of the search cache. Entry TTLs map
// onto native key expiry; the LRU bound is delegated to the server's
// eviction policy, so MaxSize is reported as zero.
type Valkey struct {
	client     *valkey.Client
	defaultTTL time.Duration
}

func NewValkey(client *valkey.Client, defaultTTL time.Duration) *Valkey {
	return &Valkey{client: client, defaultTTL: defaultTTL}
}

func (c *Valkey) key(source, query, location string) string {
	return c.client.Key("search", Key(source, query, location))
}

func (c *Valkey) Get(source, query, location string) []catalog.Candidate {
	value, _ := c.GetEntry(source, query, location)
	return value
}

func (c *Valkey) GetEntry(source, query, location string) ([]catalog.Candidate, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), valkeyOpTimeout)
	defer cancel()

	inner := c.client.Inner()
	raw, err := inner.Do(ctx, inner.B().Get().Key(c.key(source, query, location)).Build()).AsBytes()
	if err != nil {
		if !valkey.IsNil(err) {
			logrus.WithError(err).Warn("[CACHE] Valkey get failed")
		}
		return nil, false
	}

	var value []catalog.Candidate
	if err := json.Unmarshal(raw, &value); err != nil {
		logrus.WithError(err).Warn("[CACHE] Corrupt cache payload, treating as miss")
		return nil, false
	}
	return value, true
}

func (c *Valkey) Put(source, query, location string, value []catalog.Candidate) {
	c.PutTTL(source, query, location, value, int(c.defaultTTL.Seconds()))
}

func (c *Valkey) PutTTL(source, query, location string, value []catalog.Candidate, ttlSeconds int) {
	ctx, cancel := context.WithTimeout(context.Background(), valkeyOpTimeout)
	defer cancel()

	inner := c.client.Inner()
	key := c.key(source, query, location)

	if ttlSeconds <= 0 {
		if err := inner.Do(ctx, inner.B().Del().Key(key).Build()).Error(); err != nil {
			logrus.WithError(err).Warn("[CACHE] Valkey del failed")
		}
		return
	}

	raw, err := json.Marshal(value)
	if err != nil {
		logrus.WithError(err).Warn("[CACHE] Failed to encode cache payload")
		return
	}

	cmd := inner.B().Set().Key(key).Value(string(raw)).ExSeconds(int64(ttlSeconds)).Build()
	if err := inner.Do(ctx, cmd).Error(); err != nil {
		logrus.WithError(err).Warn("[CACHE] Valkey set failed")
	}
}

func (c *Valkey) Clear() {
	for _, key := range c.scanKeys() {
		ctx, cancel := context.WithTimeout(context.Background(), valkeyOpTimeout)
		inner := c.client.Inner()
		if err := inner.Do(ctx, inner.B().Del().Key(key).Build()).Error(); err != nil {
			logrus.WithError(err).Warn("[CACHE] Valkey del failed")
		}
		cancel()
	}
}

func (c *Valkey) Size() int {
	return len(c.scanKeys())
}

func (c *Valkey) Stats() domainCache.Stats {
	return domainCache.Stats{
		Size:       c.Size(),
		DefaultTTL: c.defaultTTL.String(),
		HumanNote:  "expiry and eviction are handled server-side",
	}
}

func (c *Valkey) scanKeys() []string {
	inner := c.client.Inner()
	pattern := c.client.Key("search", "*")

	var keys []string
	var cursor uint64
	for {
		ctx, cancel := context.WithTimeout(context.Background(), valkeyOpTimeout)
		entry, err := inner.Do(ctx, inner.B().Scan().Cursor(cursor).Match(pattern).Count(200).Build()).AsScanEntry()
		cancel()
		if err != nil {
			logrus.WithError(err).Warn("[CACHE] Valkey scan failed")
			return keys
		}

		keys = append(keys, entry.Elements...)
		cursor = entry.Cursor
		if cursor == 0 {
			break
		}
	}
	return keys
}

var _ domainCache.ISearchCache = (*Valkey)(nil)
