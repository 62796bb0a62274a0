package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/prbn021/seo-app/models"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// CachedLeadFinder serves repeated keyword searches from Redis
type CachedLeadFinder struct {
	next   LeadFinder
	rc     *redis.Client
	prefix string
	ttl    time.Duration
	logger logrus.FieldLogger
}

// NewCachedLeadFinder wraps next with a Redis cache. Without a client or a positive TTL the
// finder is returned unchanged.
func NewCachedLeadFinder(next LeadFinder, rc *redis.Client, prefix string, ttl time.Duration, logger logrus.FieldLogger) LeadFinder {
	if rc == nil || ttl <= 0 {
		return next
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &CachedLeadFinder{
		next:   next,
		rc:     rc,
		prefix: prefix,
		ttl:    ttl,
		logger: logger.WithField("service", "lead_finder_cache"),
	}
}

func (c *CachedLeadFinder) key(keyword string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(keyword)), " ")
	return c.prefix + "leads:" + normalized
}

// FindLeads returns cached leads for the keyword or asks the wrapped finder. Only successful
// results are cached; cache failures degrade to a direct call.
func (c *CachedLeadFinder) FindLeads(ctx context.Context, keyword string) ([]models.LeadInput, error) {
	key := c.key(keyword)

	data, err := c.rc.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var leads []models.LeadInput
		if jsonErr := json.Unmarshal(data, &leads); jsonErr == nil {
			c.logger.WithField("keyword", keyword).Debug("lead search served from cache")
			return leads, nil
		}
		c.logger.WithField("key", key).Warn("discarding undecodable cached leads")
	case !errors.Is(err, redis.Nil):
		c.logger.WithError(err).Warn("lead cache read failed")
	}

	leads, err := c.next.FindLeads(ctx, keyword)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(leads)
	if err != nil {
		return leads, nil
	}
	if err := c.rc.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		c.logger.WithError(err).Warn("lead cache write failed")
	}
	return leads, nil
}
