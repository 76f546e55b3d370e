// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cache implements cache-aside reads over Redis.

	c := cache.New(redisClient, cfg.KVTimeout)

	view, cached, err := cache.GetOrLoad(ctx, c, kv.SurveyByToken(token), cfg.SurveyCacheTTL,
		func(ctx context.Context) (models.SurveyView, error) {
			// load from the database
		})

Values are stored as JSON with a TTL. There is no invalidation on writes;
readers accept staleness up to the TTL. Redis errors, timeouts and
undecodable entries are treated as misses, so an unreachable Redis only
makes reads slower.
*/
package cache
