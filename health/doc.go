// Package health reports whether the infrastructure behind the API clients
// is usable: cache backends accept and return entries, Redis answers, and
// configured API keys resolve.
//
// Checks never call a remote API, so running them spends no quota.
//
//	agg := health.NewAggregator()
//	agg.Register(health.CacheChecker("cache.shodan", client.Cache()))
//	agg.Register(health.SecretChecker("secret.shodan", resolver, "${SHODAN_API_KEY}"))
//	results := agg.CheckAll(ctx)
//	if health.Overall(results) == health.StatusUnhealthy {
//	    ...
//	}
package health
