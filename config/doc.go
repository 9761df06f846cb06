// Package config loads the YAML configuration that wires observability, the
// cache backend and the concrete API clients together.
//
// A minimal file:
//
//	observe:
//	  service_name: apicall
//	  logging: {enabled: true, level: info}
//	cache:
//	  backend: memory
//	  default_ttl: 5m
//	clients:
//	  shodan:
//	    api_key: ${SHODAN_API_KEY}
//	  haveibeenpwned:
//	    api_key: secretref:file:hibp.key
//
// Durations are Go duration strings. Client API keys and the Redis password
// go through a secret.Resolver, so they may reference the environment or a
// secret provider instead of carrying the value.
//
// Open turns a Config into a Runtime that owns the observer, the shared
// Redis connection and every client it builds:
//
//	rt, err := config.Open(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer rt.Close(ctx)
//	client, err := rt.Client(ctx, "shodan")
package config
