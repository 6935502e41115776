// Package cache provides the in-memory image cache used by the image proxy.
//
// A Cache maps an upstream URL to the bytes and content type it returned.
// Entries are served for a fixed TTL (30 minutes by default). Expiry is
// checked on read, and stale entries are removed by Sweep, which runs after
// every Set and optionally on a cron schedule through Scheduler.
//
// The cache is bounded: once MaxEntries is reached, expired entries are
// dropped first and then the least recently used entry is evicted.
//
// Basic usage:
//
//	c := cache.New(cache.Options{TTL: 30 * time.Minute, MaxEntries: 1024})
//	defer c.Close()
//
//	c.Set(url, body, "image/png")
//	if e, ok := c.Get(url); ok {
//	    w.Header().Set("Content-Type", e.ContentType)
//	    w.Write(e.Payload)
//	}
//
// Cache is an explicit value with Clear and Close rather than package
// state, so tests and servers each own their instance.
package cache
