// Package imageproxy serves remote images through the site's own origin.
//
// Two endpoints are provided:
//
//   - /api/proxy-image-display?url= returns the image inline. Responses are
//     held in an in-memory TTL cache and are publicly cacheable by browsers
//     and CDNs. Concurrent misses for one URL share one upstream fetch, and
//     the fetch retries transient failures.
//   - /api/proxy-image?url= returns the image as a download attachment. It
//     bypasses the cache, makes a single upstream attempt, and relays the
//     upstream status when the upstream refuses.
//
// The X-Cache response header reports HIT or MISS for the display endpoint.
package imageproxy
