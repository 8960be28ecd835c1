// Package redis holds the connection helper and the read-side trending
// snapshot cache. Redis is never the source of truth; the Postgres queue is,
// and the cache is repaired by the next rebuild.
package redis
