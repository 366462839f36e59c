package database

import (
	"time"

	"github.com/bradfitz/gomemcache/memcache"
)

// NewMemcached returns a memcache client, or nil when no server is configured.
func NewMemcached(server string) *memcache.Client {
	if server == "" {
		return nil
	}
	client := memcache.New(server)
	client.Timeout = 500 * time.Millisecond
	return client
}
