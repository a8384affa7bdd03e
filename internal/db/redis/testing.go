package redis

import "github.com/redis/rueidis"

// NewStoreForTest creates a Store with the provided rueidis client and the default index layout (test-only).
func NewStoreForTest(c rueidis.Client) *Store {
	return newStore(c, "", "")
}
