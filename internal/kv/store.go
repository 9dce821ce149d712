// Package kv provides the flat key-value storage used for the web platform's
// medication blob, the user list on that platform and the persisted session.
//
// All implementations share one contract: Get returns (nil, nil) for a key
// that was never set, Delete of a missing key is not an error, and Incr
// atomically increments an integer counter starting from zero.
package kv

import "context"

type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Incr(ctx context.Context, key string) (int64, error)
	List(ctx context.Context) (map[string][]byte, error)
	Clear(ctx context.Context) error
}
