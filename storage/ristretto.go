package storage

import (
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// RistrettoStorage implements fiber.Storage on a ristretto cache. The rate
// limiter keeps its counters here.
type RistrettoStorage struct {
	cache *ristretto.Cache[string, []byte]
}

// NewRistrettoStorage builds a small dedicated cache for fiber middleware state.
func NewRistrettoStorage() (*RistrettoStorage, error) {
	cache, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: 1e5,
		MaxCost:     1 << 24,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &RistrettoStorage{cache: cache}, nil
}

// Get returns nil, nil for a missing key as fiber.Storage requires.
func (r *RistrettoStorage) Get(key string) ([]byte, error) {
	if value, found := r.cache.Get(key); found {
		return value, nil
	}
	return nil, nil
}

// Set stores val; a zero exp means no expiration. The write is flushed before
// returning so a following Get observes it.
func (r *RistrettoStorage) Set(key string, val []byte, exp time.Duration) error {
	if key == "" || len(val) == 0 {
		return nil
	}
	r.cache.SetWithTTL(key, val, int64(len(val)), exp)
	r.cache.Wait()
	return nil
}

func (r *RistrettoStorage) Delete(key string) error {
	r.cache.Del(key)
	return nil
}

func (r *RistrettoStorage) Reset() error {
	r.cache.Clear()
	return nil
}

func (r *RistrettoStorage) Close() error {
	r.cache.Close()
	return nil
}
