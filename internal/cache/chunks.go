package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"platesync/internal/logger"
)

// ErrCacheMiss reports a named value that is absent or expired. Callers treat
// it differently from an empty collection: a miss means "fetch the catalog
// again", an empty collection is valid data.
var ErrCacheMiss = errors.New("cache: miss")

const DefaultTTL = time.Hour

// Store caches one fetched catalog snapshot between requests. Collections too
// large for a single backing entry are split into chunks under
// {prefix}{name}_{i} keys with a {prefix}{name}_count record; small named
// values go through PutValue/GetValue untouched.
type Store struct {
	kv     KV
	prefix string
	ttl    time.Duration
	log    *logger.Logger
}

func NewStore(kv KV, prefix string, ttl time.Duration, log *logger.Logger) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{kv: kv, prefix: prefix, ttl: ttl, log: log}
}

func (s *Store) chunkKey(name string, i int) string {
	return s.prefix + name + "_" + strconv.Itoa(i)
}

func (s *Store) countKey(name string) string {
	return s.prefix + name + "_count"
}

// PutChunked writes a keyed collection as ordered chunks of at most chunkSize
// entries. Prior chunks for the name are deleted first. A failed chunk write
// aborts and returns the error; chunks already written stay visible, which is
// acceptable because a full re-fetch always replaces them.
func PutChunked[T any](ctx context.Context, s *Store, name string, items map[string]T, chunkSize int) error {
	if len(items) == 0 {
		return fmt.Errorf("cache: nothing to chunk for %q", name)
	}
	if chunkSize < 1 {
		chunkSize = 1
	}

	if err := deleteChunks(ctx, s, name); err != nil {
		return err
	}

	keys := make([]string, 0, len(items))
	for k := range items {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	chunkCount := 0
	for start := 0; start < len(keys); start += chunkSize {
		end := start + chunkSize
		if end > len(keys) {
			end = len(keys)
		}

		chunk := make(map[string]T, end-start)
		for _, k := range keys[start:end] {
			chunk[k] = items[k]
		}

		payload, err := json.Marshal(chunk)
		if err != nil {
			return fmt.Errorf("cache: marshal chunk %d of %q: %w", chunkCount+1, name, err)
		}

		chunkCount++
		if err := s.kv.Set(ctx, s.chunkKey(name, chunkCount), payload, s.ttl); err != nil {
			return fmt.Errorf("cache: write chunk %d of %q: %w", chunkCount, name, err)
		}
	}

	if err := s.kv.Set(ctx, s.countKey(name), []byte(strconv.Itoa(chunkCount)), s.ttl); err != nil {
		return fmt.Errorf("cache: write chunk count of %q: %w", name, err)
	}

	return nil
}

// GetChunked reassembles a chunked collection. A missing count record yields
// an empty map; individual missing or expired chunks are skipped, so the
// result may be partial. On key collision across chunks the later chunk wins.
func GetChunked[T any](ctx context.Context, s *Store, name string) (map[string]T, error) {
	raw, ok, err := s.kv.Get(ctx, s.countKey(name))
	if err != nil {
		return nil, fmt.Errorf("cache: read chunk count of %q: %w", name, err)
	}
	if !ok {
		return map[string]T{}, nil
	}

	count, err := strconv.Atoi(string(raw))
	if err != nil {
		return nil, fmt.Errorf("cache: bad chunk count of %q: %w", name, err)
	}

	out := make(map[string]T)
	for i := 1; i <= count; i++ {
		payload, ok, err := s.kv.Get(ctx, s.chunkKey(name, i))
		if err != nil {
			return nil, fmt.Errorf("cache: read chunk %d of %q: %w", i, name, err)
		}
		if !ok {
			s.log.Warn("cache: chunk %d of %q expired, continuing with partial data", i, name)
			continue
		}

		chunk := make(map[string]T)
		if err := json.Unmarshal(payload, &chunk); err != nil {
			return nil, fmt.Errorf("cache: decode chunk %d of %q: %w", i, name, err)
		}
		for k, v := range chunk {
			out[k] = v
		}
	}

	return out, nil
}

// PutValue stores a small named value without chunking.
func PutValue[T any](ctx context.Context, s *Store, key string, value T) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache: marshal %q: %w", key, err)
	}
	if err := s.kv.Set(ctx, s.prefix+key, payload, s.ttl); err != nil {
		return fmt.Errorf("cache: write %q: %w", key, err)
	}
	return nil
}

// GetValue reads a value stored by PutValue. An absent or expired entry
// returns ErrCacheMiss, distinct from a present-but-empty value.
func GetValue[T any](ctx context.Context, s *Store, key string) (T, error) {
	var zero T

	payload, ok, err := s.kv.Get(ctx, s.prefix+key)
	if err != nil {
		return zero, fmt.Errorf("cache: read %q: %w", key, err)
	}
	if !ok {
		s.log.Warn("cache: %q is not in the cache, fetch the catalog again", key)
		return zero, ErrCacheMiss
	}

	var out T
	if err := json.Unmarshal(payload, &out); err != nil {
		return zero, fmt.Errorf("cache: decode %q: %w", key, err)
	}
	return out, nil
}

func deleteChunks(ctx context.Context, s *Store, name string) error {
	raw, ok, err := s.kv.Get(ctx, s.countKey(name))
	if err != nil || !ok {
		return err
	}

	count, err := strconv.Atoi(string(raw))
	if err != nil {
		return nil
	}

	keys := make([]string, 0, count+1)
	for i := 1; i <= count; i++ {
		keys = append(keys, s.chunkKey(name, i))
	}
	keys = append(keys, s.countKey(name))

	return s.kv.Del(ctx, keys...)
}
