// Package testutil provides in-memory collaborators for pipeline tests.
package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/DavidD95/Prueba-Data-Engineering/internal/storage"
)

// Op names a storage operation for fault injection and call logs.
type Op string

const (
	OpEnsureBucket Op = "ensure_bucket"
	OpList         Op = "list"
	OpRead         Op = "read"
	OpExists       Op = "exists"
	OpCopy         Op = "copy"
	OpDelete       Op = "delete"
)

type fault struct {
	err   error
	times int // remaining; negative means forever
}

// MemoryStorage is an in-memory storage.ObjectStorage with fault injection.
type MemoryStorage struct {
	mu      sync.Mutex
	objects map[string]map[string][]byte
	faults  map[string]*fault
	hooks   map[Op]func(bucket, key string)
	log     []string
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		objects: make(map[string]map[string][]byte),
		faults:  make(map[string]*fault),
		hooks:   make(map[Op]func(bucket, key string)),
	}
}

// Put stores an object directly, bypassing faults and the call log.
func (m *MemoryStorage) Put(bucket, key string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.objects[bucket] == nil {
		m.objects[bucket] = make(map[string][]byte)
	}
	m.objects[bucket][key] = data
}

// Remove deletes an object directly, bypassing faults and the call log.
func (m *MemoryStorage) Remove(bucket, key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects[bucket], key)
}

// Has reports whether an object is stored.
func (m *MemoryStorage) Has(bucket, key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[bucket][key]
	return ok
}

// Keys returns the sorted keys of a bucket.
func (m *MemoryStorage) Keys(bucket string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.objects[bucket]))
	for k := range m.objects[bucket] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Fail makes op on key return err for the next times calls (negative for
// every call). An empty key matches every key.
func (m *MemoryStorage) Fail(op Op, key string, err error, times int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.faults[faultKey(op, key)] = &fault{err: err, times: times}
}

// OnCall runs fn at the start of every op call, outside the lock.
func (m *MemoryStorage) OnCall(op Op, fn func(bucket, key string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooks[op] = fn
}

// Calls returns the "bucket/key" targets of every call to op, in call order.
func (m *MemoryStorage) Calls(op Op) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	prefix := string(op) + " "
	var calls []string
	for _, entry := range m.log {
		if len(entry) > len(prefix) && entry[:len(prefix)] == prefix {
			calls = append(calls, entry[len(prefix):])
		}
	}
	return calls
}

// Log returns every call as "op bucket/key", in call order.
func (m *MemoryStorage) Log() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.log...)
}

func faultKey(op Op, key string) string {
	return string(op) + "\x00" + key
}

// begin logs the call, runs its hook and returns any injected fault.
func (m *MemoryStorage) begin(op Op, bucket, key string) error {
	m.mu.Lock()
	m.log = append(m.log, fmt.Sprintf("%s %s/%s", op, bucket, key))
	hook := m.hooks[op]
	m.mu.Unlock()

	if hook != nil {
		hook(bucket, key)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range []string{faultKey(op, key), faultKey(op, "")} {
		f, ok := m.faults[k]
		if !ok || f.times == 0 {
			continue
		}
		if f.times > 0 {
			f.times--
		}
		return f.err
	}
	return nil
}

func (m *MemoryStorage) EnsureBucket(ctx context.Context, bucket string) error {
	if err := m.begin(OpEnsureBucket, bucket, ""); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.objects[bucket] == nil {
		m.objects[bucket] = make(map[string][]byte)
	}
	return nil
}

func (m *MemoryStorage) List(ctx context.Context, bucket string) ([]string, error) {
	if err := m.begin(OpList, bucket, ""); err != nil {
		return nil, err
	}
	return m.Keys(bucket), nil
}

func (m *MemoryStorage) Read(ctx context.Context, bucket, key string) ([]byte, error) {
	if err := m.begin(OpRead, bucket, key); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[bucket][key]
	if !ok {
		return nil, fmt.Errorf("%s/%s: %w", bucket, key, storage.ErrObjectNotFound)
	}
	return append([]byte(nil), data...), nil
}

func (m *MemoryStorage) Exists(ctx context.Context, bucket, key string) (bool, error) {
	if err := m.begin(OpExists, bucket, key); err != nil {
		return false, err
	}
	return m.Has(bucket, key), nil
}

func (m *MemoryStorage) Copy(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string) error {
	if err := m.begin(OpCopy, srcBucket, srcKey); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[srcBucket][srcKey]
	if !ok {
		return fmt.Errorf("%s/%s: %w", srcBucket, srcKey, storage.ErrObjectNotFound)
	}
	if m.objects[dstBucket] == nil {
		m.objects[dstBucket] = make(map[string][]byte)
	}
	m.objects[dstBucket][dstKey] = append([]byte(nil), data...)
	return nil
}

func (m *MemoryStorage) Delete(ctx context.Context, bucket, key string) error {
	if err := m.begin(OpDelete, bucket, key); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects[bucket], key)
	return nil
}
