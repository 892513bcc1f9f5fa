package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
)

const (
	AreaLocal   = "local"
	AreaSession = "session"

	securePrefix = "secure_"
)

// Options selects the storage class of an item.
type Options struct {
	Secure    bool // sealed with the adapter's Sealer, stored as secure_<key>
	Temporary bool // session area instead of the persistent area
}

var (
	Plain     = Options{}
	Secure    = Options{Secure: true}
	Temporary = Options{Temporary: true}
)

type pendingKey struct{ area, key string }

type pendingWrite struct {
	value   string
	deleted bool
	seq     uint64
}

// Adapter is the JSON-typed façade over a persistent and a temporary
// Backend. Writes go through a WriteQueue; reads run immediately and see
// queued writes. An adapter without backends is unavailable and every call
// is a no-op.
type Adapter struct {
	local   Backend
	session Backend
	sealer  *Sealer
	queue   *WriteQueue
	metrics *Metrics
	logger  *zap.Logger
	batch   int

	mu      sync.Mutex
	pending map[pendingKey]pendingWrite
	seq     uint64
}

type AdapterOption func(*Adapter)

func WithSealer(s *Sealer) AdapterOption     { return func(a *Adapter) { a.sealer = s } }
func WithLogger(l *zap.Logger) AdapterOption { return func(a *Adapter) { a.logger = l } }
func WithMetrics(m *Metrics) AdapterOption   { return func(a *Adapter) { a.metrics = m } }
func WithBatchSize(n int) AdapterOption      { return func(a *Adapter) { a.batch = n } }

func NewAdapter(local, session Backend, opts ...AdapterOption) *Adapter {
	a := &Adapter{
		local:   local,
		session: session,
		logger:  zap.NewNop(),
		batch:   DefaultBatchSize,
		pending: map[pendingKey]pendingWrite{},
	}
	for _, o := range opts {
		o(a)
	}
	if a.metrics == nil {
		a.metrics = NewMetrics(nil)
	}
	a.queue = NewWriteQueue(a.batch, a.logger)
	a.queue.depth = func(n int) { a.metrics.QueueDepth.Set(float64(n)) }
	return a
}

// NewMemory builds an adapter over two fresh in-memory backends.
func NewMemory(opts ...AdapterOption) *Adapter {
	return NewAdapter(NewMemoryBackend(), NewMemoryBackend(), opts...)
}

// Unavailable returns the adapter used where no storage exists.
func Unavailable() *Adapter { return NewAdapter(nil, nil) }

func (a *Adapter) Available() bool { return a.local != nil || a.session != nil }

func (a *Adapter) resolve(key string, o Options) (Backend, string, string) {
	b, area := a.local, AreaLocal
	if o.Temporary {
		b, area = a.session, AreaSession
	}
	if o.Secure {
		key = securePrefix + key
	}
	return b, area, key
}

// GetRaw returns the stored string (unsealed for secure items).
func (a *Adapter) GetRaw(ctx context.Context, key string, o Options) (string, bool) {
	b, area, k := a.resolve(key, o)
	if b == nil {
		return "", false
	}
	raw, ok := a.read(ctx, b, area, k)
	if !ok {
		return "", false
	}
	if o.Secure {
		if a.sealer == nil {
			return "", false
		}
		plain, err := a.sealer.Open(raw)
		if err != nil {
			a.logger.Warn("open sealed item", zap.String("key", key), zap.Error(err))
			return "", false
		}
		raw = string(plain)
	}
	return raw, true
}

func (a *Adapter) read(ctx context.Context, b Backend, area, key string) (string, bool) {
	a.mu.Lock()
	pw, ok := a.pending[pendingKey{area, key}]
	a.mu.Unlock()
	if ok {
		if pw.deleted {
			return "", false
		}
		return pw.value, true
	}
	v, err := b.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			a.logger.Error("storage read", zap.String("area", area), zap.String("key", key), zap.Error(err))
		}
		return "", false
	}
	return v, true
}

// GetItem decodes the item into dst. A *string dst receives the raw value
// when it is not valid JSON.
func (a *Adapter) GetItem(ctx context.Context, key string, dst any, o Options) bool {
	raw, ok := a.GetRaw(ctx, key, o)
	if !ok {
		return false
	}
	if err := decode(raw, dst); err != nil {
		a.logger.Warn("decode storage item", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func decode(raw string, dst any) error {
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		if s, ok := dst.(*string); ok {
			*s = raw
			return nil
		}
		return err
	}
	return nil
}

func (a *Adapter) HasItem(ctx context.Context, key string, o Options) bool {
	_, ok := a.GetRaw(ctx, key, o)
	return ok
}

// encode serializes value and seals it for secure items.
func (a *Adapter) encode(key, area string, value any, o Options) (string, error) {
	data, err := json.Marshal(value)
	if err != nil {
		a.logger.Error("serialize storage item", zap.String("key", key), zap.Error(err))
		a.metrics.Failures.WithLabelValues(area, "serialize").Inc()
		return "", fmt.Errorf("serialize %s: %w", key, err)
	}
	if !o.Secure {
		return string(data), nil
	}
	if a.sealer == nil {
		a.logger.Error("secure item without sealer", zap.String("key", key))
		a.metrics.Failures.WithLabelValues(area, "seal").Inc()
		return "", ErrNoSealer
	}
	sealed, err := a.sealer.Seal(data)
	if err != nil {
		a.logger.Error("seal storage item", zap.String("key", key), zap.Error(err))
		a.metrics.Failures.WithLabelValues(area, "seal").Inc()
		return "", fmt.Errorf("seal %s: %w", key, err)
	}
	return sealed, nil
}

// SetItem serializes value and queues the write. It reports false when the
// value cannot be serialized or storage is unavailable.
func (a *Adapter) SetItem(ctx context.Context, key string, value any, o Options) bool {
	b, area, k := a.resolve(key, o)
	if b == nil {
		return false
	}
	stored, err := a.encode(key, area, value, o)
	if err != nil {
		return false
	}
	return a.enqueue(ctx, b, area, k, stored, false, nil)
}

// SetItemSync queues the write like SetItem and waits until the backend
// accepted or rejected it. Writes queued earlier run first.
func (a *Adapter) SetItemSync(ctx context.Context, key string, value any, o Options) error {
	b, area, k := a.resolve(key, o)
	if b == nil {
		return ErrUnavailable
	}
	stored, err := a.encode(key, area, value, o)
	if err != nil {
		return err
	}
	done := make(chan error, 1)
	if !a.enqueue(ctx, b, area, k, stored, false, done) {
		return ErrClosed
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *Adapter) RemoveItem(ctx context.Context, key string, o Options) bool {
	b, area, k := a.resolve(key, o)
	if b == nil {
		return false
	}
	return a.enqueue(ctx, b, area, k, "", true, nil)
}

// enqueue queues one backend write. done, when set, receives the backend
// result.
func (a *Adapter) enqueue(ctx context.Context, b Backend, area, key, value string, del bool, done chan<- error) bool {
	pk := pendingKey{area, key}
	a.mu.Lock()
	a.seq++
	seq := a.seq
	a.pending[pk] = pendingWrite{value: value, deleted: del, seq: seq}
	a.mu.Unlock()

	settle := func() {
		a.mu.Lock()
		if cur, ok := a.pending[pk]; ok && cur.seq == seq {
			delete(a.pending, pk)
		}
		a.mu.Unlock()
	}
	wctx := context.WithoutCancel(ctx)
	op := func() {
		var err error
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("storage write panicked: %v", r)
				a.logger.Error("storage write", zap.String("area", area), zap.String("key", key), zap.Error(err))
			}
			settle()
			if done != nil {
				done <- err
			}
		}()
		opName := "set"
		if del {
			opName = "delete"
			err = b.Delete(wctx, key)
		} else {
			err = b.Set(wctx, key, value)
		}
		if err != nil {
			reason := "backend"
			if errors.Is(err, ErrQuotaExceeded) {
				reason = "quota"
			}
			a.logger.Error("storage write", zap.String("area", area), zap.String("key", key),
				zap.String("op", opName), zap.Error(err))
			a.metrics.Failures.WithLabelValues(area, reason).Inc()
			return
		}
		a.metrics.Writes.WithLabelValues(area, opName).Inc()
	}
	if !a.queue.Enqueue(op) {
		settle()
		return false
	}
	return true
}

// Keys lists stored keys of one area, secure items included with their
// secure_ prefix, queued writes applied.
func (a *Adapter) Keys(ctx context.Context, temporary bool) []string {
	b, area := a.local, AreaLocal
	if temporary {
		b, area = a.session, AreaSession
	}
	if b == nil {
		return nil
	}
	keys, err := b.Keys(ctx)
	if err != nil {
		a.logger.Error("storage keys", zap.String("area", area), zap.Error(err))
	}
	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}
	a.mu.Lock()
	for pk, pw := range a.pending {
		if pk.area != area {
			continue
		}
		if pw.deleted {
			delete(set, pk.key)
		} else {
			set[pk.key] = struct{}{}
		}
	}
	a.mu.Unlock()
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Flush waits until all queued writes have reached the backends.
func (a *Adapter) Flush(ctx context.Context) error { return a.queue.Flush(ctx) }

// Close drains the queue and rejects further writes.
func (a *Adapter) Close(ctx context.Context) error { return a.queue.Close(ctx) }
