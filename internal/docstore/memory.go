package docstore

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Memory keeps documents in process. Subscriptions are delivered on a goroutine per
// subscriber, newest snapshot wins, so callbacks may write back to the store.
type Memory struct {
	mu      sync.RWMutex
	docs    map[string]Fields
	subs    map[string]map[int]*memorySub
	nextSub int
	version uint64
	now     func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		docs: make(map[string]Fields),
		subs: make(map[string]map[int]*memorySub),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the clock used for ServerTimestamp.
func (m *Memory) WithClock(now func() time.Time) *Memory {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
	return m
}

func (m *Memory) Get(ctx context.Context, path string) (Document, error) {
	_, id, err := SplitDocumentPath(path)
	if err != nil {
		return Document{}, wrapError("get", path, err)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	fields, ok := m.docs[path]
	if !ok {
		return Document{}, wrapError("get", path, ErrNotFound)
	}
	return Document{ID: id, Path: path, Fields: cloneFields(fields)}, nil
}

func (m *Memory) GetAll(ctx context.Context, collection string, q Query) ([]Document, error) {
	if err := ValidateCollectionPath(collection); err != nil {
		return nil, wrapError("getAll", collection, err)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return q.apply(m.collectionLocked(collection)), nil
}

func (m *Memory) collectionLocked(collection string) []Document {
	docs := make([]Document, 0)
	for path, fields := range m.docs {
		parent, id, err := SplitDocumentPath(path)
		if err != nil || parent != collection {
			continue
		}
		docs = append(docs, Document{ID: id, Path: path, Fields: cloneFields(fields)})
	}
	return docs
}

func (m *Memory) Set(ctx context.Context, path string, fields Fields) error {
	return wrapError("set", path, m.Commit(ctx, []Write{SetWrite(path, fields)}))
}

func (m *Memory) Create(ctx context.Context, path string, fields Fields) error {
	return wrapError("create", path, m.Commit(ctx, []Write{CreateWrite(path, fields)}))
}

func (m *Memory) Update(ctx context.Context, path string, fields Fields) error {
	return wrapError("update", path, m.Commit(ctx, []Write{UpdateWrite(path, fields)}))
}

func (m *Memory) Delete(ctx context.Context, path string) error {
	return wrapError("delete", path, m.Commit(ctx, []Write{DeleteWrite(path)}))
}

// Commit validates every write against a staged view before applying any of them.
func (m *Memory) Commit(ctx context.Context, writes []Write) error {
	if err := ctx.Err(); err != nil {
		return wrapError("commit", "", err)
	}

	m.mu.Lock()
	now := m.now()
	staged := make(map[string]Fields)
	deleted := make(map[string]bool)
	touched := make(map[string]bool)

	current := func(path string) (Fields, bool) {
		if deleted[path] {
			return nil, false
		}
		if fields, ok := staged[path]; ok {
			return fields, true
		}
		fields, ok := m.docs[path]
		return fields, ok
	}

	for _, w := range writes {
		parent, _, err := SplitDocumentPath(w.Path)
		if err != nil {
			m.mu.Unlock()
			return wrapError(w.Kind.String(), w.Path, err)
		}
		existing, exists := current(w.Path)

		switch w.Kind {
		case WriteCreate:
			if exists {
				m.mu.Unlock()
				return wrapError("create", w.Path, ErrAlreadyExists)
			}
			staged[w.Path] = resolveFields(nil, w.Fields, now)
		case WriteSet:
			staged[w.Path] = resolveFields(nil, w.Fields, now)
		case WriteUpdate:
			if !exists {
				m.mu.Unlock()
				return wrapError("update", w.Path, ErrNotFound)
			}
			staged[w.Path] = resolveFields(existing, w.Fields, now)
		case WriteDelete:
			delete(staged, w.Path)
			deleted[w.Path] = true
		default:
			m.mu.Unlock()
			return wrapError("commit", w.Path, fmt.Errorf("unknown write kind %d", w.Kind))
		}
		if w.Kind != WriteDelete {
			delete(deleted, w.Path)
		}
		touched[parent] = true
	}

	for path := range deleted {
		delete(m.docs, path)
	}
	for path, fields := range staged {
		m.docs[path] = fields
	}

	m.version++
	pending := m.snapshotsLocked(touched)
	m.mu.Unlock()

	for _, p := range pending {
		p.sub.publish(p.docs, p.version)
	}
	return nil
}

// resolveFields merges update onto base and replaces write sentinels.
func resolveFields(base Fields, update Fields, now time.Time) Fields {
	out := cloneFields(base)
	for key, value := range update {
		switch typed := value.(type) {
		case increment:
			if existing, ok := out[key].(float64); ok {
				out[key] = existing + float64(typed.by)
				continue
			}
			current, _ := toFloat(out[key])
			out[key] = int64(current) + typed.by
		case serverTimestamp:
			out[key] = now
		default:
			out[key] = normalizeValue(value)
		}
	}
	return out
}

type pendingDelivery struct {
	sub     *memorySub
	docs    []Document
	version uint64
}

func (m *Memory) snapshotsLocked(collections map[string]bool) []pendingDelivery {
	var out []pendingDelivery
	for collection := range collections {
		subs := m.subs[collection]
		if len(subs) == 0 {
			continue
		}
		docs := Query{}.apply(m.collectionLocked(collection))
		for _, sub := range subs {
			out = append(out, pendingDelivery{sub: sub, docs: docs, version: m.version})
		}
	}
	return out
}

func (m *Memory) Subscribe(ctx context.Context, collection string, fn SnapshotFunc) (Unsubscribe, error) {
	if err := ValidateCollectionPath(collection); err != nil {
		return nil, wrapError("subscribe", collection, err)
	}

	sub := &memorySub{
		fn:   fn,
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}

	m.mu.Lock()
	m.nextSub++
	id := m.nextSub
	if m.subs[collection] == nil {
		m.subs[collection] = make(map[int]*memorySub)
	}
	m.subs[collection][id] = sub
	initial := Query{}.apply(m.collectionLocked(collection))
	version := m.version
	m.mu.Unlock()

	sub.publish(initial, version)
	go sub.run(ctx)

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs[collection], id)
			if len(m.subs[collection]) == 0 {
				delete(m.subs, collection)
			}
			m.mu.Unlock()
			close(sub.done)
		})
	}, nil
}

func (m *Memory) Close(ctx context.Context) error {
	return nil
}

type memorySub struct {
	fn   SnapshotFunc
	wake chan struct{}
	done chan struct{}

	mu        sync.Mutex
	pending   []Document
	hasLatest bool
	version   uint64
}

// publish records docs as the latest snapshot unless a newer one is already queued.
func (s *memorySub) publish(docs []Document, version uint64) {
	s.mu.Lock()
	if version < s.version {
		s.mu.Unlock()
		return
	}
	s.pending = docs
	s.version = version
	s.hasLatest = true
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *memorySub) run(ctx context.Context) {
	for {
		select {
		case <-s.done:
			return
		case <-ctx.Done():
			return
		case <-s.wake:
		}

		s.mu.Lock()
		if !s.hasLatest {
			s.mu.Unlock()
			continue
		}
		docs := s.pending
		s.pending = nil
		s.hasLatest = false
		s.mu.Unlock()

		select {
		case <-s.done:
			return
		default:
		}
		s.fn(docs, nil)
	}
}
