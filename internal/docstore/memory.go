package docstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is an in-process Store with local change fanout. It backs tests and
// single-node development runs where Postgres/Redis are not available.
type Memory struct {
	mu          sync.Mutex
	collections map[string]map[string]Document
	watchers    map[string][]chan struct{}
	now         func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		collections: map[string]map[string]Document{},
		watchers:    map[string][]chan struct{}{},
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// SetClock overrides the time source. Tests use this to make timestamps
// deterministic.
func (s *Memory) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Memory) Insert(ctx context.Context, collection, ownerID string, data map[string]interface{}) (Document, error) {
	s.mu.Lock()
	docs := s.collections[collection]
	if docs == nil {
		docs = map[string]Document{}
		s.collections[collection] = docs
	}
	ts := s.now()
	doc := Document{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Data:      copyData(data),
		CreatedAt: ts,
		UpdatedAt: ts,
	}
	docs[doc.ID] = doc
	s.mu.Unlock()
	s.broadcast(collection, ownerID)
	return copyDocument(doc), nil
}

func (s *Memory) Update(ctx context.Context, collection, id string, patch map[string]interface{}) (Document, error) {
	s.mu.Lock()
	doc, ok := s.collections[collection][id]
	if !ok {
		s.mu.Unlock()
		return Document{}, ErrNotFound
	}
	merged := copyData(doc.Data)
	for k, v := range patch {
		merged[k] = v
	}
	doc.Data = merged
	doc.UpdatedAt = s.now()
	s.collections[collection][id] = doc
	s.mu.Unlock()
	s.broadcast(collection, doc.OwnerID)
	return copyDocument(doc), nil
}

func (s *Memory) Delete(ctx context.Context, collection, id string) error {
	s.mu.Lock()
	doc, ok := s.collections[collection][id]
	if !ok {
		s.mu.Unlock()
		return ErrNotFound
	}
	delete(s.collections[collection], id)
	s.mu.Unlock()
	s.broadcast(collection, doc.OwnerID)
	return nil
}

func (s *Memory) Get(ctx context.Context, collection, id string) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.collections[collection][id]
	if !ok {
		return Document{}, ErrNotFound
	}
	return copyDocument(doc), nil
}

func (s *Memory) Find(ctx context.Context, q Query) ([]Document, error) {
	s.mu.Lock()
	matched := make([]Document, 0)
	for _, doc := range s.collections[q.Collection] {
		if q.OwnerID != "" && doc.OwnerID != q.OwnerID {
			continue
		}
		if !matchesFilters(doc, q.Filters) {
			continue
		}
		matched = append(matched, copyDocument(doc))
	}
	s.mu.Unlock()
	if q.OrderBy.Field != "" {
		sortDocuments(matched, q.OrderBy)
	}
	return matched, nil
}

func (s *Memory) Watch(ctx context.Context, collection, ownerID string) (<-chan struct{}, error) {
	ch := make(chan struct{}, 1)
	ch <- struct{}{}
	key := watchChannel(collection, ownerID)
	s.mu.Lock()
	s.watchers[key] = append(s.watchers[key], ch)
	s.mu.Unlock()
	go func() {
		<-ctx.Done()
		s.mu.Lock()
		listeners := s.watchers[key]
		for i, w := range listeners {
			if w == ch {
				s.watchers[key] = append(listeners[:i], listeners[i+1:]...)
				break
			}
		}
		close(ch)
		s.mu.Unlock()
	}()
	return ch, nil
}

// broadcast signals every watcher of the owner's slice. Sends happen under the
// lock so a watcher can never be closed mid-send.
func (s *Memory) broadcast(collection, ownerID string) {
	key := watchChannel(collection, ownerID)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.watchers[key] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func matchesFilters(doc Document, filters []Filter) bool {
	for _, f := range filters {
		value, _ := doc.Data[f.Field].(string)
		if value != f.Value {
			return false
		}
	}
	return true
}

func sortDocuments(docs []Document, order Order) {
	less := func(a, b Document) bool {
		switch order.Field {
		case "createdAt":
			return a.CreatedAt.Before(b.CreatedAt)
		case "updatedAt":
			return a.UpdatedAt.Before(b.UpdatedAt)
		default:
			av, _ := a.Data[order.Field].(string)
			bv, _ := b.Data[order.Field].(string)
			return av < bv
		}
	}
	sort.SliceStable(docs, func(i, j int) bool {
		if order.Descending {
			return less(docs[j], docs[i])
		}
		return less(docs[i], docs[j])
	})
}

func copyData(data map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(data))
	for k, v := range data {
		out[k] = v
	}
	return out
}

func copyDocument(doc Document) Document {
	doc.Data = copyData(doc.Data)
	return doc
}
