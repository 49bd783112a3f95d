package storage

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/dmitrijs2005/keygate/internal/common"
)

// InMemoryStore keeps items in a map. Used by tests and the "memory"
// backend of the demo server. Safe for concurrent use.
type InMemoryStore struct {
	mu    sync.RWMutex
	items map[string]*Item
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{items: make(map[string]*Item)}
}

func itemKey(id, sortKey string) string {
	return id + "\x00" + sortKey
}

func copyItem(item *Item) *Item {
	c := *item
	c.Doc = append([]byte(nil), item.Doc...)
	return &c
}

func (s *InMemoryStore) Get(ctx context.Context, id, sortKey string) (*Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[itemKey(id, sortKey)]
	if !ok {
		return nil, common.ErrNotFound
	}
	return copyItem(item), nil
}

func (s *InMemoryStore) List(ctx context.Context, id, sortKeyPrefix string) ([]*Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*Item
	for _, item := range s.items {
		if item.ID == id && strings.HasPrefix(item.SortKey, sortKeyPrefix) {
			result = append(result, copyItem(item))
		}
	}

	// descending by sort key, same order the DynamoDB query uses
	sort.Slice(result, func(i, j int) bool { return result[i].SortKey > result[j].SortKey })

	return result, nil
}

func (s *InMemoryStore) Create(ctx context.Context, item *Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := itemKey(item.ID, item.SortKey)
	if _, ok := s.items[key]; ok {
		return common.ErrAlreadyExists
	}

	c := copyItem(item)
	c.Version = 1
	s.items[key] = c

	return nil
}

func (s *InMemoryStore) Update(ctx context.Context, id, sortKey string, update UpdateFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := itemKey(id, sortKey)
	current, ok := s.items[key]
	if !ok {
		return common.ErrNotFound
	}

	c := copyItem(current)
	if err := update(c); err != nil {
		return err
	}
	c.Version = current.Version + 1
	s.items[key] = c

	return nil
}

func (s *InMemoryStore) Delete(ctx context.Context, id, sortKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.items, itemKey(id, sortKey))
	return nil
}
