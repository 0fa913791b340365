package metadata

import (
	"sort"
	"sync"

	"github.com/mohitkumar/flowkeeper/model"
	"github.com/mohitkumar/flowkeeper/persistence"
)

type MetadataStorage interface {
	SaveFlowDefinition(fl model.Flow) error
	DeleteFlowDefinition(id string) error
	// GetFlowDefinition returns persistence.NotFoundError for unknown ids.
	GetFlowDefinition(id string) (*model.Flow, error)
	ListFlowDefinitions() ([]string, error)
}

var _ MetadataStorage = new(InMemoryStorage)

type InMemoryStorage struct {
	mu    sync.RWMutex
	flows map[string]model.Flow
}

func NewInMemoryStorage() *InMemoryStorage {
	return &InMemoryStorage{flows: make(map[string]model.Flow)}
}

func (s *InMemoryStorage) SaveFlowDefinition(fl model.Flow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flows[fl.Id] = fl
	return nil
}

func (s *InMemoryStorage) DeleteFlowDefinition(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.flows, id)
	return nil
}

func (s *InMemoryStorage) GetFlowDefinition(id string) (*model.Flow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fl, ok := s.flows[id]
	if !ok {
		return nil, persistence.NotFoundError{Kind: "flow", Id: id}
	}
	return &fl, nil
}

func (s *InMemoryStorage) ListFlowDefinitions() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.flows))
	for id := range s.flows {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
