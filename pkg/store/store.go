// Package store provides in-memory storage for calculation history.
package store

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// Operation names the core operation a calculation ran.
type Operation string

const (
	OperationParse     Operation = "parse"
	OperationEvaluate  Operation = "evaluate"
	OperationIntegrate Operation = "integrate"
)

// Valid reports whether o is a known operation.
func (o Operation) Valid() bool {
	switch o {
	case OperationParse, OperationEvaluate, OperationIntegrate:
		return true
	}
	return false
}

// Calculation is one recorded request and its outcome.
type Calculation struct {
	ID         string         `json:"id"`
	Operation  Operation      `json:"operation"`
	Input      string         `json:"input"`
	Normalized string         `json:"normalized"`
	Result     string         `json:"result,omitempty"`
	Value      *float64       `json:"value,omitempty"`
	Tree       map[string]any `json:"tree,omitempty"`
	Dump       string         `json:"-"`
	Error      map[string]any `json:"error,omitempty"`
	CreateTime time.Time      `json:"createTime"`

	seq int64
}

// Failed reports whether the calculation ended in an error.
func (c *Calculation) Failed() bool {
	return c.Error != nil
}

// Store is a thread-safe in-memory storage for calculations.
type Store struct {
	mu           sync.RWMutex
	calculations map[string]*Calculation

	// Counter for generating unique IDs
	counter int64
}

// New creates a new empty store.
func New() *Store {
	return &Store{
		calculations: make(map[string]*Calculation),
	}
}

// Record assigns an ID and creation time to c and stores it.
func (s *Store) Record(c *Calculation) *Calculation {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.counter++
	c.seq = s.counter
	c.ID = fmt.Sprintf("calc-%06d", s.counter)
	if c.CreateTime.IsZero() {
		c.CreateTime = time.Now()
	}
	s.calculations[c.ID] = c
	return c
}

// Get retrieves a calculation by ID.
func (s *Store) Get(id string) (*Calculation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.calculations[id]
	if !ok {
		return nil, fmt.Errorf("calculation '%s' not found", id)
	}
	return c, nil
}

// List returns calculations newest first. An empty op matches every
// operation; a limit of zero or less returns everything.
func (s *Store) List(op Operation, limit int) []*Calculation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*Calculation, 0, len(s.calculations))
	for _, c := range s.calculations {
		if op != "" && c.Operation != op {
			continue
		}
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].seq > result[j].seq })

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result
}

// Delete removes a calculation by ID.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.calculations[id]; !ok {
		return fmt.Errorf("calculation '%s' not found", id)
	}
	delete(s.calculations, id)
	return nil
}

// Len returns the number of stored calculations.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.calculations)
}
