// Package memory is an in-process backend used by tests and the default
// no-config path: records are seeded programmatically and rendered results
// are kept for inspection.
package memory

import (
	"context"
	"fmt"
	"sync"

	"drawsum/internal/core"
)

type Store struct {
	mu      sync.Mutex
	records map[string][]core.TaskRecord
	metas   map[string]core.ParseMeta
	results map[string]*core.Result
}

func New() *Store {
	return &Store{
		records: make(map[string][]core.TaskRecord),
		metas:   make(map[string]core.ParseMeta),
		results: make(map[string]*core.Result),
	}
}

// Seed registers records under a reference so Parse can return them.
func (s *Store) Seed(ref string, records []core.TaskRecord, meta core.ParseMeta) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[ref] = append([]core.TaskRecord(nil), records...)
	s.metas[ref] = meta
}

// Parse returns the seeded records for ref.
func (s *Store) Parse(_ context.Context, ref string) ([]core.TaskRecord, core.ParseMeta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	records, ok := s.records[ref]
	if !ok {
		return nil, core.ParseMeta{}, fmt.Errorf("no seeded records for %q", ref)
	}
	return append([]core.TaskRecord(nil), records...), s.metas[ref], nil
}

// Render stores the result and returns a synthetic reference.
func (s *Store) Render(_ context.Context, name string, res *core.Result) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[name] = res
	return "mem:" + name, nil
}

// Result returns the last rendered result for name, or nil.
func (s *Store) Result(name string) *core.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.results[name]
}
