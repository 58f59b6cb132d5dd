package filter

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
)

// Manager holds named filters, such as the saved searches from the config file.
type Manager struct {
	compiler  Compiler
	evaluator *ConcurrentEvaluator
	filters   map[string]CompiledFilter
	mu        sync.RWMutex
}

// ManagerOption configures a filter manager
type ManagerOption func(*Manager)

// WithCompiler sets a custom compiler
func WithCompiler(compiler Compiler) ManagerOption {
	return func(m *Manager) {
		m.compiler = compiler
	}
}

// WithEvaluator sets a custom evaluator
func WithEvaluator(evaluator *ConcurrentEvaluator) ManagerOption {
	return func(m *Manager) {
		m.evaluator = evaluator
	}
}

// NewManager creates a new filter manager
func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{
		compiler:  NewExprCompiler(WithCache(100)),
		evaluator: NewConcurrentEvaluator(),
		filters:   make(map[string]CompiledFilter),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Register compiles expression and stores it under name, replacing any previous filter.
func (m *Manager) Register(name, expression string) error {
	filter, err := m.compiler.Compile(expression)
	if err != nil {
		return fmt.Errorf("failed to compile filter '%s': %w", name, err)
	}

	m.mu.Lock()
	m.filters[name] = filter
	m.mu.Unlock()
	return nil
}

// RegisterAll compiles every filter first and registers none if any fails.
func (m *Manager) RegisterAll(filters map[string]string) error {
	compiled := make(map[string]CompiledFilter, len(filters))
	for _, name := range slices.Sorted(maps.Keys(filters)) {
		filter, err := m.compiler.Compile(filters[name])
		if err != nil {
			return fmt.Errorf("failed to compile filter '%s': %w", name, err)
		}
		compiled[name] = filter
	}

	m.mu.Lock()
	maps.Copy(m.filters, compiled)
	m.mu.Unlock()
	return nil
}

// Get returns a registered filter by name
func (m *Manager) Get(name string) (CompiledFilter, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	filter, ok := m.filters[name]
	return filter, ok
}

// Resolve returns the named filter, or compiles query as an ad-hoc expression
// when no filter has that name.
func (m *Manager) Resolve(query string) (CompiledFilter, error) {
	if filter, ok := m.Get(query); ok {
		return filter, nil
	}
	return m.compiler.Compile(query)
}

// Names returns the registered filter names in sorted order
func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Sorted(maps.Keys(m.filters))
}

// Find evaluates the filter resolved from query against items
func (m *Manager) Find(ctx context.Context, query string, items []ItemInfo) ([]ItemInfo, error) {
	filter, err := m.Resolve(query)
	if err != nil {
		return nil, err
	}
	return m.evaluator.Evaluate(ctx, filter, items)
}

// FindAll evaluates every registered filter against items
func (m *Manager) FindAll(ctx context.Context, items []ItemInfo) (map[string][]ItemInfo, error) {
	m.mu.RLock()
	filters := maps.Clone(m.filters)
	m.mu.RUnlock()

	return m.evaluator.EvaluateBatch(ctx, filters, items)
}
