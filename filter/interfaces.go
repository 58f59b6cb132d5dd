package filter

import (
	"context"
)

// Filter defines the basic interface for item filters
type Filter interface {
	// Evaluate checks if an item matches the filter criteria
	Evaluate(item ItemInfo) bool
}

// CompiledFilter represents a pre-compiled filter ready for evaluation
type CompiledFilter interface {
	Filter

	// Match is Evaluate with the evaluation error reported
	Match(item ItemInfo) (bool, error)

	// Expression returns the original filter expression
	Expression() string

	// IsThreadSafe indicates if the filter can be evaluated concurrently
	IsThreadSafe() bool
}

// Compiler compiles filter expressions into executable filters
type Compiler interface {
	// Compile parses and compiles a filter expression
	Compile(expression string) (CompiledFilter, error)
}

// Evaluator evaluates filters against items
type Evaluator interface {
	// Evaluate evaluates a filter against all items
	Evaluate(ctx context.Context, filter CompiledFilter, items []ItemInfo) ([]ItemInfo, error)
}

// BatchEvaluator evaluates multiple filters concurrently
type BatchEvaluator interface {
	// EvaluateBatch evaluates multiple filters against items concurrently
	EvaluateBatch(ctx context.Context, filters map[string]CompiledFilter, items []ItemInfo) (map[string][]ItemInfo, error)
}

// CachingCompiler provides caching for compiled filters
type CachingCompiler interface {
	Compiler

	// Clear removes all cached filters
	Clear()

	// Size returns the number of cached filters
	Size() int
}
