package filter

import (
	"maps"
	"strings"
	"sync"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// exprFilter implements CompiledFilter using the expr language
type exprFilter struct {
	expression string
	program    *vm.Program
}

// ExprCompilerOption configures an expr compiler
type ExprCompilerOption func(*exprCompiler)

// WithCache enables filter caching with the specified size
func WithCache(size int) ExprCompilerOption {
	return func(c *exprCompiler) {
		if size > 0 {
			c.cache = newLRUCache(size)
		}
	}
}

// WithCustomFunctions adds custom helper functions
func WithCustomFunctions(funcs map[string]any) ExprCompilerOption {
	return func(c *exprCompiler) {
		maps.Copy(c.helperFuncs, funcs)
	}
}

// NewExprCompiler creates a new expr-based filter compiler
func NewExprCompiler(opts ...ExprCompilerOption) CachingCompiler {
	c := &exprCompiler{
		helperFuncs: createHelperFunctions(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// exprCompiler implements Compiler for expr-based filters
type exprCompiler struct {
	helperFuncs map[string]any
	cache       *lruCache
}

// Compile compiles an expression into an executable filter
func (c *exprCompiler) Compile(expression string) (CompiledFilter, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return nil, &CompilationError{
			Expression: expression,
			Reason:     "empty expression",
			Position:   -1,
		}
	}

	if c.cache != nil {
		if cached, ok := c.cache.Get(expression); ok {
			return cached, nil
		}
	}

	// Item fields are only known at run time
	program, err := expr.Compile(expression,
		expr.Env(c.helperFuncs),
		expr.AllowUndefinedVariables(),
		expr.AsBool(),
	)
	if err != nil {
		return nil, &CompilationError{
			Expression: expression,
			Reason:     "failed to compile expression",
			Position:   -1,
			Err:        err,
		}
	}

	filter := &exprFilter{
		expression: expression,
		program:    program,
	}

	if c.cache != nil {
		c.cache.Put(expression, filter)
	}

	return filter, nil
}

// Clear removes all cached filters
func (c *exprCompiler) Clear() {
	if c.cache != nil {
		c.cache.Clear()
	}
}

// Size returns the number of cached filters
func (c *exprCompiler) Size() int {
	if c.cache != nil {
		return c.cache.Size()
	}
	return 0
}

var envPool = sync.Pool{
	New: func() any {
		return make(map[string]any, 48)
	},
}

// Evaluate reports whether the item matches. Items that fail evaluation do not match.
func (f *exprFilter) Evaluate(item ItemInfo) bool {
	ok, err := f.Match(item)
	return err == nil && ok
}

// Match runs the program against item
func (f *exprFilter) Match(item ItemInfo) (bool, error) {
	env := envPool.Get().(map[string]any)
	defer func() {
		clear(env)
		envPool.Put(env)
	}()
	fillRuntimeEnvironment(env, item)

	result, err := expr.Run(f.program, env)
	if err != nil {
		return false, &EvaluationError{
			Expression: f.expression,
			ItemURL:    item.URL,
			Reason:     "failed to run expression",
			Err:        err,
		}
	}

	// AsBool guarantees the type
	return result.(bool), nil
}

// Expression returns the original expression
func (f *exprFilter) Expression() string {
	return f.expression
}

// IsThreadSafe indicates that expr filters are thread-safe
func (f *exprFilter) IsThreadSafe() bool {
	return true
}

// createHelperFunctions creates the static helper functions used during compilation
func createHelperFunctions() map[string]any {
	funcs := make(map[string]any, 32)
	addHelperFunctions(funcs)
	return funcs
}

// addHelperFunctions adds all helper functions to the provided map
func addHelperFunctions(env map[string]any) {
	// Date helpers
	env["daysSince"] = func(t time.Time) int {
		return int(time.Since(t).Hours() / 24)
	}
	env["daysAgo"] = func(days int) time.Time {
		return time.Now().AddDate(0, 0, -days)
	}
	env["monthsAgo"] = func(months int) time.Time {
		return time.Now().AddDate(0, -months, 0)
	}
	env["yearsAgo"] = func(years int) time.Time {
		return time.Now().AddDate(-years, 0, 0)
	}
	env["parseDate"] = func(dateStr string) time.Time {
		t, _ := time.Parse("2006-01-02", dateStr)
		return t
	}
	// String helpers
	env["containsFold"] = func(str, substr string) bool {
		return strings.Contains(strings.ToLower(str), strings.ToLower(substr))
	}
	env["hasPrefix"] = func(str, prefix string) bool {
		return strings.HasPrefix(strings.ToLower(str), strings.ToLower(prefix))
	}
	env["hasSuffix"] = func(str, suffix string) bool {
		return strings.HasSuffix(strings.ToLower(str), strings.ToLower(suffix))
	}
	env["lower"] = strings.ToLower
	env["upper"] = strings.ToUpper
	// Current time
	env["now"] = time.Now
}

// fillRuntimeEnvironment populates env with helpers and the item's fields
func fillRuntimeEnvironment(env map[string]any, item ItemInfo) {
	addHelperFunctions(env)

	env["Item"] = item

	env["isAlbum"] = typeCheck(item.Type, "album")
	env["isPhoto"] = typeCheck(item.Type, "photo")
	env["isMovie"] = typeCheck(item.Type, "movie")
	env["hasExtension"] = func(exts ...string) bool {
		for _, ext := range exts {
			if strings.EqualFold(strings.TrimPrefix(ext, "."), item.Extension) {
				return true
			}
		}
		return false
	}
	env["largerThan"] = func(mb any) bool {
		return float64(item.FileSize) > toFloat(mb)*1024*1024
	}

	// Direct item properties for convenience
	env["URL"] = item.URL
	env["Name"] = item.Name
	env["Title"] = item.Title
	env["Description"] = item.Description
	env["Type"] = item.Type
	env["MimeType"] = item.MimeType
	env["Extension"] = item.Extension
	env["Created"] = item.Created
	env["Updated"] = item.Updated
	env["CanEdit"] = item.CanEdit
	env["Width"] = item.Width
	env["Height"] = item.Height
	env["FileSize"] = item.FileSize
	env["Views"] = item.Views
	env["Depth"] = item.Depth
	env["Path"] = item.Path
}

// toFloat accepts the numeric kinds expr produces for literals and fields
func toFloat(v any) float64 {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case float64:
		return n
	default:
		return 0
	}
}

func typeCheck(actual, want string) func() bool {
	return func() bool {
		return actual == want
	}
}

var defaultCompiler = NewExprCompiler(WithCache(100))

// CompileFilter compiles expression with the package's shared caching compiler.
func CompileFilter(expression string) (CompiledFilter, error) {
	return defaultCompiler.Compile(expression)
}
