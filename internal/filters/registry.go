package filters

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
)

var (
	// ErrUnknownFilter is returned when no filter is registered under a name.
	ErrUnknownFilter = errors.New("unknown filter")
	// ErrInvalidArgument is returned when a filter argument cannot be converted.
	ErrInvalidArgument = errors.New("invalid filter argument")
	// ErrInvalidName is returned by Register for names templates cannot call.
	ErrInvalidName = errors.New("invalid filter name")
)

// Func applies a filter to input. args are the positional arguments that
// follow the input in a binding.
type Func func(input any, args ...any) (string, error)

// Filter is a named filter.
type Filter struct {
	Name        string
	Description string
	Apply       Func
}

// Registry maps filter names to filters. It is safe for concurrent use.
type Registry struct {
	mu              sync.RWMutex
	filters         map[string]Filter
	highlighter     Highlighter
	defaultTruncate int
	policy          *bluemonday.Policy
}

// Option configures a Registry.
type Option func(*Registry)

// WithHighlightClass sets the span class used by highlight.
func WithHighlightClass(class string) Option {
	return func(r *Registry) { r.highlighter.Class = class }
}

// WithDefaultTruncate sets the bound truncate uses when applied without an
// argument. Zero leaves such input unchanged.
func WithDefaultTruncate(n int) Option {
	return func(r *Registry) { r.defaultTruncate = n }
}

// NewRegistry returns a registry holding the built-in filters.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		filters:     make(map[string]Filter),
		highlighter: Highlighter{Class: DefaultHighlightClass},
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.highlighter.Class == "" {
		r.highlighter.Class = DefaultHighlightClass
	}
	r.policy = highlightPolicy(r.highlighter.Class)

	r.register(Filter{
		Name:        "capitalize",
		Description: "upper-case the first letter of each word",
		Apply: func(input any, _ ...any) (string, error) {
			return Capitalize(Text(input)), nil
		},
	})
	r.register(Filter{
		Name:        "truncate",
		Description: "cut text to N characters and append " + Ellipsis,
		Apply: func(input any, args ...any) (string, error) {
			return r.applyBound(Truncate, input, args)
		},
	})
	r.register(Filter{
		Name:        "truncateWidth",
		Description: "cut text to N terminal cells, ellipsis included",
		Apply: func(input any, args ...any) (string, error) {
			return r.applyBound(TruncateWidth, input, args)
		},
	})
	r.register(Filter{
		Name:        "highlight",
		Description: "wrap case-insensitive matches of a query in a span",
		Apply: func(input any, args ...any) (string, error) {
			var query string
			if len(args) > 0 {
				query = Text(args[0])
			}
			return r.highlighter.Highlight(Text(input), query), nil
		},
	})
	return r
}

func (r *Registry) applyBound(fn func(string, int) string, input any, args []any) (string, error) {
	s := Text(input)
	n := r.defaultTruncate
	if len(args) > 0 && args[0] != nil {
		v, err := Int(args[0])
		if err != nil {
			return "", err
		}
		n = v
	} else if n == 0 {
		return s, nil
	}
	return fn(s, n), nil
}

// Register adds f, replacing any filter with the same name. The name must be
// a valid template identifier.
func (r *Registry) Register(f Filter) error {
	if !validName(f.Name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, f.Name)
	}
	if f.Apply == nil {
		return fmt.Errorf("%w: %q has no Apply func", ErrInvalidName, f.Name)
	}
	r.register(f)
	return nil
}

func (r *Registry) register(f Filter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.filters[f.Name] = f
}

// validName follows the identifier rule of text/template function names.
func validName(name string) bool {
	if name == "" {
		return false
	}
	for i, c := range name {
		switch {
		case c == '_', unicode.IsLetter(c):
		case i > 0 && unicode.IsDigit(c):
		default:
			return false
		}
	}
	return true
}

// Lookup returns the filter registered under name.
func (r *Registry) Lookup(name string) (Filter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.filters[name]
	return f, ok
}

// Apply runs the named filter on input.
func (r *Registry) Apply(name string, input any, args ...any) (string, error) {
	f, ok := r.Lookup(name)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownFilter, name)
	}
	out, err := f.Apply(input, args...)
	if err != nil {
		return "", fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}

// Filters returns the registered filters sorted by name.
func (r *Registry) Filters() []Filter {
	r.mu.RLock()
	out := make([]Filter, 0, len(r.filters))
	for _, f := range r.filters {
		out = append(out, f)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Names returns the registered filter names, sorted.
func (r *Registry) Names() []string {
	filters := r.Filters()
	names := make([]string, len(filters))
	for i, f := range filters {
		names[i] = f.Name
	}
	return names
}

// HighlightClass returns the span class used by highlight.
func (r *Registry) HighlightClass() string {
	return r.highlighter.Class
}

// Sanitize strips any markup from s except highlight spans.
func (r *Registry) Sanitize(s string) string {
	return r.policy.Sanitize(s)
}

func highlightPolicy(class string) *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowAttrs("class").
		Matching(regexp.MustCompile(`^` + regexp.QuoteMeta(class) + `$`)).
		OnElements("span")
	return p
}

// Text converts a bound value to a string. nil becomes "".
func Text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(v)
	}
}

// Int converts a numeric argument to an int. Floats must be integral and
// strings must hold a number. Values outside the int range are clamped to it.
func Int(v any) (int, error) {
	switch t := v.(type) {
	case int:
		return t, nil
	case int8:
		return int(t), nil
	case int16:
		return int(t), nil
	case int32:
		return int(t), nil
	case int64:
		return intFromInt64(t), nil
	case uint:
		return intFromUint64(uint64(t)), nil
	case uint8:
		return int(t), nil
	case uint16:
		return int(t), nil
	case uint32:
		return intFromUint64(uint64(t)), nil
	case uint64:
		return intFromUint64(t), nil
	case float32:
		return intFromFloat(float64(t))
	case float64:
		return intFromFloat(t)
	case json.Number:
		return intFromString(t.String())
	case string:
		return intFromString(t)
	}
	return 0, fmt.Errorf("%w: %v (%T) is not a number", ErrInvalidArgument, v, v)
}

func intFromInt64(n int64) int {
	switch {
	case n > math.MaxInt:
		return math.MaxInt
	case n < math.MinInt:
		return math.MinInt
	}
	return int(n)
}

func intFromUint64(n uint64) int {
	if n > math.MaxInt {
		return math.MaxInt
	}
	return int(n)
}

func intFromFloat(f float64) (int, error) {
	if math.IsInf(f, 0) || math.IsNaN(f) || f != math.Trunc(f) {
		return 0, fmt.Errorf("%w: %v is not an integer", ErrInvalidArgument, f)
	}
	switch {
	case f >= float64(math.MaxInt):
		return math.MaxInt, nil
	case f <= float64(math.MinInt):
		return math.MinInt, nil
	}
	return int(f), nil
}

func intFromString(s string) (int, error) {
	s = strings.TrimSpace(s)
	n, err := strconv.Atoi(s)
	if err == nil || errors.Is(err, strconv.ErrRange) {
		// Atoi clamps on overflow.
		return n, nil
	}
	// Exponent forms such as json.Number("1e20").
	if f, ferr := strconv.ParseFloat(s, 64); ferr == nil {
		return intFromFloat(f)
	}
	return 0, fmt.Errorf("%w: %q is not an integer", ErrInvalidArgument, s)
}
