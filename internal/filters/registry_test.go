package filters

import (
	"bytes"
	"encoding/json"
	"html/template"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Names(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, []string{"capitalize", "highlight", "truncate", "truncateWidth"}, r.Names())
}

func TestRegistry_Apply(t *testing.T) {
	r := NewRegistry()
	tests := []struct {
		name   string
		filter string
		input  any
		args   []any
		want   string
	}{
		{"capitalize", "capitalize", "hello world", nil, "Hello World"},
		{"capitalize nil", "capitalize", nil, nil, ""},
		{"truncate int", "truncate", "abcdefgh", []any{5}, "abcde..."},
		{"truncate json float", "truncate", "abcdefgh", []any{float64(5)}, "abcde..."},
		{"truncate json number", "truncate", "abcdefgh", []any{json.Number("5")}, "abcde..."},
		{"truncate numeric string", "truncate", "abcdefgh", []any{" 5 "}, "abcde..."},
		{"truncate without bound", "truncate", "abcdefgh", nil, "abcdefgh"},
		{"truncate short", "truncate", "abc", []any{5}, "abc"},
		{"truncate formats numbers", "truncate", 123456, []any{3}, "123..."},
		{"highlight", "highlight", "Hello World", []any{"wor"}, `Hello <span class="ui-highlight">Wor</span>ld`},
		{"highlight nil query", "highlight", "abc", []any{nil}, "abc"},
		{"highlight without query", "highlight", "abc", nil, "abc"},
		{"truncateWidth", "truncateWidth", "hello world", []any{8}, "hello..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Apply(tt.filter, tt.input, tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRegistry_Apply_errors(t *testing.T) {
	r := NewRegistry()

	_, err := r.Apply("nope", "x")
	assert.ErrorIs(t, err, ErrUnknownFilter)

	_, err = r.Apply("truncate", "abc", "five")
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = r.Apply("truncate", "abc", 2.5)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = r.Apply("truncate", "abc", []int{1})
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestRegistry_options(t *testing.T) {
	r := NewRegistry(WithHighlightClass("hit"), WithDefaultTruncate(3))
	assert.Equal(t, "hit", r.HighlightClass())

	got, err := r.Apply("truncate", "abcdef")
	require.NoError(t, err)
	assert.Equal(t, "abc...", got)

	got, err = r.Apply("highlight", "abc", "b")
	require.NoError(t, err)
	assert.Equal(t, `a<span class="hit">b</span>c`, got)

	assert.Equal(t, DefaultHighlightClass, NewRegistry(WithHighlightClass("")).HighlightClass())
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(Filter{
		Name: "upper",
		Apply: func(input any, _ ...any) (string, error) {
			return strings.ToUpper(Text(input)), nil
		},
	}))
	got, err := r.Apply("upper", "abc")
	require.NoError(t, err)
	assert.Equal(t, "ABC", got)
	assert.Contains(t, r.Names(), "upper")

	require.NoError(t, r.Register(Filter{
		Name: "capitalize",
		Apply: func(input any, _ ...any) (string, error) {
			return "replaced", nil
		},
	}))
	got, err = r.Apply("capitalize", "abc")
	require.NoError(t, err)
	assert.Equal(t, "replaced", got)
}

func TestRegistry_Register_rejectsInvalidNames(t *testing.T) {
	r := NewRegistry()
	noop := func(input any, _ ...any) (string, error) { return Text(input), nil }
	for _, name := range []string{"", "my-filter", "9lives", "has space", "dot.name"} {
		err := r.Register(Filter{Name: name, Apply: noop})
		assert.ErrorIs(t, err, ErrInvalidName, "name %q", name)
	}
	assert.ErrorIs(t, r.Register(Filter{Name: "nofunc"}), ErrInvalidName)
	require.NoError(t, r.Register(Filter{Name: "_snake_case2", Apply: noop}))

	assert.NotPanics(t, func() {
		template.New("t").Funcs(r.FuncMap())
	})
	assert.NotContains(t, r.Names(), "my-filter")
}

func TestInt(t *testing.T) {
	for _, v := range []any{7, int8(7), int32(7), int64(7), uint(7), uint16(7), float32(7), 7.0, "7", json.Number("7")} {
		n, err := Int(v)
		require.NoError(t, err, "%T", v)
		assert.Equal(t, 7, n, "%T", v)
	}
	_, err := Int(true)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestInt_clampsOutOfRange(t *testing.T) {
	tests := []struct {
		name string
		v    any
		want int
	}{
		{"large float", 1e20, math.MaxInt},
		{"large negative float", -1e20, math.MinInt},
		{"max uint64", uint64(math.MaxUint64), math.MaxInt},
		{"max int64", int64(math.MaxInt64), math.MaxInt},
		{"exponent json number", json.Number("1e20"), math.MaxInt},
		{"overflowing string", "99999999999999999999999", math.MaxInt},
		{"underflowing string", "-99999999999999999999999", math.MinInt},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := Int(tt.v)
			require.NoError(t, err)
			assert.Equal(t, tt.want, n)
		})
	}

	for _, v := range []any{math.NaN(), math.Inf(1), math.Inf(-1), "NaN", "Inf", "1.5e0"} {
		_, err := Int(v)
		assert.ErrorIs(t, err, ErrInvalidArgument, "%v", v)
	}
}

func TestRegistry_Apply_hugeBoundLeavesInputUnchanged(t *testing.T) {
	r := NewRegistry()
	for _, bound := range []any{1e20, uint64(math.MaxUint64), json.Number("1e20")} {
		got, err := r.Apply("truncate", "abc", bound)
		require.NoError(t, err)
		assert.Equal(t, "abc", got, "bound %v", bound)
	}

	var data map[string]any
	require.NoError(t, json.Unmarshal([]byte(`{"S":"abc","N":1e20}`), &data))
	assert.Equal(t, "abc", render(t, r, `{{ .S | truncate .N }}`, data))
}

func TestText(t *testing.T) {
	assert.Equal(t, "", Text(nil))
	assert.Equal(t, "abc", Text("abc"))
	assert.Equal(t, "abc", Text([]byte("abc")))
	assert.Equal(t, "42", Text(42))
	assert.Equal(t, "true", Text(true))
}

func render(t *testing.T, r *Registry, tmpl string, data any) string {
	t.Helper()
	tp, err := template.New("t").Funcs(r.FuncMap()).Parse(tmpl)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, tp.Execute(&buf, data))
	return buf.String()
}

func TestFuncMap(t *testing.T) {
	r := NewRegistry()
	data := map[string]any{
		"Name":  "jane DOE",
		"Key":   "ssh-rsa AAAAB3NzaC1yc2E",
		"Label": "Tom & Jerry",
		"Query": "jerry",
	}

	assert.Equal(t, "Jane Doe", render(t, r, `{{ .Name | capitalize }}`, data))
	assert.Equal(t, "Jane Doe", render(t, r, `{{ capitalize .Name }}`, data))
	assert.Equal(t, "ssh-rsa...", render(t, r, `{{ .Key | truncate 7 }}`, data))
	assert.Equal(t, "Ssh-Rsa...", render(t, r, `{{ .Key | truncate 7 | capitalize }}`, data))
	assert.Equal(t,
		`Tom &amp; <span class="ui-highlight">Jerry</span>`,
		render(t, r, `{{ .Label | highlight $.Query }}`, data))
}

func TestFuncMap_escapesPlainFilters(t *testing.T) {
	r := NewRegistry()
	out := render(t, r, `{{ capitalize .X }}`, map[string]any{"X": "<b>bold</b>"})
	assert.Equal(t, "&lt;B&gt;bold&lt;/b&gt;", out)
}

func TestFuncMap_highlightSanitizes(t *testing.T) {
	r := NewRegistry()
	out := render(t, r, `{{ .X | highlight "hi" }}`, map[string]any{
		"X": `<script>alert(1)</script><span class="evil" onclick="x()">hi</span>`,
	})
	assert.NotContains(t, out, "<script")
	assert.NotContains(t, out, "onclick")
	assert.NotContains(t, out, "evil")
	assert.Contains(t, out, `<span class="ui-highlight">hi</span>`)
}

func TestFuncMap_missingInput(t *testing.T) {
	r := NewRegistry()
	tp, err := template.New("t").Funcs(r.FuncMap()).Parse(`{{ capitalize }}`)
	require.NoError(t, err)
	var buf bytes.Buffer
	assert.Error(t, tp.Execute(&buf, nil))
}
