package processor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsIncremental(t *testing.T) {
	testCases := []struct {
		name string
		opts Options
		want bool
	}{
		{name: "nil options", opts: nil, want: false},
		{name: "key absent", opts: Options{"other": "true"}, want: false},
		{name: "lower", opts: Options{OptionIncremental: "true"}, want: true},
		{name: "upper", opts: Options{OptionIncremental: "TRUE"}, want: true},
		{name: "title", opts: Options{OptionIncremental: "True"}, want: true},
		{name: "false", opts: Options{OptionIncremental: "false"}, want: false},
		{name: "empty", opts: Options{OptionIncremental: ""}, want: false},
		{name: "yes", opts: Options{OptionIncremental: "yes"}, want: false},
		{name: "one", opts: Options{OptionIncremental: "1"}, want: false},
		{name: "padded", opts: Options{OptionIncremental: " true "}, want: false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsIncremental(tc.opts))
		})
	}
}

func TestAnnotationPatterns(t *testing.T) {
	testCases := []struct {
		name  string
		value *string
		want  []string
	}{
		{name: "absent", want: []string{}},
		{name: "empty", value: ptr(""), want: []string{}},
		{name: "two", value: ptr("a.B,c.D"), want: []string{"a.B", "c.D"}},
		{name: "untrimmed", value: ptr("a.B, c.D "), want: []string{" c.D ", "a.B"}},
		{name: "empty entries dropped", value: ptr(",a.B,,"), want: []string{"a.B"}},
		{name: "duplicates collapse", value: ptr("a.B,a.B"), want: []string{"a.B"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			opts := Options{}
			if tc.value != nil {
				opts[OptionAnnotations] = *tc.value
			}
			assert.Equal(t, tc.want, annotationPatterns(opts).Sorted())
		})
	}
}

func TestNewConfig(t *testing.T) {
	cfg := NewConfig(Options{OptionAnnotations: "a.B"}, Aggregating)
	assert.False(t, cfg.Incremental())
	assert.Empty(t, cfg.ExtraPatterns(), "patterns are ignored unless incremental")
	assert.Equal(t, Aggregating, cfg.Kind())

	cfg = NewConfig(Options{OptionIncremental: "true", OptionAnnotations: "a.B"}, Isolating)
	assert.True(t, cfg.Incremental())
	assert.Equal(t, []string{"a.B"}, cfg.ExtraPatterns().Sorted())

	// the config hands out copies
	cfg.ExtraPatterns().Add("x.Y")
	assert.Equal(t, []string{"a.B"}, cfg.ExtraPatterns().Sorted())
}

func TestIncrementalKind(t *testing.T) {
	var zero IncrementalKind
	assert.Equal(t, Isolating, zero)
	assert.Equal(t, "annoinject.processing.isolating", Isolating.Key())
	assert.Equal(t, "annoinject.processing.aggregating", Aggregating.Key())
	assert.Equal(t, "isolating", Isolating.String())
	assert.Equal(t, "aggregating", Aggregating.String())
	assert.Equal(t, "?7?", IncrementalKind(7).String())

	for _, k := range []IncrementalKind{Isolating, Aggregating} {
		got, ok := KindForKey(k.Key())
		assert.True(t, ok)
		assert.Equal(t, k, got)
	}
	_, ok := KindForKey(OptionIncremental)
	assert.False(t, ok)
}

func ptr(s string) *string {
	return &s
}
