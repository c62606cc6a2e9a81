package sanitize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"Åsa Berg", "asa-berg"},
		{"Le Toit", "le-toit"},
		{"Kärra", "karra"},
		{"Österås", "osteras"},
		{"Müller's Wall", "muller-s-wall"},
		{"Straße", "strase"},
		{"Gaustadt Æbleø", "gaustadt-aebleo"},
		{"  --Trim me--  ", "trim-me"},
		{"3. Stina, 6B", "3-stina-6b"},
		{"a///b", "a-b"},
		{"UPPER case", "upper-case"},
		{"Crème brûlée", "creme-brulee"},
		{"already-clean", "already-clean"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, err := Name(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNameAccentVariantsDoNotLoseLetters(t *testing.T) {
	t.Parallel()

	a, err := Name("Sjö")
	require.NoError(t, err)
	b, err := Name("Sjo")
	require.NoError(t, err)
	assert.Equal(t, "sjo", a)
	assert.Equal(t, a, b, "accent stripping maps to the base letter, not to a separator")
}

func TestNameEmpty(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"", "   ", "!!!", "★★", "--"} {
		_, err := Name(in)
		assert.ErrorIs(t, err, ErrEmptyName, "input %q", in)
	}
}

func TestNameIdempotentAndDeterministic(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"Åsa Berg", "Le Toit", "Straße", "x", "A  B  C", "ÆØÅ æøå", "1-2-3", "Ölmstad (12)", "_under_score_",
	}
	for _, in := range inputs {
		first, err := Name(in)
		require.NoError(t, err)
		second, err := Name(first)
		require.NoError(t, err)
		assert.Equal(t, first, second, "Name(Name(%q))", in)

		again, err := Name(in)
		require.NoError(t, err)
		assert.Equal(t, first, again, "Name(%q) must be deterministic", in)
	}
}
