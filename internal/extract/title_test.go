package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseTitle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		title     string
		wantName  string
		wantGrade string
	}{
		{"Le Toit, 6A", "Le Toit", "6A"},
		{"3. Stina, 6B ⭐️⭐️ (📷)", "3. Stina", "6B"},
		{"Name,6A", "Name,6A", ""},
		{"Spaced\n name,\n  7A+ extra", "Spaced name", "7A+"},
		{"No grade", "No grade", ""},
		{"Two, parts, here", "Two", "parts,"},
		{"", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			t.Parallel()
			name, grade := ParseTitle(tt.title)
			assert.Equal(t, tt.wantName, name)
			assert.Equal(t, tt.wantGrade, grade)
		})
	}
}

func TestListName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Åsa Berg", ListName("Åsa Berg (12)"))
	assert.Equal(t, "Åsa Berg", ListName("\n  Åsa Berg\n  (12)\n"))
	assert.Equal(t, "Name (old)", ListName("Name (old)"))
}

func TestAfterLabel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "57.70, 11.97", AfterLabel("Coordinates: 57.70, 11.97"))
	assert.Equal(t, "", AfterLabel("no label"))
	assert.Equal(t, "b: c", AfterLabel("a: b: c"))
}

func TestFirstLine(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "North", FirstLine("\n\n  North  \n 4"))
	assert.Equal(t, "", FirstLine(" \n "))
}
