package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectCategories(t *testing.T) {
	tests := []struct {
		title string
		tags  []string
		want  Category
	}{
		{"Buy groceries and milk", nil, CategoryShopping},
		{"Read book chapter", []string{"learning"}, CategoryLearning},
		{"Dentist appointment", nil, CategoryHealth},
		{"Prepare slides", []string{"work"}, CategoryWork},
		{"Go to the bank", nil, CategoryErrands},
		{"Mom's birthday", nil, CategoryPersonal},
	}

	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			assert.True(t, DetectCategories(tt.title, tt.tags).Has(tt.want))
		})
	}
}

func TestDetectCategories_SubstringMatch(t *testing.T) {
	// "get" está dentro de "forget"
	set := DetectCategories("Don't forget", nil)

	assert.True(t, set.Has(CategoryShopping))
	assert.Empty(t, DetectCategories("Zzz", nil))
}

func TestDetectCategories_Multiple(t *testing.T) {
	set := DetectCategories("Buy a book for the course", nil)

	assert.Equal(t, []Category{CategoryLearning, CategoryShopping}, set.Sorted())
}

func TestParseCategory(t *testing.T) {
	c, ok := ParseCategory(" errands ")
	assert.True(t, ok)
	assert.Equal(t, CategoryErrands, c)

	_, ok = ParseCategory("gardening")
	assert.False(t, ok)
}
