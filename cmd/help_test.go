package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCategories() []helpCategory {
	return []helpCategory{
		{Name: "General", Entries: []helpEntry{
			{Category: "General", Name: "/help"},
			{Category: "General", Name: "/stats"},
		}},
		{Name: "Fun", Entries: []helpEntry{
			{Category: "Fun", Name: "/cat fact"},
			{Category: "Fun", Name: "/animal"},
		}},
		{Name: "Moderation", Entries: []helpEntry{
			{Category: "Moderation", Name: "/timeout set"},
		}},
	}
}

func TestHelpCategoriesPreserveOrder(t *testing.T) {
	saved := helpEntries
	defer func() { helpEntries = saved }()

	helpEntries = []helpEntry{
		{Category: "B", Name: "/one"},
		{Category: "A", Name: "/two"},
		{Category: "B", Name: "/three"},
	}

	categories := helpCategories()
	require.Len(t, categories, 2)
	assert.Equal(t, "B", categories[0].Name)
	assert.Equal(t, "A", categories[1].Name)
	assert.Len(t, categories[0].Entries, 2)
	assert.Len(t, categories[1].Entries, 1)
}

func TestFindHelpPage(t *testing.T) {
	categories := testCategories()

	page, ok := findHelpPage(categories, "animal")
	assert.True(t, ok)
	assert.Equal(t, 1, page)

	// Leading slash and case are ignored.
	page, ok = findHelpPage(categories, "/Timeout")
	assert.True(t, ok)
	assert.Equal(t, 2, page)

	_, ok = findHelpPage(categories, "nosuchcommand")
	assert.False(t, ok)

	_, ok = findHelpPage(categories, "  ")
	assert.False(t, ok)
}
