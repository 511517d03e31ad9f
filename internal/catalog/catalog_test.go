package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"metacards/internal/models"
)

func first(int) int { return 0 }

func testDeck() []models.Card {
	return []models.Card{
		{ID: 1, Name: "Mentor", Description: "Someone who guides", Type: models.CardTypeResource, ImageURL: "1_resource.png"},
		{ID: 2, Name: "Garden", Description: "Quiet growth", Type: models.CardTypeResource, ImageURL: "2_resource.png"},
		{ID: 39, Name: "Mirror", Description: "Look closer", Type: models.CardTypeBlock, ImageURL: "39_block.png"},
	}
}

func TestNew_Validation(t *testing.T) {
	testCases := []struct {
		name  string
		cards []models.Card
		hints []models.HintQuestion
	}{
		{
			name:  "non-positive id",
			cards: []models.Card{{ID: 0, Type: models.CardTypeBlock}},
		},
		{
			name:  "missing type",
			cards: []models.Card{{ID: 1}},
		},
		{
			name: "duplicate id",
			cards: []models.Card{
				{ID: 1, Type: models.CardTypeBlock},
				{ID: 1, Type: models.CardTypeResource},
			},
		},
		{
			name:  "empty question",
			hints: []models.HintQuestion{{Type: models.CardTypeBlock, Question: "  "}},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.cards, tc.hints)
			assert.Error(t, err)
		})
	}
}

func TestCatalog_Lookup(t *testing.T) {
	c, err := New(testDeck(), nil)
	require.NoError(t, err)

	assert.Equal(t, 3, c.Len())

	card, err := c.Card(39)
	require.NoError(t, err)
	assert.Equal(t, "Mirror", card.Name)

	_, err = c.Card(100)
	assert.ErrorIs(t, err, ErrCardNotFound)

	resources := c.CardsOfType(models.CardTypeResource)
	assert.Len(t, resources, 2)

	// Returned slices are copies
	resources[0].Name = "changed"
	again, _ := c.Card(1)
	assert.Equal(t, "Mentor", again.Name)
}

func TestCatalog_Draw(t *testing.T) {
	c, err := New(testDeck(), nil)
	require.NoError(t, err)

	block, resource, err := c.Draw(func(n int) int { return n - 1 })
	require.NoError(t, err)
	assert.Equal(t, models.CardTypeBlock, block.Type)
	assert.Equal(t, models.CardTypeResource, resource.Type)
	assert.Equal(t, 39, block.ID)
	assert.Equal(t, 2, resource.ID)
}

func TestCatalog_DrawEmptyPartition(t *testing.T) {
	c, err := New([]models.Card{{ID: 5, Name: "Wall", Type: models.CardTypeBlock}}, nil)
	require.NoError(t, err)

	calls := 0
	_, _, err = c.Draw(func(n int) int { calls++; return 0 })
	assert.ErrorIs(t, err, ErrNoCards)
	assert.Zero(t, calls)
}

func TestCatalog_RandomHint(t *testing.T) {
	c, err := New(testDeck(), []models.HintQuestion{
		{Type: models.CardTypeBlock, Question: "What do you see?"},
	})
	require.NoError(t, err)

	hint, ok := c.RandomHint(models.CardTypeBlock, first)
	require.True(t, ok)
	assert.Equal(t, "What do you see?", hint.Question)

	_, ok = c.RandomHint(models.CardTypeResource, first)
	assert.False(t, ok)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	cardsPath := filepath.Join(dir, "cards.json")
	hintsPath := filepath.Join(dir, "help.yaml")

	require.NoError(t, os.WriteFile(cardsPath, []byte(`[
  {"id": 1, "name": "Mentor", "description": "d1", "type": "resource", "image_url": "1.png"},
  {"id": 39, "name": "Mirror", "description": "d39", "type": "block", "image_url": "39.png"}
]`), 0o644))
	require.NoError(t, os.WriteFile(hintsPath, []byte("- type: block\n  question: What do you see?\n"), 0o644))

	c, err := Load(cardsPath, hintsPath)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())
	assert.Len(t, c.HintsOfType(models.CardTypeBlock), 1)
}

func TestLoad_Failures(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "help.json")
	require.NoError(t, os.WriteFile(good, []byte(`[]`), 0o644))

	bad := filepath.Join(dir, "cards.json")
	require.NoError(t, os.WriteFile(bad, []byte(`[{"id": 1,`), 0o644))

	_, err := Load(filepath.Join(dir, "missing.json"), good)
	assert.Error(t, err)

	_, err = Load(bad, good)
	assert.Error(t, err)
}
