package deck

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"metacards/internal/models"
)

func touch(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(name), 0o644))
	}
}

func TestNameRules(t *testing.T) {
	tests := []struct {
		name string
		rule Rule
		in   string
		want string
	}{
		{"strip braille blank", StripInvisible, "1_Наставник\u2800.PNG", "1_Наставник.PNG"},
		{"strip zero width", StripInvisible, "a\u200bb.png", "ab.png"},
		{"compose to NFC", StripInvisible, "\u0435\u0308", "\u0451"},
		{"fix extension", FixExtension, "1_mentor.PNG", "1_mentor.png"},
		{"extension already lower", FixExtension, "1_mentor.png", "1_mentor.png"},
		{"transliterate keeps case", Transliterate, "Наставник Ресурс", "Nastavnik_Resurs"},
		{"transliterate digraphs", Transliterate, "ЖУК щука", "ZHUK_shuka"},
		{"clean", Clean, "1_НАСТАВНИК\u2800 (копия).PNG", "1_NASTAVNIK_kopiya.PNG"},
		{"slug", Slug, "  Внутренний  критик! ", "vnutrennij_kritik"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.rule(tt.in))
		})
	}
}

func TestIsClean(t *testing.T) {
	assert.True(t, IsClean("39_block.png"))
	assert.False(t, IsClean("39_block.PNG"))
	assert.False(t, IsClean("39 block.png"))
	assert.False(t, IsClean("39_Зеркало.png"))
	assert.False(t, IsClean(""))
}

func TestStandardizeAndRenumberRules(t *testing.T) {
	cards := []models.Card{
		{ID: 1, Name: "Наставник", Type: models.CardTypeResource},
		{ID: 40, Name: "Внутренний критик", Type: models.CardTypeBlock},
	}

	standardize := StandardizeRule(cards)
	assert.Equal(t, "40_vnutrennij_kritik_block.png", standardize("40_ВНУТРЕННИЙ.PNG"))
	assert.Equal(t, "1_nastavnik_resource.png", standardize("1_x.png"))
	assert.Equal(t, "77_unknown.png", standardize("77_unknown.png"))
	assert.Equal(t, "cover.png", standardize("cover.png"))

	renumber := RenumberRule(cards)
	assert.Equal(t, "1_resource.png", renumber("1_nastavnik_resource.png"))
	assert.Equal(t, "77_block.png", renumber("77_x_block.png"))
	assert.Equal(t, "78_resource.png", renumber("78_Y_RESOURCE.png"))
	assert.Equal(t, "5.png", renumber("5.png"))
	assert.Equal(t, "cover.png", renumber("cover.png"))
}

func TestPlanAndApply(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "1_НАСТАВНИК.PNG", "39_Зеркало.png", "2_clean.png", "notes.txt")

	plan, err := Plan(dir, Clean)
	require.NoError(t, err)

	want := []Rename{
		{From: "1_НАСТАВНИК.PNG", To: "1_NASTAVNIK.PNG"},
		{From: "39_Зеркало.png", To: "39_Zerkalo.png"},
	}
	if diff := cmp.Diff(want, plan); diff != "" {
		t.Errorf("Plan() mismatch (-want +got):\n%s", diff)
	}

	require.NoError(t, Apply(dir, plan))
	names, err := Images(dir)
	require.NoError(t, err)
	if diff := cmp.Diff([]string{"1_NASTAVNIK.PNG", "2_clean.png", "39_Zerkalo.png"}, names); diff != "" {
		t.Errorf("Images() mismatch (-want +got):\n%s", diff)
	}

	dirty, err := Verify(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"1_NASTAVNIK.PNG"}, dirty)
}

func TestPlan_Conflicts(t *testing.T) {
	t.Run("target exists", func(t *testing.T) {
		dir := t.TempDir()
		touch(t, dir, "a b.png", "a_b.png")

		_, err := Plan(dir, Transliterate)
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("two sources one target", func(t *testing.T) {
		dir := t.TempDir()
		touch(t, dir, "x\u2800.png", "x\u200b.png")

		_, err := Plan(dir, StripInvisible)
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("missing dir", func(t *testing.T) {
		_, err := Plan(filepath.Join(t.TempDir(), "nope"), Clean)
		assert.Error(t, err)
	})
}

func TestSyncManifest(t *testing.T) {
	cards := []models.Card{
		{ID: 39, ImageURL: "https://raw.githubusercontent.com/o/r/main/cards/39_%D0%97%D0%B5%D1%80%D0%BA%D0%B0%D0%BB%D0%BE.png"},
		{ID: 1, ImageURL: "1_НАСТАВНИК.PNG"},
		{ID: 2, ImageURL: "cards/2_clean.png"},
	}
	renames := []Rename{
		{From: "1_НАСТАВНИК.PNG", To: "1_NASTAVNIK.PNG"},
		{From: "39_Зеркало.png", To: "39_Zerkalo.png"},
	}

	assert.Equal(t, 2, SyncManifest(cards, renames))
	got := []string{cards[0].ImageURL, cards[1].ImageURL, cards[2].ImageURL}
	want := []string{
		"https://raw.githubusercontent.com/o/r/main/cards/39_Zerkalo.png",
		"1_NASTAVNIK.PNG",
		"cards/2_clean.png",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("locators mismatch (-want +got):\n%s", diff)
	}

	assert.Zero(t, SyncManifest(cards, nil))
}

func TestRenumberManifest(t *testing.T) {
	cards := []models.Card{
		{ID: 39, Type: models.CardTypeBlock, ImageURL: "https://x/cards/39_zerkalo_block.png"},
		{ID: 1, Type: models.CardTypeResource, ImageURL: "1_resource.png"},
		{ID: 2, Type: models.CardTypeResource},
	}

	assert.Equal(t, 2, RenumberManifest(cards))
	assert.Equal(t, "https://x/cards/39_block.png", cards[0].ImageURL)
	assert.Equal(t, "1_resource.png", cards[1].ImageURL)
	assert.Equal(t, "2_resource.png", cards[2].ImageURL)
}

func TestWriteCards(t *testing.T) {
	cards := []models.Card{
		{ID: 39, Name: "Зеркало", Description: "Смотри <ближе> & глубже", Type: models.CardTypeBlock, ImageURL: "39_block.png"},
		{ID: 1, Name: "Наставник", Type: models.CardTypeResource, ImageURL: "1_resource.png"},
	}

	for _, name := range []string{"cards.json", "cards.yaml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			require.NoError(t, WriteCards(path, cards))

			got, err := ReadCards(path)
			require.NoError(t, err)
			if diff := cmp.Diff(cards, got); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}

	path := filepath.Join(t.TempDir(), "cards.json")
	require.NoError(t, WriteCards(path, cards))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "\n  {\n    \"id\": 39,")
	assert.Contains(t, string(raw), `"name": "Зеркало"`)
	assert.Contains(t, string(raw), "<ближе> & глубже")
	assert.Contains(t, string(raw), `"type": "block"`)
}

func TestParseDescriptions(t *testing.T) {
	input := `1.
Наставник
Тот, кто ведёт.

Вторая строка.
39
Зеркало
Смотри внимательнее.
40.
Пусто
41`

	cards, err := ParseDescriptions(strings.NewReader(input), DefaultResourceMax)
	require.NoError(t, err)

	want := []models.Card{
		{ID: 1, Name: "Наставник", Description: "Тот, кто ведёт.\nВторая строка.", Type: models.CardTypeResource},
		{ID: 39, Name: "Зеркало", Description: "Смотри внимательнее.", Type: models.CardTypeBlock},
		{ID: 40, Name: "Пусто", Type: models.CardTypeBlock},
	}
	if diff := cmp.Diff(want, cards); diff != "" {
		t.Errorf("ParseDescriptions() mismatch (-want +got):\n%s", diff)
	}
}

func TestParseDescriptions_DuplicateID(t *testing.T) {
	_, err := ParseDescriptions(strings.NewReader("1\nA\nx\n1\nB\ny"), DefaultResourceMax)
	assert.ErrorContains(t, err, "duplicate")
}
