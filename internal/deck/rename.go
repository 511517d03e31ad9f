package deck

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"metacards/internal/models"
)

// ErrConflict is returned when a plan would overwrite a file
var ErrConflict = errors.New("rename conflict")

// Rename is one planned file move inside the card directory
type Rename struct {
	From string
	To   string
}

// Rule maps a file name to its new name. Returning the input leaves the file alone.
type Rule func(name string) string

// braille blank shows up in names copied from chat exports
const brailleBlank = '\u2800'

var (
	cleanPattern  = regexp.MustCompile(`[^A-Za-z0-9._]`)
	slugPattern   = regexp.MustCompile(`[^a-z0-9_]`)
	underscoreRun = regexp.MustCompile(`_+`)
	leadingID     = regexp.MustCompile(`^(\d+)`)
)

var translit = map[rune]string{
	'А': "A", 'Б': "B", 'В': "V", 'Г': "G", 'Д': "D", 'Е': "E", 'Ё': "E",
	'Ж': "ZH", 'З': "Z", 'И': "I", 'Й': "J", 'К': "K", 'Л': "L", 'М': "M",
	'Н': "N", 'О': "O", 'П': "P", 'Р': "R", 'С': "S", 'Т': "T", 'У': "U",
	'Ф': "F", 'Х': "H", 'Ц': "C", 'Ч': "CH", 'Ш': "SH", 'Щ': "SH",
	'Ъ': "", 'Ы': "Y", 'Ь': "", 'Э': "E", 'Ю': "YU", 'Я': "YA",
}

func invisible(r rune) bool {
	return r == brailleBlank || unicode.Is(unicode.Cf, r) || unicode.IsControl(r)
}

// StripInvisible removes zero-width, format and control characters and normalizes to NFC
func StripInvisible(name string) string {
	t := transform.Chain(norm.NFC, runes.Remove(runes.Predicate(invisible)))
	out, _, err := transform.String(t, name)
	if err != nil {
		return name
	}
	return out
}

// FixExtension lowercases an upper-case .PNG extension
func FixExtension(name string) string {
	if strings.HasSuffix(name, ".PNG") {
		return strings.TrimSuffix(name, ".PNG") + ".png"
	}
	return name
}

// Transliterate spells Cyrillic letters in Latin, keeping case, and turns spaces into underscores
func Transliterate(name string) string {
	var b strings.Builder
	for _, r := range name {
		if r == ' ' {
			b.WriteByte('_')
			continue
		}
		upper := unicode.ToUpper(r)
		latin, ok := translit[upper]
		if !ok {
			b.WriteRune(r)
			continue
		}
		if upper != r {
			latin = strings.ToLower(latin)
		}
		b.WriteString(latin)
	}
	return b.String()
}

// Clean transliterates and drops everything outside [A-Za-z0-9._]
func Clean(name string) string {
	return cleanPattern.ReplaceAllString(Transliterate(StripInvisible(name)), "")
}

// IsClean reports whether name already satisfies Clean with a lower-case extension
func IsClean(name string) bool {
	return name != "" && !cleanPattern.MatchString(name) && !strings.HasSuffix(name, ".PNG")
}

// Slug turns a card name into a lower-case [a-z0-9_] fragment
func Slug(name string) string {
	s := strings.ToLower(Transliterate(StripInvisible(name)))
	s = slugPattern.ReplaceAllString(s, "")
	s = underscoreRun.ReplaceAllString(s, "_")
	return strings.Trim(s, "_")
}

// StandardName is "{id}_{slug}_{type}.png"
func StandardName(card models.Card) string {
	slug := Slug(card.Name)
	if slug == "" {
		return NumberedName(card.ID, card.Type)
	}
	return fmt.Sprintf("%d_%s_%s.png", card.ID, slug, card.Type)
}

// NumberedName is "{id}_{type}.png"
func NumberedName(id int, t models.CardType) string {
	return fmt.Sprintf("%d_%s.png", id, t)
}

// FileID extracts the leading card id of a file name
func FileID(name string) (int, bool) {
	m := leadingID.FindStringSubmatch(name)
	if m == nil {
		return 0, false
	}
	id, err := strconv.Atoi(m[1])
	return id, err == nil
}

// StandardizeRule renames files whose leading id is in the deck to their standard name
func StandardizeRule(cards []models.Card) Rule {
	names := make(map[int]string, len(cards))
	for _, card := range cards {
		names[card.ID] = strings.ToLower(StandardName(card))
	}
	return func(name string) string {
		id, ok := FileID(name)
		if !ok {
			return name
		}
		if std, ok := names[id]; ok {
			return std
		}
		return name
	}
}

// RenumberRule renames files to "{id}_{type}.png". The type comes from the deck when
// the id is known, then from a _block/_resource marker in the name, else it is dropped.
func RenumberRule(cards []models.Card) Rule {
	types := make(map[int]models.CardType, len(cards))
	for _, card := range cards {
		types[card.ID] = card.Type
	}
	return func(name string) string {
		id, ok := FileID(name)
		if !ok {
			return name
		}
		if t, ok := types[id]; ok {
			return NumberedName(id, t)
		}
		lower := strings.ToLower(name)
		switch {
		case strings.Contains(lower, "_resource"):
			return NumberedName(id, models.CardTypeResource)
		case strings.Contains(lower, "_block"):
			return NumberedName(id, models.CardTypeBlock)
		}
		return fmt.Sprintf("%d.png", id)
	}
}

// Images lists the PNG files of dir in name order
func Images(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() && strings.EqualFold(filepath.Ext(e.Name()), ".png") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Plan applies rule to every image in dir. It refuses plans where two files collide
// or a target already exists, except for case-only renames of the same file.
func Plan(dir string, rule Rule) ([]Rename, error) {
	names, err := Images(dir)
	if err != nil {
		return nil, err
	}

	var plan []Rename
	targets := make(map[string]string)
	for _, name := range names {
		to := rule(name)
		if to == name || to == "" {
			continue
		}
		if prev, dup := targets[to]; dup {
			return nil, fmt.Errorf("%w: %q and %q both become %q", ErrConflict, prev, name, to)
		}
		targets[to] = name
		if existing, err := os.Lstat(filepath.Join(dir, to)); err == nil {
			// case-insensitive filesystems report the source itself for case-only renames
			src, serr := os.Lstat(filepath.Join(dir, name))
			if serr != nil || !os.SameFile(existing, src) {
				return nil, fmt.Errorf("%w: %q already exists", ErrConflict, to)
			}
		}
		plan = append(plan, Rename{From: name, To: to})
	}
	return plan, nil
}

// Apply performs the renames in order and stops at the first failure
func Apply(dir string, plan []Rename) error {
	for _, r := range plan {
		if err := os.Rename(filepath.Join(dir, r.From), filepath.Join(dir, r.To)); err != nil {
			return fmt.Errorf("failed to rename %q: %w", r.From, err)
		}
	}
	return nil
}

// Verify lists images in dir whose names are not clean
func Verify(dir string) ([]string, error) {
	names, err := Images(dir)
	if err != nil {
		return nil, err
	}
	var dirty []string
	for _, name := range names {
		if !IsClean(name) {
			dirty = append(dirty, name)
		}
	}
	return dirty, nil
}
