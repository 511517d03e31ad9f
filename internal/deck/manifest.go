// Package deck maintains the card image directory and the card manifest that points into it.
package deck

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"metacards/internal/catalog"
	"metacards/internal/models"
)

// ReadCards loads a card manifest in JSON or YAML
func ReadCards(path string) ([]models.Card, error) {
	var cards []models.Card
	if err := catalog.ReadManifest(path, &cards); err != nil {
		return nil, err
	}
	return cards, nil
}

// WriteCards writes a card manifest, choosing the format from the file extension.
// JSON keeps non-ASCII names readable and is indented by two spaces.
func WriteCards(path string, cards []models.Card) error {
	var data []byte
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(cards); err != nil {
			return fmt.Errorf("failed to encode %s: %w", path, err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("failed to encode %s: %w", path, err)
		}
		data = buf.Bytes()
	default:
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		if err := enc.Encode(cards); err != nil {
			return fmt.Errorf("failed to encode %s: %w", path, err)
		}
		data = buf.Bytes()
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// SyncManifest points image locators at renamed files. A locator matches when its
// last path segment, raw or percent-decoded, is a renamed file. It returns the
// number of cards changed.
func SyncManifest(cards []models.Card, renames []Rename) int {
	if len(renames) == 0 {
		return 0
	}
	byOld := make(map[string]string, len(renames))
	for _, r := range renames {
		byOld[r.From] = r.To
	}

	updated := 0
	for i := range cards {
		prefix, last := splitLocator(cards[i].ImageURL)
		if last == "" {
			continue
		}
		to, ok := byOld[last]
		if !ok {
			if decoded, err := url.PathUnescape(last); err == nil {
				to, ok = byOld[decoded]
			}
		}
		if !ok {
			continue
		}
		cards[i].ImageURL = prefix + to
		updated++
	}
	return updated
}

// RenumberManifest rewrites every locator to end in "{id}_{type}.png"
func RenumberManifest(cards []models.Card) int {
	updated := 0
	for i := range cards {
		prefix, _ := splitLocator(cards[i].ImageURL)
		locator := prefix + NumberedName(cards[i].ID, cards[i].Type)
		if locator != cards[i].ImageURL {
			cards[i].ImageURL = locator
			updated++
		}
	}
	return updated
}

// splitLocator separates a locator into everything up to the last slash and the file name
func splitLocator(locator string) (prefix, last string) {
	idx := strings.LastIndex(locator, "/")
	return locator[:idx+1], locator[idx+1:]
}
