package deck

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"metacards/internal/models"
)

// DefaultResourceMax is the highest id of a resource card in the stock deck
const DefaultResourceMax = 38

// ParseDescriptions builds cards from a numbered description file: a line holding the
// id (optionally followed by a dot), then the name line, then description lines up to
// the next id. Blank lines are ignored. Ids up to resourceMax are resource cards.
func ParseDescriptions(r io.Reader, resourceMax int) ([]models.Card, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read descriptions: %w", err)
	}

	var cards []models.Card
	seen := make(map[int]bool)
	for i := 0; i < len(lines); {
		id, ok := idLine(lines[i])
		if !ok {
			i++
			continue
		}
		i++
		if i >= len(lines) {
			break
		}
		if seen[id] {
			return nil, fmt.Errorf("card %d: duplicate id", id)
		}
		seen[id] = true

		name := lines[i]
		i++
		var desc []string
		for i < len(lines) {
			if _, next := idLine(lines[i]); next {
				break
			}
			desc = append(desc, lines[i])
			i++
		}

		t := models.CardTypeBlock
		if id <= resourceMax {
			t = models.CardTypeResource
		}
		cards = append(cards, models.Card{
			ID:          id,
			Name:        name,
			Description: strings.Join(desc, "\n"),
			Type:        t,
		})
	}
	return cards, nil
}

func idLine(line string) (int, bool) {
	digits := strings.Trim(line, ".")
	if digits == "" {
		return 0, false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	id, err := strconv.Atoi(digits)
	return id, err == nil && id > 0
}
