package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestParseCardType(t *testing.T) {
	testCases := []struct {
		in      string
		want    CardType
		wantErr bool
	}{
		{in: "block", want: CardTypeBlock},
		{in: "resource", want: CardTypeResource},
		{in: " Resource ", want: CardTypeResource},
		{in: "BLOCK", want: CardTypeBlock},
		{in: "", wantErr: true},
		{in: "joker", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseCardType(tc.in)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestCard_ManifestDecoding(t *testing.T) {
	raw := `{"id": 39, "name": "Mirror", "description": "Look closer", "type": "block", "image_url": "https://example.com/39_block.png"}`

	var card Card
	require.NoError(t, json.Unmarshal([]byte(raw), &card))
	assert.Equal(t, 39, card.ID)
	assert.Equal(t, CardTypeBlock, card.Type)
	assert.Equal(t, "https://example.com/39_block.png", card.ImageURL)

	out, err := json.Marshal(card)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"type":"block"`)
}

func TestCard_UnknownTypeRejected(t *testing.T) {
	var card Card
	err := json.Unmarshal([]byte(`{"id": 1, "type": "joker"}`), &card)
	assert.Error(t, err)
}

func TestHintQuestion_YAMLDecoding(t *testing.T) {
	raw := "- type: resource\n  question: What supports you?\n"

	var hints []HintQuestion
	require.NoError(t, yaml.Unmarshal([]byte(raw), &hints))
	require.Len(t, hints, 1)
	assert.Equal(t, CardTypeResource, hints[0].Type)
	assert.Equal(t, "What supports you?", hints[0].Question)
}

func TestCardType_InvalidMarshal(t *testing.T) {
	_, err := CardType(0).MarshalText()
	assert.Error(t, err)
	assert.Equal(t, "CardType(7)", CardType(7).String())
}
