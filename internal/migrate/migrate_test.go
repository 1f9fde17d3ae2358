package migrate

import (
	"testing"

	"github.com/hexgame/gamecore/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func v1Doc() map[string]any {
	return map[string]any{
		"version": float64(1),
		"round":   float64(3),
		"players": map[string]any{"1": map[string]any{}, "2": map[string]any{}},
	}
}

func TestUpgradeFromV1ReachesCurrent(t *testing.T) {
	doc, err := Upgrade(v1Doc())
	require.NoError(t, err)
	assert.Equal(t, float64(CurrentVersion), doc["version"])

	log := doc["events_log"].(map[string]any)
	visible := log["events_visible_by_player"].(map[string]any)
	assert.Contains(t, visible, "1")
	assert.Contains(t, visible, "2")
}

func TestUpgradeIsIdempotentAtCurrentVersion(t *testing.T) {
	doc := v1Doc()
	doc["version"] = float64(CurrentVersion)
	doc["events_log"] = map[string]any{"events": map[string]any{}, "events_visible_by_player": map[string]any{}}

	got, err := Upgrade(doc)
	require.NoError(t, err)
	assert.Equal(t, float64(CurrentVersion), got["version"])
}

func TestUpgradeRejectsUnknownVersion(t *testing.T) {
	_, err := Upgrade(map[string]any{"version": float64(0)})
	assert.True(t, apperr.Is(err, apperr.InvalidVersion))

	_, err = Upgrade(map[string]any{"version": float64(9999)})
	assert.True(t, apperr.Is(err, apperr.InvalidVersion))
}

func TestBackfillStampsRoundOnHistoricalMoveEvents(t *testing.T) {
	doc := map[string]any{
		"version": float64(3),
		"round":   float64(5),
		"players": map[string]any{},
		"events_log": map[string]any{
			"events": map[string]any{
				"0": map[string]any{"kind": "pc_entered_hex"},
			},
			"events_visible_by_player": map[string]any{},
		},
	}

	got, err := Upgrade(doc)
	require.NoError(t, err)

	evt := got["events_log"].(map[string]any)["events"].(map[string]any)["0"].(map[string]any)
	assert.Equal(t, float64(4), evt["round"])
}
