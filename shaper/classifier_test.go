package shaper

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func classifiers(t *testing.T, body string) map[string]json.RawMessage {
	t.Helper()
	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(body), &raw))
	return raw
}

const classifierBody = `{
	"motion": {
		"moving": {"2024-01-01T00:00:02Z": true, "2024-01-01T00:00:01Z": false},
		"idle":   {"2024-01-01T00:00:01Z": true}
	},
	"vision": {
		"person": {"2024-01-01T01:00:00+01:00": true, "not a time": true}
	},
	"audio": {"error": "model unavailable"}
}`

func TestClassifierSeries(t *testing.T) {
	points := ClassifierSeries(classifiers(t, classifierBody))
	require.Len(t, points, 3)

	// 01:00+01:00 is midnight UTC and sorts first.
	assert.Equal(t, "2024-01-01T01:00:00+01:00", points[0].Time)
	assert.Equal(t, map[string]int{"vision:person": 1}, points[0].Values)

	assert.Equal(t, "2024-01-01T00:00:01Z", points[1].Time)
	assert.Equal(t, map[string]int{"motion:moving": 0, "motion:idle": 1}, points[1].Values)

	assert.Equal(t, "2024-01-01T00:00:02Z", points[2].Time)
	assert.Equal(t, map[string]int{"motion:moving": 1}, points[2].Values)
	assert.True(t, points[1].At().Before(points[2].At()))
}

func TestClassifierSeries_Empty(t *testing.T) {
	assert.Empty(t, ClassifierSeries(nil))
	assert.Empty(t, ClassifierSeries(classifiers(t, `{"audio": {"error": "boom"}}`)))
}

func TestClassifierLines(t *testing.T) {
	assert.Equal(t,
		[]string{"motion:idle", "motion:moving", "vision:person"},
		ClassifierLines(classifiers(t, classifierBody)))
	assert.Empty(t, ClassifierLines(nil))
}

func TestClassifierTicks(t *testing.T) {
	points := make([]ClassifierPoint, 20)
	for i := range points {
		points[i].Time = string(rune('a' + i))
	}
	// indices 0,2,4,6,8,11,13,15,17 and 20 (dropped)
	assert.Equal(t,
		[]string{"a", "c", "e", "g", "i", "l", "n", "p", "r"},
		ClassifierTicks(points, DefaultTickCount))

	// fewer points than ticks: indices repeat and are de-duplicated
	short := points[:3]
	assert.Equal(t, []string{"a", "b", "c"}, ClassifierTicks(short, 0))

	assert.Empty(t, ClassifierTicks(nil, 10))
}

func TestClassifierErrors(t *testing.T) {
	raw := classifiers(t, classifierBody)
	raw["zeta"] = json.RawMessage(`{"error": {"code": 3}}`)
	assert.Equal(t, []string{
		"audio: model unavailable",
		`zeta: {"code": 3}`,
	}, ClassifierErrors(raw))
	assert.Empty(t, ClassifierErrors(nil))
}
