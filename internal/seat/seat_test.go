package seat

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextWraps(t *testing.T) {
	assert.Equal(t, South, East.Next())
	assert.Equal(t, East, North.Next())
}

func TestDistance(t *testing.T) {
	tests := []struct {
		from, to Seat
		want     int
	}{
		{East, South, 1},
		{East, North, 3},
		{North, East, 1},
		{West, South, 3},
		{South, South, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Distance(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestOrder(t *testing.T) {
	assert.Equal(t, []Seat{North, East, South}, Order(West))
}

func TestTextRoundTrip(t *testing.T) {
	b, err := json.Marshal(map[string]Seat{"dealer": West})
	require.NoError(t, err)
	assert.JSONEq(t, `{"dealer":"west"}`, string(b))

	var s Seat
	require.NoError(t, json.Unmarshal([]byte(`"NORTH"`), &s))
	assert.Equal(t, North, s)
	assert.Error(t, json.Unmarshal([]byte(`"centre"`), &s))
}
