package tier

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_CaseInsensitiveAndPrefix(t *testing.T) {
	cases := []struct {
		in   string
		want Tier
	}{
		{"challenger", Challenger},
		{"CHALLENGER", Challenger},
		{"Master", Master},
		{"diamond", Diamond},
		{"PLATINUM", Platinum},
		{"gold", Gold},
		{"g", Gold},
		{"G", Gold},
		{"silver", Silver},
		{"s", Silver},
		{"bronze", Bronze},
		{"b", Bronze},
		{"  gold  ", Gold},
	}
	for _, tc := range cases {
		got, err := Parse(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestParse_Idempotent(t *testing.T) {
	for _, in := range []string{"challenger", "m", "DIAMOND", "gold"} {
		got1, err1 := Parse(in)
		require.NoError(t, err1)
		got2, err2 := Parse(got1.String())
		require.NoError(t, err2)
		assert.Equal(t, got1, got2)
	}
}

func TestParse_Invalid(t *testing.T) {
	for _, in := range []string{"", "unranked", "x", "emerald"} {
		_, err := Parse(in)
		assert.ErrorIs(t, err, ErrInvalidTier, in)
	}
}

func TestBestWorst(t *testing.T) {
	assert.Equal(t, Challenger, Best(Challenger, Bronze))
	assert.Equal(t, Challenger, Best(Bronze, Challenger))
	assert.Equal(t, Bronze, Worst(Challenger, Bronze))
	assert.Equal(t, Gold, Best(Gold, Gold))
}

func TestIsBetterOrEqual(t *testing.T) {
	assert.True(t, IsBetterOrEqual(Challenger, Bronze))
	assert.True(t, IsBetterOrEqual(Gold, Gold))
	assert.False(t, IsBetterOrEqual(Bronze, Challenger))
}

func TestEqualsAndAboveAllBelowPartition(t *testing.T) {
	above := EqualsAndAbove(Gold)
	below := AllBelow(Gold)
	assert.Len(t, above, 5) // challenger,master,diamond,platinum,gold
	assert.Len(t, below, 2) // silver,bronze
	assert.Contains(t, above, Gold)
	assert.NotContains(t, below, Gold)
	assert.Equal(t, numTiers, len(above)+len(below))
}

func TestJSONRoundTrip(t *testing.T) {
	for _, tr := range All {
		b, err := json.Marshal(tr)
		require.NoError(t, err)
		var got Tier
		require.NoError(t, json.Unmarshal(b, &got))
		assert.Equal(t, tr, got)
	}
}

func TestUnmarshalJSON_Invalid(t *testing.T) {
	var tr Tier
	err := json.Unmarshal([]byte(`"unranked"`), &tr)
	assert.ErrorIs(t, err, ErrInvalidTier)
}
