package risk

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecideThresholds(t *testing.T) {
	cases := []struct {
		score   int
		level   Level
		allowed bool
		reason  string
	}{
		{0, LevelLow, true, "Low risk"},
		{29, LevelLow, true, "Low risk"},
		{30, LevelMedium, true, "Medium risk - additional verification recommended"},
		{59, LevelMedium, true, "Medium risk - additional verification recommended"},
		{60, LevelHigh, false, "High risk detected"},
		{85, LevelHigh, false, "High risk detected"},
		{89, LevelHigh, false, "High risk detected"},
		{90, LevelCritical, false, "Critical risk detected"},
		{100, LevelCritical, false, "Critical risk detected"},
	}
	for _, tc := range cases {
		got := Decide(tc.score)
		require.Equal(t, tc.level, got.Level, "score %d", tc.score)
		require.Equal(t, tc.allowed, got.Allowed, "score %d", tc.score)
		require.Equal(t, tc.reason, got.Reason, "score %d", tc.score)
		if !got.Allowed {
			require.NotEmpty(t, got.Reason)
		}
	}
}

func TestLevelSeverity(t *testing.T) {
	require.Equal(t, "critical", LevelCritical.Severity())
	require.Equal(t, "low", LevelLow.Severity())
}
