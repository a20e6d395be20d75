package risk

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadPolicyFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	doc := "high_risk_locations:\n  - XX\n  - \"  \"\nvpn_ranges:\n  - 198.51.100.0/24\n  - 2001:db8::/32\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	policy, err := LoadPolicy(path)
	require.NoError(t, err)
	require.Equal(t, []string{"XX"}, policy.HighRiskLocations)
	require.True(t, policy.HighRiskLocation("Somewhere, XX"))
	require.False(t, policy.HighRiskLocation("NY"))

	detector := policy.VPNDetector()
	require.NotNil(t, detector)
	require.True(t, detector.IsVPN("198.51.100.7"))
	require.True(t, detector.IsVPN("::ffff:198.51.100.7"))
	require.True(t, detector.IsVPN("2001:db8::1"))
	require.False(t, detector.IsVPN("203.0.113.1"))
	require.False(t, detector.IsVPN("garbage"))
}

func TestLoadPolicyEmptyPath(t *testing.T) {
	policy, err := LoadPolicy("")
	require.NoError(t, err)
	require.Nil(t, policy.VPNDetector())
	require.False(t, policy.HighRiskLocation("XX"))
}

func TestParsePolicyRejectsBadRange(t *testing.T) {
	_, err := ParsePolicy([]byte("vpn_ranges: [not-a-cidr]\n"))
	require.Error(t, err)
}

func TestParsePolicyTimezone(t *testing.T) {
	policy, err := ParsePolicy([]byte("high_risk_locations: []\n"))
	require.NoError(t, err)
	require.Equal(t, "UTC", policy.Location().String())

	_, err = ParsePolicy([]byte("timezone: Mars/Olympus\n"))
	require.Error(t, err)
}
