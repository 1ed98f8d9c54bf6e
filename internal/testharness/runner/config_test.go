package runner

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lepair-project/lepair-go/pkg/bt"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "harness.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfigOverlaysDefaults(t *testing.T) {
	path := writeConfig(t, `
step_timeout: 3s
matrix:
  variants: [accept, disconnected]
  io_capabilities: [display_yes_no]
  address_types: [random]
  key_distributions: ["enc+id+link"]
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, 3*time.Second, cfg.StepTimeout.Std())
	// Untouched fields keep their defaults.
	require.Equal(t, DefaultConfig().EstablishAttempts, cfg.EstablishAttempts)

	params, err := cfg.MatrixParams()
	require.NoError(t, err)
	require.Equal(t, []TestVariant{VariantAccept, VariantDisconnected}, params.Variants)
	require.Equal(t, []bt.IOCapability{bt.IOCapDisplayYesNo}, params.IOCapabilities)
	require.Equal(t, []bt.AddressType{bt.AddressTypeRandom}, params.AddressTypes)
	require.Equal(t,
		[]bt.KeyDistribution{bt.KeyDistEncryption | bt.KeyDistIdentity | bt.KeyDistLink},
		params.KeyDistributions)
}

func TestLoadConfigRejectsUnknownVariant(t *testing.T) {
	path := writeConfig(t, "matrix:\n  variants: [explode]\n")
	_, err := LoadConfig(path)
	require.ErrorContains(t, err, "unknown test variant")
}

func TestLoadConfigRejectsBadDuration(t *testing.T) {
	path := writeConfig(t, "step_timeout: fast\n")
	_, err := LoadConfig(path)
	require.ErrorContains(t, err, "invalid duration")
}

func TestLoadConfigRejectsNonPositiveAttempts(t *testing.T) {
	path := writeConfig(t, "establish_attempts: 0\n")
	_, err := LoadConfig(path)
	require.ErrorContains(t, err, "establish_attempts")
}

func TestParseKeyDistribution(t *testing.T) {
	mask, err := parseKeyDistribution("enc+id+sign+link")
	require.NoError(t, err)
	require.Equal(t, bt.KeyDistEncryption|bt.KeyDistIdentity|bt.KeyDistSignature|bt.KeyDistLink, mask)

	_, err = parseKeyDistribution("enc+ltk")
	require.ErrorContains(t, err, "unknown key distribution")
}
