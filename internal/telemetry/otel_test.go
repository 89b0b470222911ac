package telemetry_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kgcourse/geopub/internal/telemetry"
)

func TestSetupDisabled(t *testing.T) {
	shutdown, err := telemetry.Setup(t.Context(), telemetry.Config{})
	require.NoError(t, err)
	require.NoError(t, shutdown(t.Context()))
}

func TestSetupRequiresEndpoint(t *testing.T) {
	_, err := telemetry.Setup(t.Context(), telemetry.Config{Enabled: true})
	require.Error(t, err)
}

func TestHTTPClientIsTraced(t *testing.T) {
	c := telemetry.HTTPClient()
	require.NotNil(t, c.Transport)
}
