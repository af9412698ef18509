package fixture_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/flood-activation-etl/internal/domain"
	"github.com/couchcryptid/flood-activation-etl/internal/fixture"
	"github.com/couchcryptid/flood-activation-etl/internal/fragment"
)

func TestActivations_ParsesBack(t *testing.T) {
	body := fixture.Activations(
		fixture.Activation{ActivationID: 812, Title: "Flood in Kenya", Country: "Kenya", CenterPointLatitude: "0.5"},
		fixture.Activation{ActivationID: "813", Title: "Storm"},
	)
	assert.Greater(t, strings.Count(body, "\n"), 3, "fragment is surrounded by framing lines")

	events, err := domain.ParseActivations(body, domain.Query{Region: "africa", Disaster: domain.DisasterFlood})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "812", events[0].ActivationID)
	assert.InDelta(t, 0.5, events[0].Location.Latitude, 1e-9)
	assert.Equal(t, "africa", events[1].Location.Region)
}

func TestActivations_Empty(t *testing.T) {
	events, err := domain.ParseActivations(fixture.Activations(), domain.Query{Region: domain.GlobalRegion})
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestWrapRawRSC_Malformed(t *testing.T) {
	body := fixture.WrapRawRSC("activations", `[{"activationId":"9","title":]`)
	_, err := domain.ParseActivations(body, domain.Query{Region: domain.GlobalRegion})

	var fault *fragment.DecodeFault
	require.ErrorAs(t, err, &fault)
}
