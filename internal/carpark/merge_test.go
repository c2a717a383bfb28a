package carpark

import (
	"testing"

	"github.com/randytsao24/parkedup/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeEndToEndRecord(t *testing.T) {
	facilities := []models.Facility{
		{Number: "A1", X: "28001.642", Y: "38744.572", Address: "Test St", Type: "SURFACE CAR PARK", GantryHeight: "2.1"},
	}

	carparks, err := Merge(facilities, models.Availability{"A1": 12})
	require.NoError(t, err)
	require.Len(t, carparks, 1)

	cp := carparks[0]
	assert.Equal(t, "A1", cp.Number)
	assert.Equal(t, "Test St", cp.Address)
	assert.Equal(t, models.Surface, cp.Type)
	assert.Equal(t, 12, cp.AvailableLots)
	assert.InDelta(t, 2.1, cp.GantryHeight, 1e-9)
	assert.InDelta(t, 1.3667, cp.Lat, 1e-4)
	assert.InDelta(t, 103.8333, cp.Lng, 1e-4)
}

func TestMergeExcludesMalformedCoordinates(t *testing.T) {
	facilities := []models.Facility{
		{Number: "ACB", X: "30314.7936", Y: "31490.4942"},
		{Number: "BAD", X: "abc", Y: "31490.4942"},
		{Number: "BADY", X: "30314.7936", Y: ""},
		{Number: "NAN", X: "NaN", Y: "31490.4942"},
		{Number: "INF", X: "30314.7936", Y: "+Inf"},
		{Number: "BJ1", X: " 21226.0459 ", Y: "38065.5064"},
	}

	carparks, err := Merge(facilities, models.Availability{})
	require.NoError(t, err)
	require.Len(t, carparks, 2)

	for _, cp := range carparks {
		assert.NotEqual(t, "BAD", cp.Number)
		assert.NotEqual(t, "BADY", cp.Number)
		assert.NotEqual(t, "NAN", cp.Number)
		assert.NotEqual(t, "INF", cp.Number)
	}
	assert.Equal(t, "ACB", carparks[0].Number)
	assert.Equal(t, "BJ1", carparks[1].Number)
}

func TestMergeOneMalformedRow(t *testing.T) {
	facilities := []models.Facility{
		{Number: "A", X: "30000", Y: "30000"},
		{Number: "B", X: "abc", Y: "30000"},
		{Number: "C", X: "31000", Y: "32000"},
	}

	carparks, err := Merge(facilities, nil)
	require.NoError(t, err)
	assert.Len(t, carparks, len(facilities)-1)
}

func TestMergeDefaults(t *testing.T) {
	facilities := []models.Facility{
		{Number: "NOLOTS", X: "30000", Y: "30000", GantryHeight: "", Address: "", Type: ""},
		{Number: "BADHEIGHT", X: "30000", Y: "30000", GantryHeight: "n/a", Address: "  ", Type: "covered car park"},
		{Number: "NEGHEIGHT", X: "30000", Y: "30000", GantryHeight: "-1.5", Type: "multi-storey car park"},
	}

	carparks, err := Merge(facilities, models.Availability{"OTHER": 4})
	require.NoError(t, err)
	require.Len(t, carparks, 3)

	assert.Zero(t, carparks[0].AvailableLots)
	assert.Zero(t, carparks[0].GantryHeight)
	assert.Equal(t, models.NotAvailable, carparks[0].Address)
	assert.Equal(t, models.CarparkType(models.NotAvailable), carparks[0].Type)

	assert.Zero(t, carparks[1].GantryHeight)
	assert.Equal(t, models.NotAvailable, carparks[1].Address)
	assert.Equal(t, models.CarparkType("covered car park"), carparks[1].Type)

	assert.Zero(t, carparks[2].GantryHeight)
	assert.Equal(t, models.MultiStorey, carparks[2].Type)
}

func TestMergeSkipsDuplicatesAndBlankNumbers(t *testing.T) {
	facilities := []models.Facility{
		{Number: "A", X: "30000", Y: "30000", Address: "first"},
		{Number: "A", X: "31000", Y: "31000", Address: "second"},
		{Number: "", X: "31000", Y: "31000"},
	}

	carparks, err := Merge(facilities, nil)
	require.NoError(t, err)
	require.Len(t, carparks, 1)
	assert.Equal(t, "first", carparks[0].Address)
}

func TestMergeStatsCountEachSkipReason(t *testing.T) {
	facilities := []models.Facility{
		{Number: "A", X: "30000", Y: "30000"},
		{Number: "A", X: "31000", Y: "31000"},
		{Number: " ", X: "31000", Y: "31000"},
		{Number: "B", X: "abc", Y: "31000"},
		{Number: "C", X: "NaN", Y: "31000"},
		{Number: "D", X: "31000", Y: "31000"},
	}

	carparks, stats, err := MergeWithStats(facilities, nil)
	require.NoError(t, err)
	assert.Len(t, carparks, 2)
	assert.Equal(t, MergeStats{
		Facilities:     6,
		Merged:         2,
		BlankNumbers:   1,
		Duplicates:     1,
		BadCoordinates: 2,
	}, stats)
	assert.Equal(t, 4, stats.Skipped())
}

func TestMergeEmptyInputs(t *testing.T) {
	carparks, err := Merge(nil, nil)
	require.NoError(t, err)
	assert.NotNil(t, carparks)
	assert.Empty(t, carparks)
}

func TestMergeRejectsNegativeAvailability(t *testing.T) {
	_, err := Merge([]models.Facility{{Number: "A", X: "30000", Y: "30000"}}, models.Availability{"A": -3})
	assert.ErrorIs(t, err, ErrInvalidAvailability)
}

func TestMergeDoesNotModifyInput(t *testing.T) {
	facilities := []models.Facility{{Number: " A ", X: "30000", Y: "30000", Type: "surface"}}

	_, err := Merge(facilities, nil)
	require.NoError(t, err)
	assert.Equal(t, " A ", facilities[0].Number)
	assert.Equal(t, "surface", facilities[0].Type)
}
