package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLandmarkPois(t *testing.T) {
	items := []NearbyItem{
		{Title: "Puerta del Sol", Lat: 40.4169, Lon: -3.7035, DistanceM: 25, Type: LandmarkType},
		{Title: "Universidad", Lat: 40.1, Lon: -3.1, DistanceM: 900, Type: "edu"},
	}

	pois := LandmarkPois(items)

	require.Len(t, pois, 1)
	assert.Equal(t, "Puerta del Sol", pois[0].Name)
	assert.InDelta(t, 25.0, *pois[0].DistanceM, 0)

	buckets, extras := Categorize(nil, pois)
	assert.Empty(t, extras)
	require.Len(t, buckets[CategoryTourism], 1)
	assert.Equal(t, "attraction", buckets[CategoryTourism][0].Type)
}
