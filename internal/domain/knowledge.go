package domain

// LandmarkType is the geosearch type of articles that describe a visitable place.
const LandmarkType = "landmark"

// LandmarkPois converts landmark articles into POIs so they can be merged
// into the tourism bucket. Other article types are not POIs.
func LandmarkPois(items []NearbyItem) []ExternalPoi {
	out := make([]ExternalPoi, 0, len(items))
	for _, it := range items {
		if it.Type != LandmarkType {
			continue
		}
		lat, lon, dist := it.Lat, it.Lon, float64(it.DistanceM)
		out = append(out, ExternalPoi{
			Name:      it.Title,
			Lat:       &lat,
			Lon:       &lon,
			DistanceM: &dist,
			Category:  "tourism",
			Kinds:     []string{"wikipedia", it.Type},
			Source:    "wikipedia",
		})
	}
	return out
}
