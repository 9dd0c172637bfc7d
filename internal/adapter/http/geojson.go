package http

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/couchcryptid/geocontext-service/internal/domain"
	"github.com/couchcryptid/geocontext-service/internal/pipeline"
)

// featureCollection renders the center and every bucketed POI as points.
func featureCollection(res pipeline.Result) *geojson.FeatureCollection {
	data := res.Context
	fc := geojson.NewFeatureCollection()

	center := geojson.NewFeature(orb.Point{data.Center.Lon, data.Center.Lat})
	center.Properties["kind"] = "center"
	center.Properties["radius_m"] = data.RadiusM
	if res.Name != "" {
		center.Properties["name"] = res.Name
	}
	fc.Append(center)

	for _, c := range domain.Categories {
		for _, p := range data.Pois[c] {
			f := geojson.NewFeature(orb.Point{p.Lon, p.Lat})
			f.Properties["kind"] = "poi"
			f.Properties["name"] = p.Name
			f.Properties["category"] = string(c)
			f.Properties["type"] = p.Type
			f.Properties["distance_m"] = p.DistanceM
			f.Properties["source"] = p.Source
			fc.Append(f)
		}
	}
	return fc
}
