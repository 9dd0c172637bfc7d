// Package domain models the place context this service assembles around a
// coordinate and the pure operations applied to it.
//
// # Coordinates and Distances
//
// Coordinates are WGS84 decimal degrees. Distances use the haversine
// great-circle formula on a spherical Earth: R = 6 371 000 m for meters and
// R = 6 371 km for kilometers. Distances attached to POIs are rounded to
// whole meters.
//
// # POI Taxonomy
//
// Upstream POIs arrive as [ExternalPoi] values with a free-form category and
// a list of kinds. They are normalized in two steps:
//
//  1. A type is inferred from the lowercase "category kinds" key using an
//     ordered rule table; the first rule whose keyword appears in the key
//     wins, and "poi" is the default.
//  2. The type maps to exactly one of twelve buckets (restaurants,
//     bars_and_clubs, cafes, pharmacies, hospitals, schools, supermarkets,
//     transport, hotels, tourism, museums, viewpoints). Items whose type has
//     no bucket, or whose position is unknown, are returned as extras.
//
// Every bucket is always present and sorted by ascending distance.
//
// # Indicators
//
// Flood risk, air quality, and land cover are optional indicators. A nil
// indicator means the source was not queried or returned nothing; an
// indicator with OK=false means the source answered but could not provide
// data, and Details carries the reason. Status "visual" means only the map
// layer is enabled for that source.
//
// # Language
//
// User-facing text (weather descriptions, comparison highlights, fallback
// reports) is Spanish.
package domain
