package domain

import (
	"sort"
	"strings"
)

// Category is one of the fixed POI buckets.
type Category string

const (
	CategoryRestaurants  Category = "restaurants"
	CategoryBarsAndClubs Category = "bars_and_clubs"
	CategoryCafes        Category = "cafes"
	CategoryPharmacies   Category = "pharmacies"
	CategoryHospitals    Category = "hospitals"
	CategorySchools      Category = "schools"
	CategorySupermarkets Category = "supermarkets"
	CategoryTransport    Category = "transport"
	CategoryHotels       Category = "hotels"
	CategoryTourism      Category = "tourism"
	CategoryMuseums      Category = "museums"
	CategoryViewpoints   Category = "viewpoints"
)

// Categories lists every bucket in display order.
var Categories = []Category{
	CategoryRestaurants,
	CategoryBarsAndClubs,
	CategoryCafes,
	CategoryPharmacies,
	CategoryHospitals,
	CategorySchools,
	CategorySupermarkets,
	CategoryTransport,
	CategoryHotels,
	CategoryTourism,
	CategoryMuseums,
	CategoryViewpoints,
}

// DefaultPoiType is assigned when no rule matches.
const DefaultPoiType = "poi"

type poiTypeRule struct {
	poiType  string
	keywords []string
}

// poiTypeRules is evaluated in order; the first rule with a keyword contained
// in the lookup key wins.
var poiTypeRules = []poiTypeRule{
	{"restaurant", []string{"restaurant"}},
	{"fast_food", []string{"fast_food"}},
	{"cafe", []string{"cafe"}},
	{"bar", []string{"bar", "pub"}},
	{"club", []string{"nightclub", "club"}},
	{"pharmacy", []string{"pharmacy"}},
	{"hospital", []string{"hospital", "clinic"}},
	{"school", []string{"school", "college", "university"}},
	{"supermarket", []string{"supermarket"}},
	{"bus_stop", []string{"bus", "station", "transport"}},
	{"hotel", []string{"hotel", "hostel", "guest_house"}},
	{"museum", []string{"museum"}},
	{"viewpoint", []string{"viewpoint"}},
	{"attraction", []string{"attraction", "tourism", "monument"}},
}

var bucketByType = map[string]Category{
	"restaurant":  CategoryRestaurants,
	"fast_food":   CategoryRestaurants,
	"bar":         CategoryBarsAndClubs,
	"club":        CategoryBarsAndClubs,
	"cafe":        CategoryCafes,
	"pharmacy":    CategoryPharmacies,
	"hospital":    CategoryHospitals,
	"school":      CategorySchools,
	"supermarket": CategorySupermarkets,
	"bus_stop":    CategoryTransport,
	"hotel":       CategoryHotels,
	"museum":      CategoryMuseums,
	"viewpoint":   CategoryViewpoints,
	"attraction":  CategoryTourism,
}

// PoisByCategory maps every bucket to its POIs sorted by distance.
type PoisByCategory map[Category][]PoiItem

// NewPoisByCategory returns a map with every bucket present and empty.
func NewPoisByCategory() PoisByCategory {
	p := make(PoisByCategory, len(Categories))
	for _, c := range Categories {
		p[c] = []PoiItem{}
	}
	return p
}

func poiKey(category string, kinds []string) string {
	parts := make([]string, 0, len(kinds)+1)
	if category != "" {
		parts = append(parts, category)
	}
	parts = append(parts, kinds...)
	return strings.ToLower(strings.Join(parts, " "))
}

// InferPoiType returns the POI type for an upstream category and kinds.
func InferPoiType(category string, kinds []string) string {
	key := poiKey(category, kinds)
	for _, rule := range poiTypeRules {
		for _, kw := range rule.keywords {
			if strings.Contains(key, kw) {
				return rule.poiType
			}
		}
	}
	return DefaultPoiType
}

// BucketFor returns the bucket for a POI type. The lookup key is consulted
// only when the type itself has no bucket.
func BucketFor(poiType, key string) (Category, bool) {
	if c, ok := bucketByType[poiType]; ok {
		return c, true
	}
	if strings.Contains(key, "tourism") {
		return CategoryTourism, true
	}
	return "", false
}

// Categorize normalizes upstream POIs into buckets. Items without a usable
// position or without a bucket are returned unchanged as extras. center may
// be nil, in which case only items carrying their own distance are placed.
func Categorize(center *Coordinate, items []ExternalPoi) (PoisByCategory, []ExternalPoi) {
	out := NewPoisByCategory()
	extras := []ExternalPoi{}

	for _, it := range items {
		if it.Lat == nil || it.Lon == nil || !isFinite(*it.Lat) || !isFinite(*it.Lon) {
			extras = append(extras, it)
			continue
		}
		pos := Coordinate{Lat: *it.Lat, Lon: *it.Lon}

		var dist int
		var ok bool
		if it.DistanceM != nil {
			dist, ok = RoundMeters(*it.DistanceM)
		}
		if !ok && center != nil {
			dist, ok = RoundMeters(DistanceMeters(*center, pos))
		}
		if !ok {
			extras = append(extras, it)
			continue
		}

		poiType := InferPoiType(it.Category, it.Kinds)
		bucket, ok := BucketFor(poiType, poiKey(it.Category, it.Kinds))
		if !ok {
			extras = append(extras, it)
			continue
		}

		out[bucket] = append(out[bucket], PoiItem{
			Name:      it.Name,
			DistanceM: dist,
			Lat:       pos.Lat,
			Lon:       pos.Lon,
			Type:      poiType,
			Source:    it.Source,
			Category:  bucket,
			Raw:       it.Raw,
		})
	}

	for _, c := range Categories {
		sortByDistance(out[c])
	}
	return out, extras
}

// Merge concatenates the buckets of base and extra into a new map and
// re-sorts each bucket. Neither input is modified.
func Merge(base, extra PoisByCategory) PoisByCategory {
	out := NewPoisByCategory()
	for _, c := range Categories {
		merged := make([]PoiItem, 0, len(base[c])+len(extra[c]))
		merged = append(merged, base[c]...)
		merged = append(merged, extra[c]...)
		sortByDistance(merged)
		out[c] = merged
	}
	return out
}

// Summarize counts POIs per bucket.
func Summarize(p PoisByCategory) PoiSummary {
	s := PoiSummary{Counts: make(map[Category]int, len(Categories))}
	for _, c := range Categories {
		n := len(p[c])
		s.Counts[c] = n
		s.Total += n
	}
	return s
}

// IsEmpty reports whether every bucket is empty.
func IsEmpty(p PoisByCategory) bool {
	for _, items := range p {
		if len(items) > 0 {
			return false
		}
	}
	return true
}

func sortByDistance(items []PoiItem) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].DistanceM < items[j].DistanceM
	})
}
