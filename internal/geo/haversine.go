package geo

import "math"

const earthRadiusKm = 6371.0

// KilometersPerMile converts between the two distance units the search API supports.
const KilometersPerMile = 1.609344

// HaversineKm returns the great-circle distance in kilometers between two points.
func HaversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

// Offset moves a point by the given north/east distances in kilometers.
// Good enough for the few-kilometer spans a street map shows.
func Offset(lat, lon, northKm, eastKm float64) (float64, float64) {
	dLat := northKm / 111.32
	dLon := eastKm / (111.32 * math.Cos(toRad(lat)))
	return lat + dLat, lon + dLon
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
