// Package geo ranks parking spots by great-circle distance from an observer.
package geo

import (
	"math"
	"sort"
)

const earthRadiusKM = 6371.0

// Coordinate is a WGS84 point in decimal degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Kathmandu is used as the observer when a client sends no position.
var Kathmandu = Coordinate{Lat: 27.7172, Lng: 85.3240}

func (c Coordinate) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}

// Ranked pairs an item with its distance from the observer in kilometers.
type Ranked[T any] struct {
	Item       T
	DistanceKM float64
}

// Distance returns the haversine distance between a and b in kilometers, rounded to 2 decimals.
func Distance(a, b Coordinate) float64 {
	dLat := toRadians(b.Lat - a.Lat)
	dLng := toRadians(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(a.Lat))*math.Cos(toRadians(b.Lat))*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return math.Round(earthRadiusKM*c*100) / 100
}

// SortByDistance ranks items ascending by distance from observer. Equal distances keep
// their input order. The input slice is not modified.
func SortByDistance[T any](observer Coordinate, items []T, locate func(T) Coordinate) []Ranked[T] {
	ranked := make([]Ranked[T], len(items))
	for i, item := range items {
		ranked[i] = Ranked[T]{Item: item, DistanceKM: Distance(observer, locate(item))}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].DistanceKM < ranked[j].DistanceKM
	})

	return ranked
}

// FindNearest returns the closest item. ok is false when items is empty.
func FindNearest[T any](observer Coordinate, items []T, locate func(T) Coordinate) (nearest Ranked[T], ok bool) {
	for i, item := range items {
		d := Distance(observer, locate(item))
		if i == 0 || d < nearest.DistanceKM {
			nearest = Ranked[T]{Item: item, DistanceKM: d}
		}
	}
	return nearest, len(items) > 0
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
