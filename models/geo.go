package models

// GeoPoint is a GeoJSON point as MongoDB expects it: coordinates are
// [longitude, latitude].
type GeoPoint struct {
	Type        string    `bson:"type" json:"type"`
	Coordinates []float64 `bson:"coordinates" json:"coordinates"`
	Address     string    `bson:"address,omitempty" json:"address,omitempty"`
	Description string    `bson:"description,omitempty" json:"description,omitempty"`
}

// Location is an itinerary stop with the day of the tour it belongs to.
type Location struct {
	GeoPoint `bson:",inline"`
	Day      int `bson:"day,omitempty" json:"day,omitempty"`
}

func NewGeoPoint(lng, lat float64) GeoPoint {
	return GeoPoint{Type: "Point", Coordinates: []float64{lng, lat}}
}
