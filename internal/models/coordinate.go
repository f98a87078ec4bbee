package models

// Coordinate is a raw route point: latitude and longitude in decimal degrees.
// No bounds checking is applied.
type Coordinate struct {
	Lat float64 `bson:"lat" json:"lat"`
	Lon float64 `bson:"lon" json:"lon"`
}

// Route is a stored route document.
type Route struct {
	Name        string      `bson:"name" json:"name"`
	Coordinates [][]float64 `bson:"coordinates" json:"coordinates"` // [lat, lon] pairs
}
