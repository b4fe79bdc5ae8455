package gios

// Station is one entry of the provider's station directory.
type Station struct {
	ID      int
	Name    string
	City    string
	Address string
	Lat     float64
	Lon     float64
}

// Sensor is one measurable parameter available at a station.
type Sensor struct {
	ID        int
	ParamName string
}

// Value is a single timestamped reading. A nil Value means the provider
// reported null for that hour.
type Value struct {
	Date  string   `json:"date"`
	Value *float64 `json:"value"`
}

// SensorData is the reading series for one sensor, newest first as
// delivered by the provider.
type SensorData struct {
	Key    string  `json:"key"`
	Values []Value `json:"values"`
}

// Wire records. The directory endpoint encodes coordinates as strings and
// nests the city name; they are decoded into Station before leaving this
// package.

type stationRecord struct {
	ID          int     `json:"id"`
	StationName string  `json:"stationName"`
	GegrLat     string  `json:"gegrLat"`
	GegrLon     string  `json:"gegrLon"`
	City        *city   `json:"city"`
	AddressStreet *string `json:"addressStreet"`
}

type city struct {
	Name string `json:"name"`
}

type sensorRecord struct {
	ID    int   `json:"id"`
	Param param `json:"param"`
}

type param struct {
	ParamName string `json:"paramName"`
}
