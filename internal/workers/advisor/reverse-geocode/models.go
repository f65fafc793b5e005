// internal/workers/advisor/reverse-geocode/models.go
package reversegeocode

type Input struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type Output struct {
	Location string `json:"location"`
}
