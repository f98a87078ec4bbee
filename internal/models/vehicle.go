package models

// Vehicle is the identity service's answer to a random-vehicle request.
// Only the ID is used by the simulator; the remaining fields are informational.
type Vehicle struct {
	ID     string `json:"id"`
	Type   string `json:"type,omitempty"` // "ICE" or "EV"
	Make   string `json:"make,omitempty"`
	Model  string `json:"model,omitempty"`
	Status string `json:"status,omitempty"`
}
