package models

// Person is a roster entry. Identity is (Name, Center).
type Person struct {
	Name      string    `json:"name"`
	Frequency Frequency `json:"frequency"`
	Center    Center    `json:"center"`
	Active    bool      `json:"active"`
}

// PersonKey identifies a person within the roster
type PersonKey struct {
	Name   string
	Center Center
}

// Key returns the roster identity of p
func (p Person) Key() PersonKey {
	return PersonKey{Name: p.Name, Center: p.Center}
}

// Roster status labels stored in the optional trailing column
const (
	StatusActive   = "activo"
	StatusInactive = "inactivo"
)

// PersonRequest represents a manual roster entry
type PersonRequest struct {
	Name      string `json:"name" binding:"required"`
	Frequency string `json:"frequency"`
	Center    string `json:"center" binding:"required"`
}

// PersonStatusRequest marks a person active or inactive
type PersonStatusRequest struct {
	Name   string `json:"name" binding:"required"`
	Center string `json:"center" binding:"required"`
	Active bool   `json:"active"`
}
