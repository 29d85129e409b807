package models

// Session carries the caller identity into every operation that needs it.
// It is built by the transport layer (HTTP middleware or CLI flags) and
// passed explicitly; nothing reads it from ambient state.
type Session struct {
	Submitter string `json:"submitter"`
	Center    Center `json:"center,omitempty"`
}

// Anonymous reports whether the session carries no submitter
func (s Session) Anonymous() bool {
	return s.Submitter == ""
}
