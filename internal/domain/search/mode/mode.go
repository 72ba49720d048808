package mode

// Mode is the search modality.
type Mode string

// Modality constants.
const (
	Text   Mode = "text"
	Image  Mode = "image"
	Vector Mode = "vector"
	// Hybrid evaluates several named vectors; score fusion happens on the backend.
	Hybrid Mode = "hybrid"
)

// IsValid checks if the mode is one of the supported values.
func (m Mode) IsValid() bool {
	return m == Text || m == Image || m == Vector || m == Hybrid
}

// Path returns the default backend endpoint for the modality.
func (m Mode) Path() string {
	return "/search/" + string(m)
}
