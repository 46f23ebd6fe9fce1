package entity

// MediaProbe holds the source characteristics the planner and preview
// generator work from. Immutable once computed.
type MediaProbe struct {
	Duration    float64 // seconds
	Width       int
	Height      int
	BitrateKbps int // estimated; 0 when the container reports nothing usable
}

// Valid reports whether the probe describes a playable video source.
func (p MediaProbe) Valid() bool {
	return p.Duration > 0 && p.Width > 0 && p.Height > 0
}
