package types

// ------------------------
// Capability addressing & kinds
// ------------------------

type Kind string

const (
	KindCamera Kind = "camera"
)

// Domains group kinds on the bus.
const (
	DomainVision = "vision"
)

// CapabilityAddress identifies a public capability on the bus.
type CapabilityAddress struct {
	Domain string `json:"domain"` // e.g. "vision"
	Kind   Kind   `json:"kind"`
	Name   string `json:"name"`
}
