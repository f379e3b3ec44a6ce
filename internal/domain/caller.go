package domain

type Capability string

const (
	CapabilityAdmin Capability = "admin"
)

// Caller is the authenticated identity a request acts as.
type Caller struct {
	ID           int64
	Capabilities []Capability
}

func (c Caller) HasCapability(capability Capability) bool {
	for _, have := range c.Capabilities {
		if have == capability {
			return true
		}
	}
	return false
}
