package model

import (
	"fmt"
	"strings"
)

// ProofType is the proof system a job asks for.
type ProofType string

// Proof type constants.
const (
	ProofZkSNARK ProofType = "zksnark"
	ProofZkSTARK ProofType = "zkstark"
	ProofZKML    ProofType = "zkml"
)

// Capability is a bit set of proof systems a prover can produce.
type Capability uint8

// Capability bits, one per ProofType.
const (
	CapZkSNARK Capability = 1 << iota
	CapZkSTARK
	CapZKML

	CapAll = CapZkSNARK | CapZkSTARK | CapZKML
)

var capabilityByProofType = map[ProofType]Capability{
	ProofZkSNARK: CapZkSNARK,
	ProofZkSTARK: CapZkSTARK,
	ProofZKML:    CapZKML,
}

// ProofTypes lists every supported proof type in a stable order.
var ProofTypes = []ProofType{ProofZkSNARK, ProofZkSTARK, ProofZKML}

// ParseProofType accepts the canonical lower-case names case-insensitively.
func ParseProofType(s string) (ProofType, error) {
	pt := ProofType(strings.ToLower(s))
	if _, ok := capabilityByProofType[pt]; !ok {
		return "", fmt.Errorf("unknown proof type %q", s)
	}
	return pt, nil
}

// Capability returns the capability bit a prover needs to serve pt.
// Unknown proof types need a capability nobody has.
func (pt ProofType) Capability() Capability {
	return capabilityByProofType[pt]
}

// Supports reports whether c covers proof type pt.
func (c Capability) Supports(pt ProofType) bool {
	bit := pt.Capability()
	return bit != 0 && c&bit == bit
}

// ProofTypes lists the proof types covered by c in declaration order.
func (c Capability) ProofTypes() []ProofType {
	out := make([]ProofType, 0, len(ProofTypes))
	for _, pt := range ProofTypes {
		if c.Supports(pt) {
			out = append(out, pt)
		}
	}
	return out
}

// CapabilitiesFor builds a capability set. No proof types means every proof type.
func CapabilitiesFor(types ...ProofType) Capability {
	if len(types) == 0 {
		return CapAll
	}
	var c Capability
	for _, pt := range types {
		c |= pt.Capability()
	}
	return c
}

// Prover is a registered worker that produces proofs.
type Prover struct {
	AccountID         AccountID  `json:"account_id"`
	Reputation        uint64     `json:"reputation"`
	PerformanceRating uint64     `json:"performance_rating"`
	Capabilities      Capability `json:"capabilities"`
}
