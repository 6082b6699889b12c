package shared

import "fmt"

// Commodity is one of the three tradeable goods
type Commodity string

const (
	QuantumFoam    Commodity = "quantum_foam"
	RetroOrganics  Commodity = "retro_organics"
	NeuroSymbolics Commodity = "neuro_symbolics"
)

// Commodities lists the goods in port-code position order
var Commodities = [3]Commodity{QuantumFoam, RetroOrganics, NeuroSymbolics}

// BasePrices are the reference prices the port formulas scale from
var BasePrices = map[Commodity]int{
	QuantumFoam:    25,
	RetroOrganics:  10,
	NeuroSymbolics: 40,
}

// ParseCommodity validates a commodity tag, rejecting unknown values
func ParseCommodity(value string) (Commodity, error) {
	switch Commodity(value) {
	case QuantumFoam, RetroOrganics, NeuroSymbolics:
		return Commodity(value), nil
	}
	return "", NewValidationError("commodity", fmt.Sprintf("unknown commodity %q", value))
}

// CargoMap holds per-commodity unit counts. Absent keys mean zero.
type CargoMap map[Commodity]int

// Total returns the summed units across all commodities
func (c CargoMap) Total() int {
	total := 0
	for _, units := range c {
		total += units
	}
	return total
}

// Clone returns an independent copy
func (c CargoMap) Clone() CargoMap {
	out := make(CargoMap, len(c))
	for commodity, units := range c {
		out[commodity] = units
	}
	return out
}

// Add merges the other cargo into this one
func (c CargoMap) Add(other CargoMap) {
	for commodity, units := range other {
		c[commodity] += units
	}
}
