package ship

import (
	"fmt"
	"time"

	"github.com/andrescamacho/quadrant-go/internal/domain/shared"
)

// Definition describes a purchasable ship type
type Definition struct {
	TypeID            string `json:"type_id"`
	Name              string `json:"name"`
	WarpCost          int    `json:"warp_cost"`
	TurnsPerWarp      int    `json:"turns_per_warp"`
	WarpPowerCapacity int    `json:"warp_power_capacity"`
	ShieldCapacity    int    `json:"shield_capacity"`
	FighterCapacity   int    `json:"fighter_capacity"`
	CargoHolds        int    `json:"cargo_holds"`
	Price             int    `json:"price"`
	IsEscapePod       bool   `json:"is_escape_pod"`
}

// Ship is a pilotable hull. Sector is nil while the ship is in hyperspace.
type Ship struct {
	ID          shared.ShipID   `json:"id"`
	TypeID      string          `json:"type_id"`
	Name        string          `json:"name"`
	Owner       Owner           `json:"owner"`
	Sector      *int            `json:"sector"`
	InTransit   bool            `json:"in_transit"`
	TransitDest *int            `json:"transit_dest"`
	TransitETA  *time.Time      `json:"transit_eta"`
	Credits     int             `json:"credits"`
	Cargo       shared.CargoMap `json:"cargo"`
	WarpPower   int             `json:"warp_power"`
	Shields     int             `json:"shields"`
	Fighters    int             `json:"fighters"`
	IsEscapePod bool            `json:"is_escape_pod"`
}

// SectorOrZero returns the current sector, or -1 while in transit
func (s *Ship) SectorOrZero() int {
	if s.Sector == nil {
		return -1
	}
	return *s.Sector
}

// SpendWarpPower deducts warp power for a jump
func (s *Ship) SpendWarpPower(cost int) error {
	if s.WarpPower < cost {
		return shared.NewConflictError(fmt.Sprintf("insufficient warp power: need %d, have %d", cost, s.WarpPower))
	}
	s.WarpPower -= cost
	return nil
}

// SpendCredits deducts shipboard credits
func (s *Ship) SpendCredits(amount int) error {
	if amount < 0 {
		return shared.NewValidationError("amount", "must be non-negative")
	}
	if s.Credits < amount {
		return shared.NewConflictError(fmt.Sprintf("insufficient credits: need %d, have %d", amount, s.Credits))
	}
	s.Credits -= amount
	return nil
}

// AddCargo loads units of a commodity, enforcing hold capacity from def
func (s *Ship) AddCargo(def *Definition, commodity shared.Commodity, units int) error {
	if units < 0 {
		return shared.NewValidationError("units", "must be non-negative")
	}
	if s.Cargo == nil {
		s.Cargo = shared.CargoMap{}
	}
	if s.Cargo.Total()+units > def.CargoHolds {
		return shared.NewConflictError(fmt.Sprintf("cargo holds full: %d/%d used", s.Cargo.Total(), def.CargoHolds))
	}
	s.Cargo[commodity] += units
	return nil
}

// RemoveCargo unloads units of a commodity
func (s *Ship) RemoveCargo(commodity shared.Commodity, units int) error {
	if units < 0 {
		return shared.NewValidationError("units", "must be non-negative")
	}
	if s.Cargo[commodity] < units {
		return shared.NewConflictError(fmt.Sprintf("insufficient %s: have %d", commodity, s.Cargo[commodity]))
	}
	s.Cargo[commodity] -= units
	if s.Cargo[commodity] == 0 {
		delete(s.Cargo, commodity)
	}
	return nil
}

// BeginTransit flips the ship into hyperspace toward dest
func (s *Ship) BeginTransit(dest int, eta time.Time) {
	s.Sector = nil
	s.InTransit = true
	s.TransitDest = &dest
	s.TransitETA = &eta
}

// CompleteTransit lands the ship at its destination
func (s *Ship) CompleteTransit() {
	if s.TransitDest != nil {
		dest := *s.TransitDest
		s.Sector = &dest
	}
	s.InTransit = false
	s.TransitDest = nil
	s.TransitETA = nil
}
