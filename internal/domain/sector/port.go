package sector

import (
	"fmt"
	"math"

	"github.com/andrescamacho/quadrant-go/internal/domain/shared"
)

// TradeDirection distinguishes the port's side of a trade for a commodity
type TradeDirection string

const (
	// PortBuys means the port purchases the commodity from pilots (code 'B')
	PortBuys TradeDirection = "buy"
	// PortSells means the port sells the commodity to pilots (code 'S')
	PortSells TradeDirection = "sell"
)

// Port is a trading station bound to exactly one sector. Code is a 3-letter
// string whose i-th character is 'B' or 'S' for the i-th commodity in
// shared.Commodities order.
type Port struct {
	Sector   int                      `json:"sector"`
	Code     string                   `json:"code"`
	Capacity map[shared.Commodity]int `json:"capacity"`
	Stock    map[shared.Commodity]int `json:"stock"`
}

// ValidateCode rejects malformed port codes
func ValidateCode(code string) error {
	if len(code) != 3 {
		return shared.NewValidationError("port_code", "must be exactly 3 characters")
	}
	for _, c := range code {
		if c != 'B' && c != 'S' {
			return shared.NewValidationError("port_code", fmt.Sprintf("invalid character %q", c))
		}
	}
	return nil
}

// Direction returns the port's trade direction for the commodity
func (p *Port) Direction(commodity shared.Commodity) TradeDirection {
	for i, c := range shared.Commodities {
		if c == commodity && i < len(p.Code) {
			if p.Code[i] == 'B' {
				return PortBuys
			}
			return PortSells
		}
	}
	return ""
}

// SellPrice is the per-unit price the port charges a pilot buying the
// commodity. Present only when the port sells it and has capacity.
// price = round(base · (0.75 + 0.35 · sqrt(1 − stock/capacity)))
func (p *Port) SellPrice(commodity shared.Commodity) (int, bool) {
	if p.Direction(commodity) != PortSells {
		return 0, false
	}
	capacity := p.Capacity[commodity]
	if capacity <= 0 {
		return 0, false
	}
	scarcity := math.Sqrt(1 - float64(p.Stock[commodity])/float64(capacity))
	price := float64(shared.BasePrices[commodity]) * (0.75 + 0.35*scarcity)
	return int(math.Round(price)), true
}

// BuyPrice is the per-unit price the port pays a pilot selling the
// commodity. Present only when the port buys it and has free capacity.
// price = round(base · (0.90 + 0.40 · sqrt(1 − stock/capacity)))
func (p *Port) BuyPrice(commodity shared.Commodity) (int, bool) {
	if p.Direction(commodity) != PortBuys {
		return 0, false
	}
	capacity := p.Capacity[commodity]
	if capacity <= 0 || p.Stock[commodity] >= capacity {
		return 0, false
	}
	scarcity := math.Sqrt(1 - float64(p.Stock[commodity])/float64(capacity))
	price := float64(shared.BasePrices[commodity]) * (0.90 + 0.40*scarcity)
	return int(math.Round(price)), true
}

// Prices returns every currently quotable price keyed by commodity and
// direction, e.g. {"quantum_foam": {"sell": 31}}
func (p *Port) Prices() map[shared.Commodity]map[TradeDirection]int {
	prices := make(map[shared.Commodity]map[TradeDirection]int)
	for _, commodity := range shared.Commodities {
		if price, ok := p.SellPrice(commodity); ok {
			prices[commodity] = map[TradeDirection]int{PortSells: price}
		}
		if price, ok := p.BuyPrice(commodity); ok {
			prices[commodity] = map[TradeDirection]int{PortBuys: price}
		}
	}
	return prices
}

// AdjustStock applies a stock delta, holding 0 <= stock <= capacity
func (p *Port) AdjustStock(commodity shared.Commodity, delta int) error {
	next := p.Stock[commodity] + delta
	if next < 0 {
		return shared.NewConflictError(fmt.Sprintf("port has only %d units of %s", p.Stock[commodity], commodity))
	}
	if next > p.Capacity[commodity] {
		return shared.NewConflictError(fmt.Sprintf("port cannot hold more than %d units of %s", p.Capacity[commodity], commodity))
	}
	p.Stock[commodity] = next
	return nil
}
