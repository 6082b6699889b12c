package sector_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/quadrant-go/internal/domain/sector"
	"github.com/andrescamacho/quadrant-go/internal/domain/shared"
)

func TestValidateCode(t *testing.T) {
	assert.NoError(t, sector.ValidateCode("BSS"))
	assert.NoError(t, sector.ValidateCode("BBB"))
	assert.Error(t, sector.ValidateCode("BS"))
	assert.Error(t, sector.ValidateCode("BSSX"))
	assert.Error(t, sector.ValidateCode("BSX"))
	assert.Error(t, sector.ValidateCode("bss"))
}

func TestPort_Direction(t *testing.T) {
	port := &sector.Port{Sector: 2, Code: "BSS"}

	assert.Equal(t, sector.PortBuys, port.Direction(shared.QuantumFoam))
	assert.Equal(t, sector.PortSells, port.Direction(shared.RetroOrganics))
	assert.Equal(t, sector.PortSells, port.Direction(shared.NeuroSymbolics))
}

func TestPort_BuyPriceQuarterStock(t *testing.T) {
	// Arrange - quantum foam at 25/100 stock
	port := &sector.Port{
		Sector:   2,
		Code:     "BSS",
		Capacity: map[shared.Commodity]int{shared.QuantumFoam: 100},
		Stock:    map[shared.Commodity]int{shared.QuantumFoam: 25},
	}

	// Act
	price, ok := port.BuyPrice(shared.QuantumFoam)

	// Assert - round(25 * (0.90 + 0.40 * sqrt(0.75))) = 31
	require.True(t, ok)
	assert.Equal(t, 31, price)
}

func TestPort_SellPriceScalesWithScarcity(t *testing.T) {
	port := &sector.Port{
		Sector:   2,
		Code:     "BSS",
		Capacity: map[shared.Commodity]int{shared.NeuroSymbolics: 100},
		Stock:    map[shared.Commodity]int{shared.NeuroSymbolics: 84},
	}

	// round(40 * (0.75 + 0.35 * sqrt(0.16))) = round(35.6) = 36
	price, ok := port.SellPrice(shared.NeuroSymbolics)
	require.True(t, ok)
	assert.Equal(t, 36, price)

	// An empty port charges the scarcity ceiling
	port.Stock[shared.NeuroSymbolics] = 0
	price, ok = port.SellPrice(shared.NeuroSymbolics)
	require.True(t, ok)
	assert.Equal(t, 44, price)
}

func TestPort_NoPriceOnWrongDirection(t *testing.T) {
	port := &sector.Port{
		Sector:   2,
		Code:     "BSS",
		Capacity: map[shared.Commodity]int{shared.QuantumFoam: 100, shared.NeuroSymbolics: 100},
		Stock:    map[shared.Commodity]int{},
	}

	// The port buys quantum foam, so it never quotes a sell price for it
	_, ok := port.SellPrice(shared.QuantumFoam)
	assert.False(t, ok)

	// And it sells neuro symbolics, so it never quotes a buy price
	_, ok = port.BuyPrice(shared.NeuroSymbolics)
	assert.False(t, ok)
}

func TestPort_BuyPriceAbsentWhenFull(t *testing.T) {
	port := &sector.Port{
		Sector:   2,
		Code:     "BSS",
		Capacity: map[shared.Commodity]int{shared.QuantumFoam: 100},
		Stock:    map[shared.Commodity]int{shared.QuantumFoam: 100},
	}

	_, ok := port.BuyPrice(shared.QuantumFoam)
	assert.False(t, ok)
}

func TestPort_NoPriceWithoutCapacity(t *testing.T) {
	port := &sector.Port{Sector: 2, Code: "SSS"}

	_, ok := port.SellPrice(shared.QuantumFoam)
	assert.False(t, ok)
}

func TestPort_AdjustStockBounds(t *testing.T) {
	port := &sector.Port{
		Sector:   2,
		Code:     "BSS",
		Capacity: map[shared.Commodity]int{shared.QuantumFoam: 100},
		Stock:    map[shared.Commodity]int{shared.QuantumFoam: 95},
	}

	require.NoError(t, port.AdjustStock(shared.QuantumFoam, 5))
	assert.Equal(t, 100, port.Stock[shared.QuantumFoam])

	err := port.AdjustStock(shared.QuantumFoam, 1)
	assert.True(t, shared.IsConflict(err))

	require.NoError(t, port.AdjustStock(shared.QuantumFoam, -100))
	err = port.AdjustStock(shared.QuantumFoam, -1)
	assert.True(t, shared.IsConflict(err))
}

func TestPort_PricesQuotesEveryTradableCommodity(t *testing.T) {
	port := &sector.Port{
		Sector: 2,
		Code:   "BSS",
		Capacity: map[shared.Commodity]int{
			shared.QuantumFoam:    100,
			shared.RetroOrganics:  100,
			shared.NeuroSymbolics: 100,
		},
		Stock: map[shared.Commodity]int{shared.QuantumFoam: 25},
	}

	prices := port.Prices()

	require.Contains(t, prices, shared.QuantumFoam)
	assert.Equal(t, 31, prices[shared.QuantumFoam][sector.PortBuys])
	require.Contains(t, prices, shared.RetroOrganics)
	assert.Equal(t, 11, prices[shared.RetroOrganics][sector.PortSells])
	require.Contains(t, prices, shared.NeuroSymbolics)
	assert.Equal(t, 44, prices[shared.NeuroSymbolics][sector.PortSells])
}
