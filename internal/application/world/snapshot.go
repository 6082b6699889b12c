package world

import (
	"context"
	"fmt"

	"github.com/andrescamacho/quadrant-go/internal/domain/character"
	"github.com/andrescamacho/quadrant-go/internal/domain/ports"
	"github.com/andrescamacho/quadrant-go/internal/domain/sector"
	"github.com/andrescamacho/quadrant-go/internal/domain/shared"
	"github.com/andrescamacho/quadrant-go/internal/domain/ship"
)

// PortView is a port with its computed current prices
type PortView struct {
	Code   string                                             `json:"code"`
	Stock  map[shared.Commodity]int                           `json:"stock"`
	Prices map[shared.Commodity]map[sector.TradeDirection]int `json:"prices"`
}

// PilotView is a co-located character rendered for a snapshot
type PilotView struct {
	CharacterID shared.CharacterID `json:"character_id"`
	Name        string             `json:"name"`
	ShipName    string             `json:"ship_name"`
	ShipType    string             `json:"ship_type"`
}

// GarrisonView renders a deployed stack
type GarrisonView struct {
	Owner      shared.CharacterID `json:"owner_character_id"`
	OwnerName  string             `json:"owner_name"`
	Fighters   int                `json:"fighters"`
	Mode       string             `json:"mode"`
	TollAmount int                `json:"toll_amount"`
}

// SalvageView renders a drifting container
type SalvageView struct {
	ID      shared.SalvageID `json:"id"`
	Cargo   shared.CargoMap  `json:"cargo"`
	Scrap   int              `json:"scrap"`
	Credits int              `json:"credits"`
}

// ShipView renders an unowned hull visible in a sector
type ShipView struct {
	ID   shared.ShipID `json:"id"`
	Name string        `json:"name"`
	Type string        `json:"type"`
}

// SectorSnapshot is the rendered view of one sector: adjacency, position,
// port with prices, co-located pilots, garrisons, salvage, derelicts.
type SectorSnapshot struct {
	ID           int              `json:"id"`
	X            int              `json:"x"`
	Y            int              `json:"y"`
	Region       string           `json:"region"`
	Adjacent     []int            `json:"adjacent_sectors"`
	Port         *PortView        `json:"port,omitempty"`
	Pilots       []PilotView      `json:"pilots"`
	Garrisons    []GarrisonView   `json:"garrisons"`
	Salvage      []SalvageView    `json:"salvage"`
	UnownedShips []ShipView       `json:"unowned_ships"`
	ActiveCombat *shared.CombatID `json:"active_combat,omitempty"`
}

// StatusPayload is the full self-view for a pilot
type StatusPayload struct {
	CharacterID   shared.CharacterID    `json:"character_id"`
	Name          string                `json:"name"`
	Bank          int                   `json:"bank"`
	CorporationID *shared.CorporationID `json:"corporation_id,omitempty"`
	Ship          StatusShip            `json:"ship"`
	Sector        *SectorSnapshot       `json:"sector,omitempty"`
	TotalVisited  int                   `json:"total_visited"`
}

// StatusShip is the pilot's own ship rendered for status events
type StatusShip struct {
	ID          shared.ShipID   `json:"id"`
	Name        string          `json:"name"`
	Type        string          `json:"type"`
	Sector      *int            `json:"sector"`
	InTransit   bool            `json:"in_transit"`
	Credits     int             `json:"credits"`
	Cargo       shared.CargoMap `json:"cargo"`
	WarpPower   int             `json:"warp_power"`
	Shields     int             `json:"shields"`
	Fighters    int             `json:"fighters"`
	IsEscapePod bool            `json:"is_escape_pod"`
}

// Snapshotter composes the compound reads every endpoint leans on
type Snapshotter struct {
	sectors    ports.SectorRepository
	portsRepo  ports.PortRepository
	characters ports.CharacterRepository
	ships      ports.ShipRepository
	garrisons  ports.GarrisonRepository
	salvage    ports.SalvageRepository
	encounters ports.EncounterRepository
	knowledge  ports.MapKnowledgeRepository
}

// NewSnapshotter creates the compound-read service
func NewSnapshotter(
	sectors ports.SectorRepository,
	portsRepo ports.PortRepository,
	characters ports.CharacterRepository,
	ships ports.ShipRepository,
	garrisons ports.GarrisonRepository,
	salvage ports.SalvageRepository,
	encounters ports.EncounterRepository,
	knowledge ports.MapKnowledgeRepository,
) *Snapshotter {
	return &Snapshotter{
		sectors:    sectors,
		portsRepo:  portsRepo,
		characters: characters,
		ships:      ships,
		garrisons:  garrisons,
		salvage:    salvage,
		encounters: encounters,
		knowledge:  knowledge,
	}
}

// SectorSnapshot renders a sector. When viewer is non-empty that character
// is excluded from the co-located pilot list.
func (s *Snapshotter) SectorSnapshot(ctx context.Context, sectorID int, viewer shared.CharacterID) (*SectorSnapshot, error) {
	sec, err := s.sectors.FindByID(ctx, sectorID)
	if err != nil {
		return nil, err
	}

	snapshot := &SectorSnapshot{
		ID:           sec.ID,
		X:            sec.X,
		Y:            sec.Y,
		Region:       sec.Region,
		Adjacent:     sec.AdjacentIDs(),
		Pilots:       []PilotView{},
		Garrisons:    []GarrisonView{},
		Salvage:      []SalvageView{},
		UnownedShips: []ShipView{},
	}

	if port, err := s.portsRepo.FindBySector(ctx, sectorID); err == nil && port != nil {
		snapshot.Port = &PortView{
			Code:   port.Code,
			Stock:  port.Stock,
			Prices: port.Prices(),
		}
	}

	pilots, err := s.characters.ListInSector(ctx, sectorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pilots in sector %d: %w", sectorID, err)
	}
	for _, pilot := range pilots {
		if pilot.ID == viewer {
			continue
		}
		view := PilotView{CharacterID: pilot.ID, Name: pilot.Name}
		if pilotShip, err := s.ships.FindByID(ctx, pilot.ShipID); err == nil {
			view.ShipName = pilotShip.Name
			view.ShipType = pilotShip.TypeID
		}
		snapshot.Pilots = append(snapshot.Pilots, view)
	}

	stacks, err := s.garrisons.ListBySector(ctx, sectorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list garrisons in sector %d: %w", sectorID, err)
	}
	for _, stack := range stacks {
		view := GarrisonView{
			Owner:      stack.Owner,
			Fighters:   stack.Fighters,
			Mode:       string(stack.Mode),
			TollAmount: stack.TollAmount,
		}
		if owner, err := s.characters.FindByID(ctx, stack.Owner); err == nil {
			view.OwnerName = owner.Name
		}
		snapshot.Garrisons = append(snapshot.Garrisons, view)
	}

	containers, err := s.salvage.ListBySector(ctx, sectorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list salvage in sector %d: %w", sectorID, err)
	}
	for _, container := range containers {
		if container.Claimed {
			continue
		}
		snapshot.Salvage = append(snapshot.Salvage, SalvageView{
			ID:      container.ID,
			Cargo:   container.Cargo,
			Scrap:   container.Scrap,
			Credits: container.Credits,
		})
	}

	derelicts, err := s.ships.ListUnownedInSector(ctx, sectorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list unowned ships in sector %d: %w", sectorID, err)
	}
	for _, derelict := range derelicts {
		snapshot.UnownedShips = append(snapshot.UnownedShips, ShipView{
			ID:   derelict.ID,
			Name: derelict.Name,
			Type: derelict.TypeID,
		})
	}

	if enc, err := s.encounters.FindActiveBySector(ctx, sectorID); err == nil && enc != nil {
		id := enc.CombatID
		snapshot.ActiveCombat = &id
	}

	return snapshot, nil
}

// StatusPayload renders the full self-view for a pilot
func (s *Snapshotter) StatusPayload(ctx context.Context, c *character.Character, pilotShip *ship.Ship) (*StatusPayload, error) {
	payload := &StatusPayload{
		CharacterID:   c.ID,
		Name:          c.Name,
		Bank:          c.Bank,
		CorporationID: c.CorporationID,
		Ship: StatusShip{
			ID:          pilotShip.ID,
			Name:        pilotShip.Name,
			Type:        pilotShip.TypeID,
			Sector:      pilotShip.Sector,
			InTransit:   pilotShip.InTransit,
			Credits:     pilotShip.Credits,
			Cargo:       pilotShip.Cargo,
			WarpPower:   pilotShip.WarpPower,
			Shields:     pilotShip.Shields,
			Fighters:    pilotShip.Fighters,
			IsEscapePod: pilotShip.IsEscapePod,
		},
	}

	if pilotShip.Sector != nil {
		snapshot, err := s.SectorSnapshot(ctx, *pilotShip.Sector, c.ID)
		if err != nil {
			return nil, err
		}
		payload.Sector = snapshot
	}

	if knowledge, err := s.knowledge.Find(ctx, c.ID); err == nil && knowledge != nil {
		payload.TotalVisited = knowledge.TotalVisited
	}

	return payload, nil
}
