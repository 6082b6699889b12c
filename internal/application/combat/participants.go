package combat

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/andrescamacho/quadrant-go/internal/domain/character"
	"github.com/andrescamacho/quadrant-go/internal/domain/combat"
	"github.com/andrescamacho/quadrant-go/internal/domain/garrison"
	"github.com/andrescamacho/quadrant-go/internal/domain/shared"
	"github.com/andrescamacho/quadrant-go/internal/domain/ship"
)

// characterCombatant builds the encounter view of a landed pilot
func characterCombatant(pilot *character.Character, pilotShip *ship.Ship, def *ship.Definition) *combat.CombatantState {
	shipType := pilotShip.TypeID
	return &combat.CombatantState{
		ID:            combat.CombatantID(pilot.ID),
		Kind:          combat.KindCharacter,
		Name:          pilot.Name,
		Fighters:      pilotShip.Fighters,
		Shields:       pilotShip.Shields,
		MaxFighters:   def.FighterCapacity,
		MaxShields:    def.ShieldCapacity,
		TurnsPerWarp:  def.TurnsPerWarp,
		ShipType:      &shipType,
		OwnerID:       pilot.ID,
		CorporationID: pilot.CorporationID,
		IsEscapePod:   pilotShip.IsEscapePod,
		Metadata:      map[string]interface{}{},
	}
}

// garrisonCombatant builds the encounter view of a deployed fighter stack.
// Mode and toll amount ride in metadata for the garrison AI.
func garrisonCombatant(g *garrison.Garrison, ownerCorp *shared.CorporationID) *combat.CombatantState {
	return &combat.CombatantState{
		ID:            combat.CombatantID(g.CombatantID()),
		Kind:          combat.KindGarrison,
		Name:          fmt.Sprintf("Garrison (%s)", g.Mode),
		Fighters:      g.Fighters,
		Shields:       0,
		MaxFighters:   g.Fighters,
		OwnerID:       g.Owner,
		CorporationID: ownerCorp,
		Metadata: map[string]interface{}{
			"mode":        string(g.Mode),
			"toll_amount": g.TollAmount,
		},
	}
}

// parseGarrisonCombatantID splits "garrison:<sector>:<owner>" back into its
// primary key parts
func parseGarrisonCombatantID(id combat.CombatantID) (int, shared.CharacterID, bool) {
	parts := strings.SplitN(string(id), ":", 3)
	if len(parts) != 3 || parts[0] != "garrison" {
		return 0, "", false
	}
	sectorID, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, "", false
	}
	return sectorID, shared.CharacterID(parts[2]), true
}

// combatantSummaries renders the participant list for waiting/resolved events
func combatantSummaries(enc *combat.Encounter) []map[string]interface{} {
	participants := append(enc.Characters(), enc.Garrisons()...)
	out := make([]map[string]interface{}, 0, len(participants))
	for _, p := range participants {
		out = append(out, map[string]interface{}{
			"id":       p.ID,
			"kind":     string(p.Kind),
			"name":     p.Name,
			"fighters": p.Fighters,
			"shields":  p.Shields,
		})
	}
	return out
}
