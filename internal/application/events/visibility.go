package events

import (
	"context"
	"fmt"
	"sort"

	"github.com/andrescamacho/quadrant-go/internal/domain/event"
	"github.com/andrescamacho/quadrant-go/internal/domain/ports"
	"github.com/andrescamacho/quadrant-go/internal/domain/shared"
)

// Recipients is a computed delivery set: persisted character rows plus the
// realtime topics to publish on
type Recipients struct {
	Characters []event.Recipient
	Topics     []string
}

// Visibility computes who receives an event for each scope kind
type Visibility struct {
	characters   ports.CharacterRepository
	garrisons    ports.GarrisonRepository
	corporations ports.CorporationRepository
	observers    *ObserverCache
}

// NewVisibility creates the recipient resolver
func NewVisibility(
	characters ports.CharacterRepository,
	garrisons ports.GarrisonRepository,
	corporations ports.CorporationRepository,
	observers *ObserverCache,
) *Visibility {
	return &Visibility{
		characters:   characters,
		garrisons:    garrisons,
		corporations: corporations,
		observers:    observers,
	}
}

// Resolve computes the recipient set for an event with the given scope and
// originator. Duplicates collapse set-wise; the originator is excluded from
// sector scope unless the scope includes them explicitly.
func (v *Visibility) Resolve(ctx context.Context, scope event.Scope, originator shared.CharacterID) (*Recipients, error) {
	switch scope.Kind {
	case event.ScopeCharacter:
		return v.characterScope(scope, originator), nil
	case event.ScopeSector:
		return v.sectorScope(ctx, scope, originator)
	case event.ScopeCorporation:
		return v.corporationScope(ctx, scope, originator)
	case event.ScopeBroadcast:
		// Realtime-topic only; no per-character persistence rows
		return &Recipients{Topics: []string{event.BroadcastTopic}}, nil
	default:
		return nil, shared.NewValidationError("scope", fmt.Sprintf("unknown scope kind %q", scope.Kind))
	}
}

func (v *Visibility) characterScope(scope event.Scope, originator shared.CharacterID) *Recipients {
	reason := event.ReasonRecipient
	if scope.CharacterID == originator {
		reason = event.ReasonSelf
	}
	return &Recipients{
		Characters: []event.Recipient{{CharacterID: scope.CharacterID, Reason: reason}},
		Topics:     []string{event.CharacterTopic(scope.CharacterID)},
	}
}

// sectorScope delivers to co-located pilots, members of corporations owning
// a garrison in the sector, and the sector's cached observer channels
func (v *Visibility) sectorScope(ctx context.Context, scope event.Scope, originator shared.CharacterID) (*Recipients, error) {
	reasons := map[shared.CharacterID]event.Reason{}

	present, err := v.characters.ListInSector(ctx, scope.Sector)
	if err != nil {
		return nil, fmt.Errorf("failed to list sector %d pilots: %w", scope.Sector, err)
	}
	for _, pilot := range present {
		reasons[pilot.ID] = event.ReasonSector
	}

	stacks, err := v.garrisons.ListBySector(ctx, scope.Sector)
	if err != nil {
		return nil, fmt.Errorf("failed to list sector %d garrisons: %w", scope.Sector, err)
	}
	for _, stack := range stacks {
		owner, err := v.characters.FindByID(ctx, stack.Owner)
		if err != nil {
			continue
		}
		if _, ok := reasons[owner.ID]; !ok {
			reasons[owner.ID] = event.ReasonCorp
		}
		if owner.CorporationID == nil {
			continue
		}
		members, err := v.characters.ListByCorporation(ctx, *owner.CorporationID)
		if err != nil {
			continue
		}
		for _, member := range members {
			if _, ok := reasons[member.ID]; !ok {
				reasons[member.ID] = event.ReasonCorp
			}
		}
	}

	if !scope.IncludeOrigin {
		delete(reasons, originator)
	} else if _, ok := reasons[originator]; ok {
		reasons[originator] = event.ReasonSelf
	}

	recipients := &Recipients{Topics: []string{event.SectorTopic(scope.Sector)}}
	for _, id := range sortedCharacterIDs(reasons) {
		recipients.Characters = append(recipients.Characters, event.Recipient{CharacterID: id, Reason: reasons[id]})
		recipients.Topics = append(recipients.Topics, event.CharacterTopic(id))
	}

	channels, err := v.observers.ChannelsForSector(ctx, scope.Sector)
	if err == nil {
		recipients.Topics = append(recipients.Topics, channels...)
	}

	return recipients, nil
}

func (v *Visibility) corporationScope(ctx context.Context, scope event.Scope, originator shared.CharacterID) (*Recipients, error) {
	members, err := v.characters.ListByCorporation(ctx, scope.CorporationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list corporation members: %w", err)
	}
	reasons := map[shared.CharacterID]event.Reason{}
	for _, member := range members {
		reason := event.ReasonCorp
		if member.ID == originator {
			reason = event.ReasonSelf
		}
		reasons[member.ID] = reason
	}
	recipients := &Recipients{}
	for _, id := range sortedCharacterIDs(reasons) {
		recipients.Characters = append(recipients.Characters, event.Recipient{CharacterID: id, Reason: reasons[id]})
		recipients.Topics = append(recipients.Topics, event.CharacterTopic(id))
	}
	return recipients, nil
}

func sortedCharacterIDs(m map[shared.CharacterID]event.Reason) []shared.CharacterID {
	ids := make([]shared.CharacterID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
