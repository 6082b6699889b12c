package events

import (
	"context"
	"fmt"
	"time"

	"github.com/andrescamacho/quadrant-go/internal/application/common"
	"github.com/andrescamacho/quadrant-go/internal/domain/event"
	"github.com/andrescamacho/quadrant-go/internal/domain/ports"
	"github.com/andrescamacho/quadrant-go/internal/domain/shared"
)

// QueryEventsCommand is an authenticated range query over the event log
type QueryEventsCommand struct {
	Actor         common.Actor
	Sector        *int
	CorporationID *shared.CorporationID
	Since         *time.Time
	Until         *time.Time
	Limit         int
}

// QueryEventsResponse carries the matching log rows
type QueryEventsResponse struct {
	Events []*event.Record `json:"events"`
}

// QueryEventsHandler serves event_query. Corporation scope requires the
// actor to be a member; admins may query without scope.
type QueryEventsHandler struct {
	log          ports.EventRepository
	corporations ports.CorporationRepository
}

// NewQueryEventsHandler creates the handler
func NewQueryEventsHandler(log ports.EventRepository, corporations ports.CorporationRepository) *QueryEventsHandler {
	return &QueryEventsHandler{log: log, corporations: corporations}
}

// Handle executes the query
func (h *QueryEventsHandler) Handle(ctx context.Context, request common.Request) (common.Response, error) {
	cmd, ok := request.(*QueryEventsCommand)
	if !ok {
		return nil, fmt.Errorf("invalid request type")
	}

	filter := ports.EventFilter{
		Sector: cmd.Sector,
		Since:  cmd.Since,
		Until:  cmd.Until,
		Limit:  cmd.Limit,
	}

	switch {
	case cmd.CorporationID != nil:
		member, err := h.corporations.IsMember(ctx, *cmd.CorporationID, cmd.Actor.CharacterID)
		if err != nil {
			return nil, err
		}
		if !member && !cmd.Actor.Admin {
			return nil, shared.NewAuthError("not a member of the requested corporation")
		}
		filter.CorporationID = cmd.CorporationID
	case cmd.Actor.Admin:
		// Admins may range over the whole log
	default:
		filter.CharacterID = cmd.Actor.CharacterID
	}

	records, err := h.log.Query(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("event query failed: %w", err)
	}
	return &QueryEventsResponse{Events: records}, nil
}
