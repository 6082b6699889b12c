package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/andrescamacho/quadrant-go/internal/adapters/metrics"
	"github.com/andrescamacho/quadrant-go/internal/application/admin"
	"github.com/andrescamacho/quadrant-go/internal/application/chat"
	appcombat "github.com/andrescamacho/quadrant-go/internal/application/combat"
	"github.com/andrescamacho/quadrant-go/internal/application/common"
	appevents "github.com/andrescamacho/quadrant-go/internal/application/events"
	"github.com/andrescamacho/quadrant-go/internal/application/movement"
	"github.com/andrescamacho/quadrant-go/internal/application/starmap"
	"github.com/andrescamacho/quadrant-go/internal/application/trade"
	"github.com/andrescamacho/quadrant-go/internal/application/world"
	"github.com/andrescamacho/quadrant-go/internal/domain/combat"
	"github.com/andrescamacho/quadrant-go/internal/domain/event"
	"github.com/andrescamacho/quadrant-go/internal/domain/garrison"
	"github.com/andrescamacho/quadrant-go/internal/domain/shared"
)

// commandBuilder decodes one endpoint's method-specific fields into its
// command. The actor is already authenticated and authorized.
type commandBuilder func(d *Dispatcher, actor common.Actor, body []byte) (common.Request, error)

// Dispatcher authenticates, rate-limits and routes every endpoint to its
// mediator handler. Failures are returned as typed responses and mirrored
// into the acting character's event stream.
type Dispatcher struct {
	mediator    common.Mediator
	bus         *appevents.Bus
	auth        *Authenticator
	limiter     *RateLimiter
	recorder    *metrics.Recorder
	clock       shared.Clock
	logger      common.GameLogger
	allowLegacy bool
	namespace   uuid.UUID
	builders    map[string]commandBuilder
}

// NewDispatcher creates a dispatcher with the canonical endpoint set
func NewDispatcher(
	mediator common.Mediator,
	bus *appevents.Bus,
	auth *Authenticator,
	limiter *RateLimiter,
	recorder *metrics.Recorder,
	clock shared.Clock,
	logger common.GameLogger,
	allowLegacy bool,
	namespace uuid.UUID,
) *Dispatcher {
	if namespace == uuid.Nil {
		namespace = legacyNamespace
	}
	d := &Dispatcher{
		mediator:    mediator,
		bus:         bus,
		auth:        auth,
		limiter:     limiter,
		recorder:    recorder,
		clock:       clock,
		logger:      logger,
		allowLegacy: allowLegacy,
		namespace:   namespace,
	}
	d.builders = map[string]commandBuilder{
		"join":                     buildJoin,
		"move":                     buildMove,
		"my_status":                buildMyStatus,
		"list_known_ports":         buildListKnownPorts,
		"map_path":                 buildMapPath,
		"bank_transfer":            buildBankTransfer,
		"transfer_credits":         buildTransferCredits,
		"transfer_warp_power":      buildTransferWarpPower,
		"purchase_fighters":        buildPurchaseFighters,
		"ship_purchase":            buildShipPurchase,
		"port_trade":               buildPortTrade,
		"dump_cargo":               buildDumpCargo,
		"salvage_collect":          buildSalvageCollect,
		"send_message":             buildSendMessage,
		"combat_initiate":          buildCombatInitiate,
		"combat_action":            buildCombatAction,
		"combat_tick":              buildCombatTick,
		"combat_leave_fighters":    buildLeaveFighters,
		"combat_set_garrison_mode": buildSetGarrisonMode,
		"event_query":              buildEventQuery,
		"test_reset":               buildTestReset,
		"character_delete":         buildCharacterDelete,
	}
	return d
}

// Methods lists the routable endpoint names
func (d *Dispatcher) Methods() []string {
	names := make([]string, 0, len(d.builders))
	for name := range d.builders {
		names = append(names, name)
	}
	return names
}

// Handler returns the http handler for one endpoint
func (d *Dispatcher) Handler(method string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		started := d.clock.Now()
		status := d.serve(w, r, method)
		if d.recorder != nil {
			d.recorder.ObserveRequest(method, status, d.clock.Now().Sub(started))
		}
	}
}

func (d *Dispatcher) serve(w http.ResponseWriter, r *http.Request, method string) int {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody("method not allowed", ""))
		return http.StatusMethodNotAllowed
	}
	if !d.auth.CheckToken(r) {
		writeJSON(w, http.StatusForbidden, errorBody("invalid api token", ""))
		return http.StatusForbidden
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("unreadable request body", ""))
		return http.StatusBadRequest
	}
	var envelope Envelope
	if len(body) > 0 {
		if err := json.Unmarshal(body, &envelope); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("malformed request body", ""))
			return http.StatusBadRequest
		}
	}

	if envelope.Healthcheck {
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
		return http.StatusOK
	}

	requestID := envelope.RequestID
	if requestID == "" {
		requestID = uuid.NewString()
	}

	characterID, ok := canonicalID(envelope.CharacterID, d.allowLegacy, d.namespace)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("character_id is required", requestID))
		return http.StatusBadRequest
	}
	actorID := characterID
	if envelope.ActorCharacterID != "" {
		actorID, ok = canonicalID(envelope.ActorCharacterID, d.allowLegacy, d.namespace)
		if !ok {
			writeJSON(w, http.StatusBadRequest, errorBody("invalid actor_character_id", requestID))
			return http.StatusBadRequest
		}
	}
	isAdmin := d.auth.CheckAdmin(envelope.AdminOverride)
	if actorID != characterID && !isAdmin {
		writeJSON(w, http.StatusForbidden, errorBody("actor is not authorized for this character", requestID))
		return http.StatusForbidden
	}

	actor := common.Actor{
		CharacterID: shared.CharacterID(characterID),
		RequestID:   requestID,
		Method:      method,
		Admin:       isAdmin,
		At:          d.clock.Now(),
	}
	ctx := common.WithLogger(r.Context(), d.logger)

	if err := d.limiter.Allow(ctx, actor.CharacterID, method); err != nil {
		return d.fail(ctx, w, actor, err)
	}

	builder, ok := d.builders[method]
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody("unknown method", requestID))
		return http.StatusNotFound
	}
	cmd, err := builder(d, actor, body)
	if err != nil {
		return d.fail(ctx, w, actor, err)
	}

	result, err := d.mediator.Send(ctx, cmd)
	if err != nil {
		return d.fail(ctx, w, actor, err)
	}

	writeJSON(w, http.StatusOK, successBody(result, requestID))
	return http.StatusOK
}

// fail writes the typed error response and mirrors it into the event stream
func (d *Dispatcher) fail(ctx context.Context, w http.ResponseWriter, actor common.Actor, err error) int {
	status := shared.HTTPStatus(err)
	if status >= 500 {
		d.logger.Log("ERROR", "request failed", map[string]interface{}{
			"method":     actor.Method,
			"request_id": actor.RequestID,
			"error":      err.Error(),
		})
	}
	source := event.NewRPCSource(actor.Method, actor.RequestID, d.clock.Now())
	d.bus.EmitError(ctx, actor.CharacterID, source, actor.Method, err.Error(), status)
	writeJSON(w, status, errorBody(err.Error(), actor.RequestID))
	return status
}

func decodeBody(body []byte, out interface{}) error {
	if len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return shared.NewValidationError("body", "malformed request fields")
	}
	return nil
}

func buildJoin(d *Dispatcher, actor common.Actor, body []byte) (common.Request, error) {
	var fields struct {
		ShipID string `json:"ship_id"`
		Sector int    `json:"sector"`
	}
	if err := decodeBody(body, &fields); err != nil {
		return nil, err
	}
	if fields.ShipID == "" {
		return nil, shared.NewValidationError("ship_id", "required")
	}
	return &movement.JoinCommand{Actor: actor, ShipID: shared.ShipID(fields.ShipID), Sector: fields.Sector}, nil
}

func buildMove(d *Dispatcher, actor common.Actor, body []byte) (common.Request, error) {
	var fields struct {
		ToSector *int `json:"to_sector"`
	}
	if err := decodeBody(body, &fields); err != nil {
		return nil, err
	}
	if fields.ToSector == nil {
		return nil, shared.NewValidationError("to_sector", "required")
	}
	return &movement.MoveCommand{Actor: actor, ToSector: *fields.ToSector}, nil
}

func buildMyStatus(d *Dispatcher, actor common.Actor, body []byte) (common.Request, error) {
	return &world.MyStatusCommand{Actor: actor}, nil
}

func buildListKnownPorts(d *Dispatcher, actor common.Actor, body []byte) (common.Request, error) {
	var fields struct {
		FromSector int    `json:"from_sector"`
		MaxHops    int    `json:"max_hops"`
		PortCode   string `json:"port_code"`
		Commodity  string `json:"commodity"`
		TradeType  string `json:"trade_type"`
	}
	if err := decodeBody(body, &fields); err != nil {
		return nil, err
	}
	cmd := &starmap.ListKnownPortsCommand{
		Actor:      actor,
		FromSector: fields.FromSector,
		MaxHops:    fields.MaxHops,
		PortCode:   fields.PortCode,
		TradeType:  fields.TradeType,
	}
	if fields.Commodity != "" {
		commodity, err := shared.ParseCommodity(fields.Commodity)
		if err != nil {
			return nil, err
		}
		cmd.Commodity = &commodity
	}
	return cmd, nil
}

func buildMapPath(d *Dispatcher, actor common.Actor, body []byte) (common.Request, error) {
	var fields struct {
		FromSector int  `json:"from_sector"`
		ToSector   *int `json:"to_sector"`
	}
	if err := decodeBody(body, &fields); err != nil {
		return nil, err
	}
	if fields.ToSector == nil {
		return nil, shared.NewValidationError("to_sector", "required")
	}
	return &starmap.MapPathCommand{Actor: actor, FromSector: fields.FromSector, ToSector: *fields.ToSector}, nil
}

func buildBankTransfer(d *Dispatcher, actor common.Actor, body []byte) (common.Request, error) {
	var fields struct {
		Action string `json:"action"`
		Amount int    `json:"amount"`
	}
	if err := decodeBody(body, &fields); err != nil {
		return nil, err
	}
	action, err := trade.ParseBankAction(fields.Action)
	if err != nil {
		return nil, err
	}
	return &trade.BankTransferCommand{Actor: actor, Action: action, Amount: fields.Amount}, nil
}

func buildTransferCredits(d *Dispatcher, actor common.Actor, body []byte) (common.Request, error) {
	recipient, amount, err := decodeTransfer(d, body)
	if err != nil {
		return nil, err
	}
	return &trade.TransferCreditsCommand{Actor: actor, RecipientID: recipient, Amount: amount}, nil
}

func buildTransferWarpPower(d *Dispatcher, actor common.Actor, body []byte) (common.Request, error) {
	recipient, amount, err := decodeTransfer(d, body)
	if err != nil {
		return nil, err
	}
	return &trade.TransferWarpPowerCommand{Actor: actor, RecipientID: recipient, Amount: amount}, nil
}

func decodeTransfer(d *Dispatcher, body []byte) (shared.CharacterID, int, error) {
	var fields struct {
		ToCharacterID string `json:"to_character_id"`
		Amount        int    `json:"amount"`
	}
	if err := decodeBody(body, &fields); err != nil {
		return "", 0, err
	}
	recipient, ok := canonicalID(fields.ToCharacterID, d.allowLegacy, d.namespace)
	if !ok {
		return "", 0, shared.NewValidationError("to_character_id", "required")
	}
	return shared.CharacterID(recipient), fields.Amount, nil
}

func buildPurchaseFighters(d *Dispatcher, actor common.Actor, body []byte) (common.Request, error) {
	var fields struct {
		Count int `json:"count"`
	}
	if err := decodeBody(body, &fields); err != nil {
		return nil, err
	}
	return &trade.PurchaseFightersCommand{Actor: actor, Count: fields.Count}, nil
}

func buildShipPurchase(d *Dispatcher, actor common.Actor, body []byte) (common.Request, error) {
	var fields struct {
		ShipType  string `json:"ship_type"`
		ShipName  string `json:"ship_name"`
		Corporate bool   `json:"corporate"`
	}
	if err := decodeBody(body, &fields); err != nil {
		return nil, err
	}
	if fields.ShipType == "" {
		return nil, shared.NewValidationError("ship_type", "required")
	}
	return &trade.ShipPurchaseCommand{
		Actor:     actor,
		TypeID:    fields.ShipType,
		ShipName:  fields.ShipName,
		Corporate: fields.Corporate,
	}, nil
}

func buildPortTrade(d *Dispatcher, actor common.Actor, body []byte) (common.Request, error) {
	var fields struct {
		Commodity string `json:"commodity"`
		TradeType string `json:"trade_type"`
		Units     int    `json:"units"`
	}
	if err := decodeBody(body, &fields); err != nil {
		return nil, err
	}
	commodity, err := shared.ParseCommodity(fields.Commodity)
	if err != nil {
		return nil, err
	}
	tradeType, err := trade.ParseTradeType(fields.TradeType)
	if err != nil {
		return nil, err
	}
	return &trade.PortTradeCommand{Actor: actor, Commodity: commodity, Type: tradeType, Units: fields.Units}, nil
}

func buildDumpCargo(d *Dispatcher, actor common.Actor, body []byte) (common.Request, error) {
	var fields struct {
		Commodity string `json:"commodity"`
		Units     int    `json:"units"`
	}
	if err := decodeBody(body, &fields); err != nil {
		return nil, err
	}
	commodity, err := shared.ParseCommodity(fields.Commodity)
	if err != nil {
		return nil, err
	}
	return &trade.DumpCargoCommand{Actor: actor, Commodity: commodity, Units: fields.Units}, nil
}

func buildSalvageCollect(d *Dispatcher, actor common.Actor, body []byte) (common.Request, error) {
	var fields struct {
		SalvageID string `json:"salvage_id"`
	}
	if err := decodeBody(body, &fields); err != nil {
		return nil, err
	}
	if fields.SalvageID == "" {
		return nil, shared.NewValidationError("salvage_id", "required")
	}
	return &trade.SalvageCollectCommand{Actor: actor, SalvageID: shared.SalvageID(fields.SalvageID)}, nil
}

func buildSendMessage(d *Dispatcher, actor common.Actor, body []byte) (common.Request, error) {
	var fields struct {
		MessageType string `json:"message_type"`
		ToName      string `json:"to_name"`
		Content     string `json:"content"`
	}
	if err := decodeBody(body, &fields); err != nil {
		return nil, err
	}
	messageType, err := chat.ParseMessageType(fields.MessageType)
	if err != nil {
		return nil, err
	}
	return &chat.SendMessageCommand{Actor: actor, Type: messageType, ToName: fields.ToName, Content: fields.Content}, nil
}

func buildCombatInitiate(d *Dispatcher, actor common.Actor, body []byte) (common.Request, error) {
	return &appcombat.InitiateCommand{Actor: actor}, nil
}

func buildCombatAction(d *Dispatcher, actor common.Actor, body []byte) (common.Request, error) {
	var fields struct {
		CombatID    string  `json:"combat_id"`
		Action      string  `json:"action"`
		Commit      int     `json:"commit"`
		TargetID    *string `json:"target_id"`
		Destination *int    `json:"destination_sector"`
	}
	if err := decodeBody(body, &fields); err != nil {
		return nil, err
	}
	if fields.CombatID == "" {
		return nil, shared.NewValidationError("combat_id", "required")
	}
	action, err := combat.ParseActionKind(fields.Action)
	if err != nil {
		return nil, err
	}
	cmd := &appcombat.ActionCommand{
		Actor:       actor,
		CombatID:    shared.CombatID(fields.CombatID),
		Action:      action,
		Commit:      fields.Commit,
		Destination: fields.Destination,
	}
	if fields.TargetID != nil {
		target := combat.CombatantID(*fields.TargetID)
		cmd.TargetID = &target
	}
	return cmd, nil
}

func buildCombatTick(d *Dispatcher, actor common.Actor, body []byte) (common.Request, error) {
	return &appcombat.TickCommand{Actor: actor}, nil
}

func buildLeaveFighters(d *Dispatcher, actor common.Actor, body []byte) (common.Request, error) {
	var fields struct {
		Count      int    `json:"count"`
		Mode       string `json:"mode"`
		TollAmount int    `json:"toll_amount"`
	}
	if err := decodeBody(body, &fields); err != nil {
		return nil, err
	}
	mode, err := garrison.ParseMode(fields.Mode)
	if err != nil {
		return nil, err
	}
	return &appcombat.LeaveFightersCommand{
		Actor:      actor,
		Count:      fields.Count,
		Mode:       mode,
		TollAmount: fields.TollAmount,
	}, nil
}

func buildSetGarrisonMode(d *Dispatcher, actor common.Actor, body []byte) (common.Request, error) {
	var fields struct {
		Sector     int    `json:"sector"`
		Mode       string `json:"mode"`
		TollAmount int    `json:"toll_amount"`
	}
	if err := decodeBody(body, &fields); err != nil {
		return nil, err
	}
	mode, err := garrison.ParseMode(fields.Mode)
	if err != nil {
		return nil, err
	}
	return &appcombat.SetGarrisonModeCommand{
		Actor:      actor,
		Sector:     fields.Sector,
		Mode:       mode,
		TollAmount: fields.TollAmount,
	}, nil
}

func buildEventQuery(d *Dispatcher, actor common.Actor, body []byte) (common.Request, error) {
	var fields struct {
		Sector        *int   `json:"sector"`
		CorporationID string `json:"corporation_id"`
		Since         string `json:"since"`
		Until         string `json:"until"`
		Limit         int    `json:"limit"`
	}
	if err := decodeBody(body, &fields); err != nil {
		return nil, err
	}
	cmd := &appevents.QueryEventsCommand{
		Actor:  actor,
		Sector: fields.Sector,
		Limit:  fields.Limit,
	}
	if fields.CorporationID != "" {
		corpID := shared.CorporationID(fields.CorporationID)
		cmd.CorporationID = &corpID
	}
	if fields.Since != "" {
		since, err := time.Parse(time.RFC3339, fields.Since)
		if err != nil {
			return nil, shared.NewValidationError("since", "must be RFC3339")
		}
		cmd.Since = &since
	}
	if fields.Until != "" {
		until, err := time.Parse(time.RFC3339, fields.Until)
		if err != nil {
			return nil, shared.NewValidationError("until", "must be RFC3339")
		}
		cmd.Until = &until
	}
	return cmd, nil
}

func buildTestReset(d *Dispatcher, actor common.Actor, body []byte) (common.Request, error) {
	return &admin.TestResetCommand{Actor: actor}, nil
}

func buildCharacterDelete(d *Dispatcher, actor common.Actor, body []byte) (common.Request, error) {
	var fields struct {
		TargetCharacterID string `json:"target_character_id"`
	}
	if err := decodeBody(body, &fields); err != nil {
		return nil, err
	}
	target, ok := canonicalID(fields.TargetCharacterID, d.allowLegacy, d.namespace)
	if !ok {
		return nil, shared.NewValidationError("target_character_id", "required")
	}
	return &admin.CharacterDeleteCommand{Actor: actor, TargetID: shared.CharacterID(target)}, nil
}
