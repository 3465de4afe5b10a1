// Package api exposes the room operations over HTTP. Requests and
// responses are small JSON envelopes; failures carry a stable machine
// code plus a human-readable reason from the message catalog.
package api

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/dannynguyen57/Chameleon-X-sub000/internal/game"
	"github.com/dannynguyen57/Chameleon-X-sub000/internal/msgcat"
	"github.com/dannynguyen57/Chameleon-X-sub000/internal/obslog"
	"github.com/dannynguyen57/Chameleon-X-sub000/internal/room"
	"github.com/dannynguyen57/Chameleon-X-sub000/internal/words"
	"github.com/dannynguyen57/Chameleon-X-sub000/pkg/gamedto"
)

type Server struct {
	mgr    *room.Manager
	cat    *words.Catalog
	msgs   *msgcat.Catalog
	now    func() time.Time
	server *fasthttp.Server
}

func NewServer(mgr *room.Manager, cat *words.Catalog, msgs *msgcat.Catalog) *Server {
	s := &Server{
		mgr:  mgr,
		cat:  cat,
		msgs: msgs,
		now:  time.Now,
	}
	s.server = &fasthttp.Server{
		Handler:            s.route,
		Name:               "chameleon",
		ReadTimeout:        10 * time.Second,
		WriteTimeout:       10 * time.Second,
		MaxRequestBodySize: 64 * 1024,
	}
	return s
}

func (s *Server) ListenAndServe(addr string) error {
	obslog.L().Info("api_listen", zap.String("addr", addr))
	return s.server.ListenAndServe(addr)
}

func (s *Server) Shutdown() error { return s.server.Shutdown() }

func (s *Server) route(ctx *fasthttp.RequestCtx) {
	path := string(ctx.Path())
	method := string(ctx.Method())

	switch {
	case path == "/healthz" && method == fasthttp.MethodGet:
		writeOK(ctx, map[string]any{"status": "up"})
	case path == "/v1/categories" && method == fasthttp.MethodGet:
		writeOK(ctx, map[string]any{"categories": s.cat.Categories()})
	case path == "/v1/rooms" && method == fasthttp.MethodPost:
		s.handleCreate(ctx)
	case strings.HasPrefix(path, "/v1/rooms/"):
		s.routeRoom(ctx, strings.TrimPrefix(path, "/v1/rooms/"), method)
	default:
		ctx.SetStatusCode(fasthttp.StatusNotFound)
		writeErr(ctx, "not_found", "no such route")
	}
}

func (s *Server) routeRoom(ctx *fasthttp.RequestCtx, rest, method string) {
	roomID, action, _ := strings.Cut(rest, "/")
	roomID = strings.ToUpper(strings.TrimSpace(roomID))
	if roomID == "" {
		ctx.SetStatusCode(fasthttp.StatusNotFound)
		writeErr(ctx, "not_found", "no such route")
		return
	}

	if action == "" && method == fasthttp.MethodGet {
		s.handleView(ctx, roomID)
		return
	}
	if method != fasthttp.MethodPost {
		ctx.SetStatusCode(fasthttp.StatusMethodNotAllowed)
		writeErr(ctx, "method_not_allowed", "use POST")
		return
	}

	switch action {
	case "join":
		s.handleJoin(ctx, roomID)
	case "leave":
		s.handleLeave(ctx, roomID)
	case "ready":
		s.handleReady(ctx, roomID)
	case "start":
		s.handleStart(ctx, roomID)
	case "category":
		s.handleCategory(ctx, roomID)
	case "description":
		s.handleDescription(ctx, roomID)
	case "vote":
		s.handleVote(ctx, roomID)
	case "ability":
		s.handleAbility(ctx, roomID)
	case "advance":
		s.handleAdvance(ctx, roomID)
	case "reset":
		s.handleReset(ctx, roomID)
	default:
		ctx.SetStatusCode(fasthttp.StatusNotFound)
		writeErr(ctx, "not_found", "no such route")
	}
}

type createRequest struct {
	HostName string `json:"host_name"`
	Settings *struct {
		MaxPlayers        int   `json:"max_players"`
		MaxRounds         int   `json:"max_rounds"`
		PresentingSeconds int   `json:"presenting_seconds"`
		DiscussionSeconds int   `json:"discussion_seconds"`
		VotingSeconds     int   `json:"voting_seconds"`
		SpecialAbilities  *bool `json:"special_abilities"`
	} `json:"settings"`
}

func (s *Server) handleCreate(ctx *fasthttp.RequestCtx) {
	var req createRequest
	if !s.decode(ctx, &req) {
		return
	}
	if strings.TrimSpace(req.HostName) == "" {
		ctx.SetStatusCode(fasthttp.StatusBadRequest)
		writeErr(ctx, "bad_request", "host_name is required")
		return
	}

	settings := game.DefaultSettings()
	if o := req.Settings; o != nil {
		if o.MaxPlayers > 0 {
			settings.MaxPlayers = o.MaxPlayers
		}
		if o.MaxRounds > 0 {
			settings.MaxRounds = o.MaxRounds
		}
		if o.PresentingSeconds > 0 {
			settings.PresentingSeconds = o.PresentingSeconds
		}
		if o.DiscussionSeconds > 0 {
			settings.DiscussionSeconds = o.DiscussionSeconds
		}
		if o.VotingSeconds > 0 {
			settings.VotingSeconds = o.VotingSeconds
		}
		if o.SpecialAbilities != nil {
			settings.SpecialAbilities = *o.SpecialAbilities
		}
	}

	snap, err := s.mgr.CreateRoom(ctx, strings.TrimSpace(req.HostName), settings)
	if err != nil {
		s.fail(ctx, err, nil)
		return
	}
	hostID := ""
	for _, p := range snap.Players {
		if p.IsHost {
			hostID = p.ID
		}
	}
	writeOK(ctx, map[string]any{
		"room_id":   snap.Room.ID,
		"player_id": hostID,
		"room":      gamedto.BuildRoomView(snap, hostID, s.now()),
	})
}

func (s *Server) handleJoin(ctx *fasthttp.RequestCtx, roomID string) {
	var req struct {
		Name string `json:"name"`
	}
	if !s.decode(ctx, &req) {
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		ctx.SetStatusCode(fasthttp.StatusBadRequest)
		writeErr(ctx, "bad_request", "name is required")
		return
	}
	playerID, snap, err := s.mgr.JoinRoom(ctx, roomID, strings.TrimSpace(req.Name))
	if err != nil {
		s.fail(ctx, err, nil)
		return
	}
	writeOK(ctx, map[string]any{
		"player_id": playerID,
		"room":      gamedto.BuildRoomView(snap, playerID, s.now()),
	})
}

func (s *Server) handleLeave(ctx *fasthttp.RequestCtx, roomID string) {
	var req struct {
		PlayerID string `json:"player_id"`
	}
	if !s.decode(ctx, &req) {
		return
	}
	if err := s.mgr.LeaveRoom(ctx, roomID, req.PlayerID); err != nil {
		s.fail(ctx, err, nil)
		return
	}
	writeOK(ctx, nil)
}

func (s *Server) handleReady(ctx *fasthttp.RequestCtx, roomID string) {
	var req struct {
		PlayerID string `json:"player_id"`
		Ready    *bool  `json:"ready"`
	}
	if !s.decode(ctx, &req) {
		return
	}
	ready := true
	if req.Ready != nil {
		ready = *req.Ready
	}
	if err := s.mgr.SetReady(ctx, roomID, req.PlayerID, ready); err != nil {
		s.fail(ctx, err, nil)
		return
	}
	writeOK(ctx, nil)
}

func (s *Server) handleStart(ctx *fasthttp.RequestCtx, roomID string) {
	var req struct {
		PlayerID string `json:"player_id"`
	}
	if !s.decode(ctx, &req) {
		return
	}
	if err := s.mgr.StartGame(ctx, roomID, req.PlayerID); err != nil {
		s.fail(ctx, err, nil)
		return
	}
	writeOK(ctx, nil)
}

func (s *Server) handleCategory(ctx *fasthttp.RequestCtx, roomID string) {
	var req struct {
		PlayerID string `json:"player_id"`
		Category string `json:"category"`
	}
	if !s.decode(ctx, &req) {
		return
	}
	if err := s.mgr.SelectCategory(ctx, roomID, req.PlayerID, req.Category); err != nil {
		s.fail(ctx, err, map[string]any{"Category": req.Category})
		return
	}
	writeOK(ctx, nil)
}

func (s *Server) handleDescription(ctx *fasthttp.RequestCtx, roomID string) {
	var req struct {
		PlayerID string `json:"player_id"`
		Text     string `json:"text"`
	}
	if !s.decode(ctx, &req) {
		return
	}
	if err := s.mgr.SubmitDescription(ctx, roomID, req.PlayerID, req.Text); err != nil {
		s.fail(ctx, err, nil)
		return
	}
	writeOK(ctx, nil)
}

func (s *Server) handleVote(ctx *fasthttp.RequestCtx, roomID string) {
	var req struct {
		PlayerID string `json:"player_id"`
		TargetID string `json:"target_id"`
	}
	if !s.decode(ctx, &req) {
		return
	}
	if err := s.mgr.CastVote(ctx, roomID, req.PlayerID, req.TargetID); err != nil {
		s.fail(ctx, err, nil)
		return
	}
	writeOK(ctx, nil)
}

func (s *Server) handleAbility(ctx *fasthttp.RequestCtx, roomID string) {
	var req struct {
		PlayerID string `json:"player_id"`
		TargetID string `json:"target_id"`
	}
	if !s.decode(ctx, &req) {
		return
	}
	revealed, err := s.mgr.UseAbility(ctx, roomID, req.PlayerID, req.TargetID)
	if err != nil {
		s.fail(ctx, err, nil)
		return
	}
	body := map[string]any{}
	if revealed != "" {
		body["revealed_role"] = string(revealed)
	}
	writeOK(ctx, body)
}

func (s *Server) handleAdvance(ctx *fasthttp.RequestCtx, roomID string) {
	var req struct {
		PlayerID string `json:"player_id"`
	}
	if !s.decode(ctx, &req) {
		return
	}
	if err := s.mgr.AdvancePhase(ctx, roomID, req.PlayerID); err != nil {
		s.fail(ctx, err, nil)
		return
	}
	writeOK(ctx, nil)
}

func (s *Server) handleReset(ctx *fasthttp.RequestCtx, roomID string) {
	var req struct {
		PlayerID string `json:"player_id"`
	}
	if !s.decode(ctx, &req) {
		return
	}
	if err := s.mgr.ResetRoom(ctx, roomID, req.PlayerID); err != nil {
		s.fail(ctx, err, nil)
		return
	}
	writeOK(ctx, nil)
}

func (s *Server) handleView(ctx *fasthttp.RequestCtx, roomID string) {
	viewerID := string(ctx.QueryArgs().Peek("player"))
	snap, err := s.mgr.View(ctx, roomID)
	if err != nil {
		s.fail(ctx, err, nil)
		return
	}
	writeOK(ctx, map[string]any{"room": gamedto.BuildRoomView(snap, viewerID, s.now())})
}

func (s *Server) decode(ctx *fasthttp.RequestCtx, out any) bool {
	if err := json.Unmarshal(ctx.PostBody(), out); err != nil {
		ctx.SetStatusCode(fasthttp.StatusBadRequest)
		writeErr(ctx, "bad_request", "malformed JSON body")
		return false
	}
	return true
}

// failCodes maps domain errors to HTTP status plus message catalog key.
var failCodes = []struct {
	err    error
	status int
	code   string
}{
	{room.ErrRoomNotFound, fasthttp.StatusNotFound, "room_not_found"},
	{room.ErrRoomFull, fasthttp.StatusConflict, "room_full"},
	{room.ErrNameTaken, fasthttp.StatusConflict, "name_taken"},
	{room.ErrInvalidName, fasthttp.StatusUnprocessableEntity, "invalid_name"},
	{room.ErrGameInProgress, fasthttp.StatusConflict, "game_in_progress"},
	{room.ErrNotHost, fasthttp.StatusForbidden, "not_host"},
	{room.ErrNotInRoom, fasthttp.StatusForbidden, "not_in_room"},
	{room.ErrNotYourTurn, fasthttp.StatusConflict, "not_your_turn"},
	{room.ErrAlreadySubmitted, fasthttp.StatusConflict, "already_submitted"},
	{room.ErrAlreadyVoted, fasthttp.StatusConflict, "already_voted"},
	{room.ErrSelfVote, fasthttp.StatusUnprocessableEntity, "self_vote"},
	{room.ErrTargetProtected, fasthttp.StatusUnprocessableEntity, "target_protected"},
	{room.ErrUnknownCategory, fasthttp.StatusUnprocessableEntity, "unknown_category"},
	{game.ErrWrongPhase, fasthttp.StatusConflict, "wrong_phase"},
	{game.ErrNotEnoughPlayers, fasthttp.StatusConflict, "not_enough_players"},
	{game.ErrNotAllReady, fasthttp.StatusConflict, "not_all_ready"},
	{game.ErrNoWords, fasthttp.StatusUnprocessableEntity, "no_words"},
	{game.ErrNoAbility, fasthttp.StatusForbidden, "no_ability"},
	{game.ErrAbilityUsed, fasthttp.StatusConflict, "ability_used"},
	{game.ErrInvalidTarget, fasthttp.StatusUnprocessableEntity, "invalid_target"},
}

func (s *Server) fail(ctx *fasthttp.RequestCtx, err error, data map[string]any) {
	for _, fc := range failCodes {
		if errors.Is(err, fc.err) {
			ctx.SetStatusCode(fc.status)
			writeErr(ctx, fc.code, s.reason(fc.code, data))
			return
		}
	}
	obslog.L().Error("api_internal_error", zap.Error(err))
	ctx.SetStatusCode(fasthttp.StatusInternalServerError)
	writeErr(ctx, "storage", s.reason("storage", nil))
}

func (s *Server) reason(code string, data map[string]any) string {
	if data == nil {
		data = map[string]any{}
	}
	if _, ok := data["Min"]; !ok {
		data["Min"] = game.MinPlayers
	}
	msg, err := s.msgs.Render("err."+code, data)
	if err != nil {
		return code
	}
	return msg
}

func writeOK(ctx *fasthttp.RequestCtx, body map[string]any) {
	if body == nil {
		body = map[string]any{}
	}
	body["ok"] = true
	writeJSON(ctx, body)
}

func writeErr(ctx *fasthttp.RequestCtx, code, reason string) {
	writeJSON(ctx, map[string]any{"ok": false, "code": code, "reason": reason})
}

func writeJSON(ctx *fasthttp.RequestCtx, body any) {
	ctx.SetContentType("application/json; charset=utf-8")
	payload, err := json.Marshal(body)
	if err != nil {
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		ctx.SetBodyString(`{"ok":false,"code":"encode","reason":"response encoding failed"}`)
		return
	}
	ctx.SetBody(payload)
}
