package handlers

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/jwebster45206/druid-of-peace/internal/journal"
	"github.com/jwebster45206/druid-of-peace/pkg/clock"
	"github.com/jwebster45206/druid-of-peace/pkg/content"
	"github.com/jwebster45206/druid-of-peace/pkg/encounter"
	"github.com/jwebster45206/druid-of-peace/pkg/game"
	"github.com/jwebster45206/druid-of-peace/pkg/history"
	"github.com/jwebster45206/druid-of-peace/pkg/inventory"
	"github.com/jwebster45206/druid-of-peace/pkg/skills"
	"github.com/jwebster45206/druid-of-peace/pkg/storage"
	"github.com/jwebster45206/druid-of-peace/pkg/world"
)

type AdvanceResponse struct {
	Turn *game.MapTurn `json:"turn"`
	Map  *world.Map    `json:"map"`
}

type TravelRequest struct {
	Zone string `json:"zone"`
}

type TravelResponse struct {
	Map   *world.Map   `json:"map"`
	Clock *clock.Clock `json:"clock"`
}

type MapItemRequest struct {
	Item string `json:"item"`
}

type MapItemResponse struct {
	Zone      *content.Zone     `json:"zone"`
	Inventory []inventory.Entry `json:"inventory"`
}

type EncounterResponse struct {
	Active    bool             `json:"active"`
	Encounter *encounter.State `json:"encounter"`
}

type SkillsResponse struct {
	Points int           `json:"points"`
	Skills []skills.View `json:"skills"`
}

type HistoryResponse struct {
	Records          []history.Record `json:"records"`
	Stats            history.Stats    `json:"stats"`
	Archived         int              `json:"archived,omitempty"`           // Records kept by the history archive, if any
	ArchivedByResult map[string]int   `json:"archived_by_result,omitempty"` // Archived records per encounter result
}

func (h *GameHandler) handleAdvance(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	out, err := h.update(r.Context(), id, func(s *game.Session) (any, error) {
		turn, err := s.AdvanceMap()
		if err != nil {
			return nil, err
		}
		return AdvanceResponse{Turn: turn, Map: s.State.Map}, nil
	})
	h.respond(w, http.StatusOK, out, err)
}

func (h *GameHandler) handleTravel(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	var req TravelRequest
	if err := decodeBody(r, &req); err != nil || req.Zone == "" {
		writeError(w, h.logger, http.StatusBadRequest, "Request body must include a zone")
		return
	}
	out, err := h.update(r.Context(), id, func(s *game.Session) (any, error) {
		if err := s.Travel(req.Zone); err != nil {
			return nil, err
		}
		return TravelResponse{Map: s.State.Map, Clock: s.State.Clock}, nil
	})
	h.respond(w, http.StatusOK, out, err)
}

func (h *GameHandler) handleMapItem(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	var req MapItemRequest
	if err := decodeBody(r, &req); err != nil || req.Item == "" {
		writeError(w, h.logger, http.StatusBadRequest, "Request body must include an item")
		return
	}
	out, err := h.update(r.Context(), id, func(s *game.Session) (any, error) {
		zone, err := s.UseItemOnMap(req.Item)
		if err != nil {
			return nil, err
		}
		return MapItemResponse{Zone: zone, Inventory: s.State.Inventory.Items()}, nil
	})
	h.respond(w, http.StatusOK, out, err)
}

func (h *GameHandler) handleStartEncounter(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	out, err := h.update(r.Context(), id, func(s *game.Session) (any, error) {
		return s.StartEncounter()
	})
	h.respond(w, http.StatusCreated, out, err)
}

func (h *GameHandler) handleGetEncounter(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	gs, err := h.load(r.Context(), id)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	switch {
	case gs.Encounter != nil:
		writeJSON(w, h.logger, http.StatusOK, EncounterResponse{Active: true, Encounter: gs.Encounter})
	case gs.LastEncounter != nil:
		writeJSON(w, h.logger, http.StatusOK, EncounterResponse{Encounter: gs.LastEncounter})
	default:
		writeError(w, h.logger, http.StatusNotFound, "No encounter has been played")
	}
}

func (h *GameHandler) handleAction(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	var a game.Action
	if err := decodeBody(r, &a); err != nil || a.Type == "" {
		writeError(w, h.logger, http.StatusBadRequest, "Request body must include an action type")
		return
	}
	out, err := h.update(r.Context(), id, func(s *game.Session) (any, error) {
		return s.Act(a)
	})
	h.respond(w, http.StatusOK, out, err)
}

func skillsView(s *game.Session) SkillsResponse {
	return SkillsResponse{
		Points: s.State.Skills.Points,
		Skills: s.State.Skills.Views(),
	}
}

func (h *GameHandler) handleSkills(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	out, err := h.view(r.Context(), id, func(s *game.Session) (any, error) {
		return skillsView(s), nil
	})
	h.respond(w, http.StatusOK, out, err)
}

func (h *GameHandler) handleSkillChange(w http.ResponseWriter, r *http.Request, id uuid.UUID, skillID, op string) {
	out, err := h.update(r.Context(), id, func(s *game.Session) (any, error) {
		var err error
		if op == "claim" {
			err = s.ClaimSkill(skillID)
		} else {
			err = s.LearnSkill(skillID)
		}
		if err != nil {
			return nil, err
		}
		return skillsView(s), nil
	})
	h.respond(w, http.StatusOK, out, err)
}

func (h *GameHandler) handleHistory(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	gs, err := h.load(r.Context(), id)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	records := gs.History.Records()
	resp := HistoryResponse{Records: records, Stats: history.Summarize(records)}
	switch a := h.storage.(type) {
	case storage.EncounterCounter:
		counts, err := a.EncounterCounts(r.Context(), id)
		if err != nil {
			h.logger.Warn("Failed to count archived encounters", "game_id", id, "error", err)
			break
		}
		resp.ArchivedByResult = counts
		for _, n := range counts {
			resp.Archived += n
		}
	case storage.HistoryArchive:
		archived, err := a.ListRecords(r.Context(), id)
		if err != nil {
			h.logger.Warn("Failed to list archived records", "game_id", id, "error", err)
		}
		resp.Archived = len(archived)
	}
	writeJSON(w, h.logger, http.StatusOK, resp)
}

func (h *GameHandler) handleJournal(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	gs, err := h.load(r.Context(), id)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	var buf bytes.Buffer
	if err := journal.Write(&buf, gs, h.lib); err != nil {
		writeDomainError(w, h.logger, fmt.Errorf("failed to render journal: %w", err))
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"journal-%s.pdf\"", id))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logger.Error("Failed to write journal", "game_id", id, "error", err)
	}
}
