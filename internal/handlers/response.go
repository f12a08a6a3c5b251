package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/jwebster45206/druid-of-peace/pkg/encounter"
	"github.com/jwebster45206/druid-of-peace/pkg/game"
	"github.com/jwebster45206/druid-of-peace/pkg/inventory"
	"github.com/jwebster45206/druid-of-peace/pkg/skills"
	"github.com/jwebster45206/druid-of-peace/pkg/world"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

// errGameNotFound is returned when no game is stored under the requested ID.
var errGameNotFound = errors.New("game not found")

var conflictErrors = []error{
	game.ErrEncounterActive,
	game.ErrNoEncounter,
	encounter.ErrGameOver,
	encounter.ErrNotDruidTurn,
	encounter.ErrNotNPCTurn,
	encounter.ErrNotTargeting,
	encounter.ErrNotEnoughAP,
	inventory.ErrNotHeld,
	skills.ErrAlreadyLearned,
	skills.ErrNotDiscovered,
	skills.ErrPrerequisites,
	skills.ErrNotEnoughPoints,
	skills.ErrUnlockedByDeeds,
	skills.ErrNotPending,
}

var badRequestErrors = []error{
	game.ErrUnknownAction,
	game.ErrNotOnMap,
	encounter.ErrUnknownAbility,
	encounter.ErrAbilityLocked,
	encounter.ErrUnknownItem,
	encounter.ErrItemNotUsable,
	encounter.ErrInvalidTarget,
	inventory.ErrUnknownItem,
	skills.ErrUnknownSkill,
	world.ErrUnknownZone,
	world.ErrNotConnected,
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	if errors.Is(err, errGameNotFound) {
		return http.StatusNotFound
	}
	for _, e := range conflictErrors {
		if errors.Is(err, e) {
			return http.StatusConflict
		}
	}
	for _, e := range badRequestErrors {
		if errors.Is(err, e) {
			return http.StatusBadRequest
		}
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, logger *slog.Logger, status int, msg string) {
	writeJSON(w, logger, status, ErrorResponse{Error: msg})
}

// writeDomainError reports err with the status its type maps to. Internal
// errors are logged and hidden from the client.
func writeDomainError(w http.ResponseWriter, logger *slog.Logger, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error("Request failed", "error", err)
		writeError(w, logger, status, "Internal server error")
		return
	}
	writeError(w, logger, status, err.Error())
}

func decodeBody(r *http.Request, v any) error {
	if r.Body == nil {
		return errors.New("request body is required")
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
