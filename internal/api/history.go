package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/nerrad567/gray-logic-garage/internal/garage"
	"github.com/nerrad567/gray-logic-garage/internal/history"
)

// maxHistoryLimit matches the repository cap.
const maxHistoryLimit = 200

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeUnavailable(w, "history is not enabled")
		return
	}

	filter, err := s.historyFilter(r)
	if err != nil {
		writeValidationError(w, err.Error())
		return
	}

	characteristic := r.URL.Query().Get("characteristic")
	if characteristic != "" && !garage.Characteristic(characteristic).Valid() {
		writeValidationError(w, "unknown characteristic")
		return
	}
	filter.Characteristic = characteristic

	events, err := s.history.ListEvents(r.Context(), filter)
	if err != nil {
		s.logger.Error("failed to list door events", "error", err)
		writeInternalError(w, "failed to list door events")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"accessory_id": filter.AccessoryID,
		"events":       events,
		"count":        len(events),
	})
}

func (s *Server) handleListCommands(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeUnavailable(w, "history is not enabled")
		return
	}

	if r.URL.Query().Has("characteristic") {
		writeValidationError(w, "characteristic filter applies to events only")
		return
	}

	filter, err := s.historyFilter(r)
	if err != nil {
		writeValidationError(w, err.Error())
		return
	}

	commands, err := s.history.ListCommands(r.Context(), filter)
	if err != nil {
		s.logger.Error("failed to list door commands", "error", err)
		writeInternalError(w, "failed to list door commands")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"accessory_id": filter.AccessoryID,
		"commands":     commands,
		"count":        len(commands),
	})
}

func (s *Server) historyFilter(r *http.Request) (history.Filter, error) {
	limit, err := parseHistoryLimit(r.URL.Query().Get("limit"))
	if err != nil {
		return history.Filter{}, err
	}
	return history.Filter{AccessoryID: s.accessory.ID(), Limit: limit}, nil
}

// parseHistoryLimit parses the limit query parameter. Empty means the
// repository default.
func parseHistoryLimit(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}

	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, fmt.Errorf("invalid limit")
	}
	if limit > maxHistoryLimit {
		return 0, fmt.Errorf("limit exceeds maximum of %d", maxHistoryLimit)
	}
	return limit, nil
}
