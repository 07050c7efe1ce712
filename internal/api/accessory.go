package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/gray-logic-garage/internal/garage"
)

// SetTargetRequest is the body of PUT /api/v1/state/target.
type SetTargetRequest struct {
	TargetDoorState *int `json:"target_door_state"`
}

// StateResponse is returned by the state endpoints.
type StateResponse struct {
	AccessoryID string          `json:"accessory_id"`
	State       garage.Snapshot `json:"state"`
}

func (s *Server) stateResponse() StateResponse {
	return StateResponse{
		AccessoryID: s.accessory.ID(),
		State:       s.accessory.State(),
	}
}

func (s *Server) handleGetAccessory(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"id":       s.accessory.ID(),
		"info":     s.accessory.Info(),
		"services": s.accessory.Services(),
	})
}

func (s *Server) handleGetState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.stateResponse())
}

// handleSetTarget commands the device. The response waits for the device
// to answer; a transport failure is reported as 502.
func (s *Server) handleSetTarget(w http.ResponseWriter, r *http.Request) {
	var req SetTargetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.TargetDoorState == nil {
		writeValidationError(w, "target_door_state is required")
		return
	}

	target := garage.DoorState(*req.TargetDoorState)
	if !target.ValidTarget() {
		writeValidationError(w, "target_door_state must be 0 (open) or 1 (closed)")
		return
	}

	err := s.accessory.SetTargetDoorState(r.Context(), target, garage.SourceAPI)
	switch {
	case err == nil:
	case errors.Is(err, garage.ErrCommandFailed):
		s.logger.Warn("api command failed", "target", int(target), "error", err)
		writeError(w, http.StatusBadGateway, ErrCodeDeviceFailed, "device did not answer")
		return
	default:
		s.logger.Error("api command error", "target", int(target), "error", err)
		writeInternalError(w, "failed to set target door state")
		return
	}

	writeJSON(w, http.StatusOK, s.stateResponse())
}

func (s *Server) handleIdentify(w http.ResponseWriter, _ *http.Request) {
	s.accessory.Identify()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "identify requested"})
}
