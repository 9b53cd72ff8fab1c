package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/mohitkumar/assist/assistance"
	"github.com/mohitkumar/assist/logger"
	"github.com/mohitkumar/assist/model"
	"github.com/mohitkumar/assist/persistence"
	"go.uber.org/zap"
)

type assistanceRequest struct {
	TypeKey    string            `json:"type_key"`
	Parameters []model.Parameter `json:"parameters,omitempty"`
}

type assistanceUpdateRequest struct {
	Objects []model.AssistanceObject `json:"assistance_objects"`
}

// HandleAssistanceRequest explicitly initiates a process type, e.g. a
// proactive or cooperative one that no statement triggers.
func (s *Server) HandleAssistanceRequest(w http.ResponseWriter, r *http.Request) {
	var req assistanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid assistance request payload")
		return
	}
	defer r.Body.Close()

	opCtx := assistance.NewContext()
	for _, parameter := range req.Parameters {
		opCtx.Set(parameter.Key, parameter.Value)
	}
	result, err := s.dispatcher.HandleRequest(r.Context(), req.TypeKey, assistance.OperationKeyInitiation, opCtx)
	if err != nil {
		s.respondWithMappedError(w, req.TypeKey, err)
		return
	}
	if result == nil {
		respondWithError(w, http.StatusBadRequest, "assistance request not applicable")
		return
	}
	s.deliver(r, assistance.Objects(result.Assistance))
	respondOK(w, map[string]any{"assistance": result.Assistance})
}

// HandleUpdateAssistance appends client response objects to a running
// instance and returns the follow-up assistance they produced.
func (s *Server) HandleUpdateAssistance(w http.ResponseWriter, r *http.Request) {
	aID, ok := mux.Vars(r)["aId"]
	if !ok || aID == "" {
		respondWithError(w, http.StatusBadRequest, "missing assistance id")
		return
	}
	var req assistanceUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid assistance update payload")
		return
	}
	defer r.Body.Close()
	if len(req.Objects) == 0 {
		respondWithError(w, http.StatusBadRequest, "no assistance objects provided")
		return
	}

	produced, err := s.dispatcher.AppendResponse(r.Context(), aID, req.Objects)
	if err != nil {
		s.respondWithMappedError(w, aID, err)
		return
	}
	s.deliver(r, assistance.Objects(produced))
	respondOK(w, map[string]any{"assistance": produced})
}

func (s *Server) respondWithMappedError(w http.ResponseWriter, subject string, err error) {
	logger.Error("assistance request failed", zap.String("subject", subject), zap.Error(err))
	var unknownType assistance.UnknownProcessTypeError
	switch {
	case errors.Is(err, persistence.ErrNotFound):
		respondWithError(w, http.StatusNotFound, "assistance not found")
	case errors.As(err, &unknownType):
		respondWithError(w, http.StatusNotFound, "assistance type not found")
	case errors.Is(err, persistence.ErrTerminalInstance):
		respondWithError(w, http.StatusConflict, "assistance already finished")
	case errors.Is(err, persistence.ErrVersionConflict):
		respondWithError(w, http.StatusConflict, "assistance was modified concurrently")
	default:
		respondWithError(w, http.StatusInternalServerError, "error executing assistance operation")
	}
}
