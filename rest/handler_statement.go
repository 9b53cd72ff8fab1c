package rest

import (
	"encoding/json"
	"net/http"

	"github.com/mohitkumar/assist/assistance"
	"github.com/mohitkumar/assist/logger"
	"github.com/mohitkumar/assist/model"
	"go.uber.org/zap"
)

type statementRequest struct {
	Statement         model.Statement `json:"statement"`
	SupportedTypeKeys []string        `json:"supported_assistance_types,omitempty"`
}

// HandleStatement ingests one learner activity statement and returns the
// assistance objects it produced. Objects are also pushed to subscribers.
func (s *Server) HandleStatement(w http.ResponseWriter, r *http.Request) {
	var req statementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid statement payload")
		return
	}
	defer r.Body.Close()

	if err := s.statements.Process(r.Context(), &req.Statement); err != nil {
		logger.Error("error processing statement", zap.String("statementId", req.Statement.ID), zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "error processing statement")
		return
	}
	s.collector.StatementReceived(req.Statement.Verb.ID)

	supported := req.SupportedTypeKeys
	if len(supported) == 0 {
		supported = s.registry.Keys()
	}
	produced, err := s.dispatcher.HandleStatement(r.Context(), &req.Statement, supported)
	if err != nil {
		logger.Error("error dispatching statement", zap.String("statementId", req.Statement.ID), zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "error dispatching statement")
		return
	}
	s.deliver(r, assistance.Objects(produced))
	respondOK(w, map[string]any{"assistance": produced})
}

func (s *Server) deliver(r *http.Request, objects []model.AssistanceObject) {
	if s.sink == nil || len(objects) == 0 {
		return
	}
	if err := s.sink.Deliver(r.Context(), objects); err != nil {
		logger.Error("error delivering assistance objects", zap.Error(err))
		return
	}
	s.collector.ObjectsDelivered(len(objects))
}
