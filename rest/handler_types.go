package rest

import (
	"net/http"
)

// HandleGetTypes lists the registered assistance types with their phase
// plans, so clients can discover what can be requested.
func (s *Server) HandleGetTypes(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]any{"types": s.registry.Describe()})
}
