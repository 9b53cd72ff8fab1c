package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/mohitkumar/assist/assistance"
	"github.com/mohitkumar/assist/delivery"
	"github.com/mohitkumar/assist/logger"
	"github.com/mohitkumar/assist/metrics"
	"github.com/mohitkumar/assist/statement"
)

type Server struct {
	http.Server
	Port       int
	registry   *assistance.Registry
	dispatcher *assistance.Dispatcher
	statements *statement.Service
	sink       delivery.Sink
	hub        *delivery.WebsocketHub
	collector  *metrics.Collector
}

func NewServer(httpPort int, registry *assistance.Registry, dispatcher *assistance.Dispatcher, statements *statement.Service, sink delivery.Sink, hub *delivery.WebsocketHub, collector *metrics.Collector) (*Server, error) {
	s := &Server{
		Server: http.Server{
			Addr:        fmt.Sprintf(":%d", httpPort),
			IdleTimeout: 2 * time.Second,
		},
		Port:       httpPort,
		registry:   registry,
		dispatcher: dispatcher,
		statements: statements,
		sink:       sink,
		hub:        hub,
		collector:  collector,
	}

	router := mux.NewRouter()
	router.HandleFunc("/statement", s.HandleStatement).Methods(http.MethodPost)

	router.HandleFunc("/assistance", s.HandleAssistanceRequest).Methods(http.MethodPost)
	router.HandleFunc("/assistance/{aId}", s.HandleUpdateAssistance).Methods(http.MethodPatch)
	router.HandleFunc("/assistance/types", s.HandleGetTypes).Methods(http.MethodGet)

	if hub != nil {
		router.Handle("/subscribe", hub).Methods(http.MethodGet)
	}
	router.Handle("/metrics", promhttp.HandlerFor(collector.Registry(), promhttp.HandlerOpts{})).Methods(http.MethodGet)

	router.Use(loggingMiddleware)
	s.Handler = router
	return s, nil
}

func (s *Server) Start() error {
	logger.Info("starting http server on", zap.Int("port", s.Port))
	if err := s.ListenAndServe(); err != nil {
		return err
	}
	return nil
}

func (s *Server) Stop() error {
	logger.Info("stopping http server")
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	err := s.Shutdown(ctx)
	if err != nil {
		logger.Error("error shutting down http server")
	}
	return nil
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.Info(r.RequestURI)
		next.ServeHTTP(w, r)
	})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, _ := json.Marshal(payload)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondOK(w http.ResponseWriter, message map[string]any) {
	respondWithJSON(w, http.StatusOK, message)
}

func respondOKWithoutBody(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(200)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}
