package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"ChainHarvest/internal/config"
	"ChainHarvest/internal/query"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "YAML config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if !cfg.ClickHouse.Enabled {
		log.Fatalf("ClickHouse archive is not enabled in config. API server cannot start.")
	}

	querier, err := query.NewClickHouseQuerier(cfg.ClickHouse)
	if err != nil {
		log.Fatalf("Failed to create querier: %v", err)
	}

	r := mux.NewRouter()
	apiHandler := &APIHandler{querier: querier}
	r.HandleFunc("/api/v1/events/by-package", apiHandler.eventsByPackageHandler).Methods("GET")
	r.HandleFunc("/api/v1/events/by-address", apiHandler.eventsByAddressHandler).Methods("GET")

	server := &http.Server{
		Addr:    cfg.API.ListenAddr,
		Handler: r,
	}

	go func() {
		log.Printf("API server starting on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v", server.Addr, err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("API server shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	log.Println("API server exited.")
}

// APIHandler holds the dependencies for API handlers.
type APIHandler struct {
	querier query.Querier
}

func (h *APIHandler) eventsByPackageHandler(w http.ResponseWriter, r *http.Request) {
	h.aggregate(w, r, h.querier.EventsByPackage)
}

func (h *APIHandler) eventsByAddressHandler(w http.ResponseWriter, r *http.Request) {
	h.aggregate(w, r, h.querier.EventsByAddress)
}

func (h *APIHandler) aggregate(w http.ResponseWriter, r *http.Request,
	fn func(ctx context.Context, runID string) ([]query.AggregateRow, error)) {

	runID := r.URL.Query().Get("run_id")
	if runID == "" {
		http.Error(w, "missing run_id query parameter", http.StatusBadRequest)
		return
	}

	rows, err := fn(r.Context(), runID)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to query events: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(rows); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}
