package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/polyquote/polyquote/pkg/bot"
	"github.com/polyquote/polyquote/pkg/storage"
)

// Server exposes the bot's state over REST for dashboards and health checks.
// It is read-only: trading stays in the engine.
type Server struct {
	state   *bot.State
	store   *storage.StateStore
	router  *mux.Router
	log     *zap.Logger
	address string
	market  string
	assetID string
	started time.Time
}

func NewServer(state *bot.State, store *storage.StateStore, address, market, assetID string, log *zap.Logger) *Server {
	s := &Server{
		state:   state,
		store:   store,
		router:  mux.NewRouter(),
		log:     log,
		address: address,
		market:  market,
		assetID: assetID,
		started: time.Now(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/status", s.handleStatus).Methods("GET")
	api.HandleFunc("/orders", s.handleOrders).Methods("GET")
	api.HandleFunc("/fills", s.handleFills).Methods("GET")

	s.router.HandleFunc("/healthz", s.handleHealth).Methods("GET")
}

// Run serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	})

	srv := &http.Server{
		Addr:    addr,
		Handler: c.Handler(s.router),
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Info("status server listening", zap.String("addr", addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errc:
		return err
	}
}

// Handler exposes the routed handler, for tests.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	bid, ask := s.state.BestQuotes()
	respondJSON(w, StatusResponse{
		Address:    s.address,
		Market:     s.market,
		AssetID:    s.assetID,
		Inventory:  s.state.Inventory().String(),
		BestBid:    bid.String(),
		BestAsk:    ask.String(),
		OpenOrders: len(s.state.OpenOrderIDs()),
		RiskPaused: s.state.RiskPaused(),
		UptimeSecs: int64(time.Since(s.started).Seconds()),
	})
}

func (s *Server) handleOrders(w http.ResponseWriter, r *http.Request) {
	orders := s.state.OpenOrders()
	response := make([]OrderInfo, len(orders))
	for i, ord := range orders {
		response[i] = OrderInfo{
			ID:      ord.ID,
			AssetID: ord.AssetID,
			Side:    ord.Side,
			Price:   ord.Price,
			Size:    ord.Size,
		}
	}
	respondJSON(w, response)
}

func (s *Server) handleFills(w http.ResponseWriter, r *http.Request) {
	fills, err := s.store.RecentFills(100)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "fills unavailable", err.Error())
		return
	}
	response := make([]FillInfo, len(fills))
	for i, f := range fills {
		response[i] = FillInfo{
			ID:      f.ID,
			AssetID: f.AssetID,
			Side:    f.Side,
			Price:   f.Price,
			Size:    f.Size,
			TS:      f.TS,
		}
	}
	respondJSON(w, response)
}

func respondJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, error string, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   error,
		Message: message,
	})
}
