package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/arbdesk/arbdesk/pkg/expiry"
	"github.com/arbdesk/arbdesk/pkg/models"
)

// Refresher produces one full metric batch for an expiry selection.
type Refresher interface {
	FetchAll(ctx context.Context, expiryCode string, daysLeft int, openFactor float64) []models.DerivedMetrics
}

type Server struct {
	orchestrator Refresher
	logger       *logrus.Logger
	port         string
	upgrader     websocket.Upgrader
	now          func() time.Time
}

// RefreshRequest is the inbound websocket message. OpenFactor may arrive
// as a number or a numeric string; anything else falls back to 1.0.
type RefreshRequest struct {
	Expiry     string `json:"expiry"`
	OpenFactor any    `json:"openFactor"`
	NearExpiry string `json:"near_expiry"`
	MidExpiry  string `json:"mid_expiry"`
	FarExpiry  string `json:"far_expiry"`
}

type dataMessage struct {
	Type    string                  `json:"type"`
	Records []models.DerivedMetrics `json:"records"`
}

type errorMessage struct {
	Error string `json:"error"`
}

func NewServer(orchestrator Refresher, logger *logrus.Logger, port string) *Server {
	return &Server{
		orchestrator: orchestrator,
		logger:       logger,
		port:         port,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		now: time.Now,
	}
}

func (s *Server) Start() error {
	s.logger.Infof("Starting API server on port %s", s.port)
	return http.ListenAndServe(":"+s.port, s.Handler())
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/expiries", s.handleExpiries)
	mux.HandleFunc("/ws", s.handleWS)

	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
	}

	s.writeJSON(w, http.StatusOK, response)
}

// handleExpiries serves the near/mid/far contract dates and day counts
// the dashboard seeds its expiry picker from.
func (s *Server) handleExpiries(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	set := expiry.SetFor(s.now())
	response := map[string]interface{}{
		"today":          set.Today.Format("2006-01-02"),
		"near_expiry":    set.Near.Format("2006-01-02"),
		"mid_expiry":     set.Mid.Format("2006-01-02"),
		"far_expiry":     set.Far.Format("2006-01-02"),
		"days_left_near": set.DaysLeftNear,
		"days_left_mid":  set.DaysLeftMid,
		"days_left_far":  set.DaysLeftFar,
	}

	s.writeJSON(w, http.StatusOK, response)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.WithError(err).Error("Failed to upgrade websocket connection")
		return
	}
	defer conn.Close()

	for {
		var req RefreshRequest
		if err := conn.ReadJSON(&req); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.WithError(err).Debug("Websocket read ended")
			}
			return
		}
		s.serveRefresh(r.Context(), conn, req)
	}
}

// serveRefresh maps the expiry selection to a contract code and day count
// and writes back either the full batch or an error payload. A bad
// selection never closes the connection.
func (s *Server) serveRefresh(ctx context.Context, conn *websocket.Conn, req RefreshRequest) {
	var offset int
	var expiryDate string

	switch req.Expiry {
	case "near":
		offset, expiryDate = 0, req.NearExpiry
	case "mid":
		offset, expiryDate = 1, req.MidExpiry
	case "far":
		offset, expiryDate = 2, req.FarExpiry
	default:
		s.writeWS(conn, errorMessage{Error: fmt.Sprintf("unknown expiry option: %s", req.Expiry)})
		return
	}

	expiryCode := expiry.MonthCodes(s.now(), 3)[offset]

	expDate, err := time.Parse("2006-01-02", expiryDate)
	if err != nil {
		s.writeWS(conn, errorMessage{Error: fmt.Sprintf("invalid expiry date: %s", expiryDate)})
		return
	}

	daysLeft := expiry.DaysBetween(expiry.Midnight(s.now()), expDate)
	if daysLeft <= 0 {
		s.writeWS(conn, errorMessage{Error: fmt.Sprintf("expiry date %s is not in the future", expiryDate)})
		return
	}

	openFactor := coerceOpenFactor(req.OpenFactor)

	s.logger.WithFields(logrus.Fields{
		"expiry":      req.Expiry,
		"expiry_code": expiryCode,
		"days_left":   daysLeft,
		"open_factor": openFactor,
	}).Info("Refreshing metric batch")

	records := s.orchestrator.FetchAll(ctx, expiryCode, daysLeft, openFactor)
	s.writeWS(conn, dataMessage{Type: "data", Records: records})
}

func coerceOpenFactor(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case string:
		if f, err := strconv.ParseFloat(t, 64); err == nil {
			return f
		}
	}
	return 1.0
}

func (s *Server) writeWS(conn *websocket.Conn, payload any) {
	if err := conn.WriteJSON(payload); err != nil {
		s.logger.WithError(err).Error("Failed to write websocket message")
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.WithError(err).Error("Failed to encode JSON response")
	}
}
