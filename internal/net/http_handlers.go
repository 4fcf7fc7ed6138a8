package net

import (
	"encoding/json"
	"errors"
	"io"
	nethttp "net/http"
	"time"

	"heist/server/internal/match"
	"heist/server/internal/observability"
	"heist/server/internal/room"
	"heist/server/internal/telemetry"
	"heist/server/logging"
)

// Lobby creates matches and reports the running ones.
type Lobby interface {
	Create(seats []room.Seat) (room.Created, error)
	Summaries() []match.Summary
}

type HTTPHandlerConfig struct {
	Lobby     Lobby
	Sockets   nethttp.Handler
	Router    *logging.Router
	Metrics   *logging.Metrics
	Logger    telemetry.Logger
	TickRate  int
	ClientDir string

	Observability observability.Config
}

type createMatchRequest struct {
	Players []room.Seat `json:"players"`
}

func NewHTTPHandler(cfg HTTPHandlerConfig) nethttp.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.WrapLogger(nil)
	}

	mux := nethttp.NewServeMux()

	mux.HandleFunc("/health", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("/diagnostics", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		payload := struct {
			Status     string              `json:"status"`
			ServerTime int64               `json:"serverTime"`
			TickRate   int                 `json:"tickRate"`
			Matches    []match.Summary     `json:"matches"`
			Logging    logging.RouterStats `json:"logging"`
			Metrics    map[string]uint64   `json:"metrics"`
		}{
			Status:     "ok",
			ServerTime: time.Now().UnixMilli(),
			TickRate:   cfg.TickRate,
			Matches:    []match.Summary{},
			Metrics:    cfg.Metrics.Snapshot(),
		}
		if cfg.Lobby != nil {
			payload.Matches = cfg.Lobby.Summaries()
		}
		if cfg.Router != nil {
			payload.Logging = cfg.Router.Stats()
		}
		writeJSON(w, logger, nethttp.StatusOK, payload)
	})

	mux.HandleFunc("/matches", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if cfg.Lobby == nil {
			httpError(w, "matchmaking unavailable", nethttp.StatusServiceUnavailable)
			return
		}
		switch r.Method {
		case nethttp.MethodGet:
			writeJSON(w, logger, nethttp.StatusOK, struct {
				Matches []match.Summary `json:"matches"`
			}{Matches: cfg.Lobby.Summaries()})
		case nethttp.MethodPost:
			var req createMatchRequest
			if r.Body != nil {
				defer r.Body.Close()
				decoder := json.NewDecoder(io.LimitReader(r.Body, 1<<16))
				if err := decoder.Decode(&req); err != nil && err != io.EOF {
					httpError(w, "invalid payload", nethttp.StatusBadRequest)
					return
				}
			}
			created, err := cfg.Lobby.Create(req.Players)
			if err != nil {
				if errors.Is(err, room.ErrEmptyRoster) || errors.Is(err, room.ErrRosterFull) || errors.Is(err, room.ErrDuplicatePlayer) {
					httpError(w, err.Error(), nethttp.StatusBadRequest)
					return
				}
				logger.Printf("failed to create match: %v", err)
				httpError(w, "failed to create match", nethttp.StatusInternalServerError)
				return
			}
			writeJSON(w, logger, nethttp.StatusCreated, created)
		default:
			httpError(w, "method not allowed", nethttp.StatusMethodNotAllowed)
		}
	})

	if cfg.Sockets != nil {
		mux.Handle("/ws", cfg.Sockets)
	}

	observability.Register(mux, cfg.Observability)

	if cfg.ClientDir != "" {
		fs := nethttp.FileServer(nethttp.Dir(cfg.ClientDir))
		mux.Handle("/", fs)
	}

	return mux
}

func writeJSON(w nethttp.ResponseWriter, logger telemetry.Logger, status int, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		logger.Printf("failed to encode response: %v", err)
		httpError(w, "failed to encode", nethttp.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

func httpError(w nethttp.ResponseWriter, msg string, code int) {
	nethttp.Error(w, msg, code)
}
