// Package web is the operator console: a small authenticated JSON API over
// the scenario runner, the sessions and the slot cache.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/example/court-scheduler/internal/auth"
	"github.com/example/court-scheduler/internal/booking"
	"github.com/example/court-scheduler/internal/config"
	"github.com/example/court-scheduler/internal/domain/reservation"
	"github.com/example/court-scheduler/internal/internaltypes"
	"github.com/example/court-scheduler/internal/journal"
	"github.com/example/court-scheduler/internal/scenario"
	"github.com/example/court-scheduler/internal/slots"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Sessions is the part of the booking registry the console reads and drives.
type Sessions interface {
	Snapshots() []booking.Snapshot
	Holder(t reservation.Target) string
	RefreshDate(accountID, date string) error
}

// Scenario is the part of the runner the console drives.
type Scenario interface {
	Advance() (scenario.Step, error)
	SetCursor(i int) error
	Cursor() int
	Status() string
}

type Server struct {
	Auth     *auth.Store
	Plan     config.Source
	Sessions Sessions
	Scenario Scenario
	Cache    *slots.Cache
	// Journal is nil when no database is configured.
	Journal journal.Store
	Log     *zap.Logger
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Post("/login", s.handleLogin)
	r.Post("/logout", s.handleLogout)

	r.Group(func(r chi.Router) {
		r.Use(s.Auth.RequireAuth)
		r.Get("/targets", s.handleTargets)
		r.Post("/scenario/advance", s.handleAdvance)
		r.Post("/scenario/cursor", s.handleSetCursor)
		r.Get("/sessions", s.handleSessions)
		r.Route("/slots", func(r chi.Router) {
			r.Get("/", s.handleSlots)
			r.Get("/{date}", s.handleSlotDate)
			r.Post("/{date}/refresh", s.handleRefresh)
			r.Delete("/{date}", s.handleClearDate)
		})
		r.Get("/history", s.handleHistory)
	})
	return r
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	username := strings.TrimSpace(r.FormValue("username"))
	op, err := s.Auth.Authenticate(username, r.FormValue("password"))
	if err != nil {
		s.Log.Info("console login rejected", zap.String("username", username))
		respondError(w, http.StatusUnauthorized, err)
		return
	}
	if err := s.Auth.SetSession(w, r, op); err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"operator": op})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.Auth.ClearSession(w)
	w.WriteHeader(http.StatusNoContent)
}

type targetView struct {
	Index   int                `json:"index"`
	Label   string             `json:"label"`
	Holder  string             `json:"holder,omitempty"`
	Current bool               `json:"current"`
	Target  reservation.Target `json:"target"`
}

func (s *Server) handleTargets(w http.ResponseWriter, r *http.Request) {
	snap, err := s.Plan.Load()
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	cursor := s.Scenario.Cursor()
	plan := snap.Plan()
	views := make([]targetView, 0, len(plan))
	for i, t := range plan {
		holder := s.Sessions.Holder(t)
		views = append(views, targetView{
			Index:   i,
			Label:   reservation.Label(t, holder),
			Holder:  holder,
			Current: i == cursor,
			Target:  t,
		})
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"cursor":  cursor,
		"status":  s.Scenario.Status(),
		"targets": views,
	})
}

func (s *Server) handleAdvance(w http.ResponseWriter, r *http.Request) {
	step, err := s.Scenario.Advance()
	if err != nil {
		s.Log.Warn("scenario advance failed", zap.Error(err))
		// The cursor moved even when dispatch failed; report both.
		respondJSON(w, http.StatusConflict, map[string]any{
			"step":   step,
			"status": s.Scenario.Status(),
			"error":  err.Error(),
		})
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"step": step, "status": s.Scenario.Status()})
}

func (s *Server) handleSetCursor(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Cursor *int `json:"cursor"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Cursor == nil {
		respondError(w, http.StatusBadRequest, errors.New(`want {"cursor": n}`))
		return
	}
	if err := s.Scenario.SetCursor(*body.Cursor); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, scenario.ErrCursorRange) {
			status = http.StatusBadRequest
		}
		respondError(w, status, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"cursor": s.Scenario.Cursor(), "status": s.Scenario.Status()})
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.Sessions.Snapshots())
}

func (s *Server) handleSlots(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.Cache.Status())
}

func (s *Server) handleSlotDate(w http.ResponseWriter, r *http.Request) {
	date := chi.URLParam(r, "date")
	tbl, ok := s.Cache.Get(date)
	if !ok {
		respondError(w, http.StatusNotFound, internaltypes.ErrNotFound)
		return
	}
	respondJSON(w, http.StatusOK, tbl)
}

// handleRefresh asks a page for the whole-day schedule. The account is the
// ?account= parameter, else the plan's default account.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	date := chi.URLParam(r, "date")
	accountID := strings.TrimSpace(r.URL.Query().Get("account"))
	if accountID == "" {
		snap, err := s.Plan.Load()
		if err != nil {
			respondError(w, http.StatusInternalServerError, err)
			return
		}
		accountID = snap.DefaultAccount().ID
	}
	if err := s.Sessions.RefreshDate(accountID, date); err != nil {
		switch {
		case reservation.IsValidation(err):
			respondError(w, http.StatusBadRequest, err)
		case errors.Is(err, booking.ErrNoSession):
			respondError(w, http.StatusNotFound, err)
		default:
			respondError(w, http.StatusBadGateway, err)
		}
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]string{"account": accountID, "date": date})
}

func (s *Server) handleClearDate(w http.ResponseWriter, r *http.Request) {
	s.Cache.ClearDate(chi.URLParam(r, "date"))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.Journal == nil {
		respondError(w, http.StatusNotFound, internaltypes.ErrDisabled)
		return
	}
	var (
		entries []journal.Entry
		err     error
	)
	if date := r.URL.Query().Get("date"); date != "" {
		entries, err = s.Journal.ForDate(r.Context(), date)
	} else {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		entries, err = s.Journal.Recent(r.Context(), limit)
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	if entries == nil {
		entries = []journal.Entry{}
	}
	respondJSON(w, http.StatusOK, entries)
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}

func respondError(w http.ResponseWriter, status int, err error) {
	respondJSON(w, status, map[string]any{"error": err.Error(), "status": status})
}

// Start serves h until ctx is done.
func Start(ctx context.Context, addr string, h http.Handler, log *zap.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	log.Info("console listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
