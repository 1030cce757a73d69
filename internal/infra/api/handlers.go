package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"telegram-affiliate-bot/internal/domain"
	"telegram-affiliate-bot/internal/domain/model"
	"telegram-affiliate-bot/internal/domain/ports/adapter"
	"telegram-affiliate-bot/internal/infra/logging"
	"telegram-affiliate-bot/internal/infra/metrics"
	"telegram-affiliate-bot/internal/usecase"
)

type listResponse[T any] struct {
	Items []T `json:"items"`
}

type merchantUpsertRequest struct {
	DisplayName  string  `json:"display_name"`
	LinkTemplate string  `json:"link_template"`
	BaseRate     float64 `json:"base_rate"`
}

type linkResponse struct {
	MerchantSlug string `json:"merchant_slug"`
	TrackingID   string `json:"tracking_id"`
	TrackedURL   string `json:"tracked_url"`
}

type sendRequest struct {
	UserID      int64  `json:"user_id"`
	DisplayName string `json:"display_name"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := map[string]string{}
	code := http.StatusOK
	for _, hc := range s.deps.Health {
		if err := hc.Check(ctx); err != nil {
			status[hc.Name] = err.Error()
			code = http.StatusServiceUnavailable
			continue
		}
		status[hc.Name] = "ok"
	}
	writeJSON(w, code, status)
}

func (s *Server) handleListMerchants(w http.ResponseWriter, r *http.Request) {
	ms, err := s.deps.Merchants.List(r.Context())
	if err != nil {
		s.fail(w, r, err, "list merchants")
		return
	}
	if ms == nil {
		ms = []model.Merchant{}
	}
	writeJSON(w, http.StatusOK, listResponse[model.Merchant]{Items: ms})
}

func (s *Server) handleSearchMerchants(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	limit := s.deps.SearchLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 50 {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 50")
			return
		}
		limit = n
	}
	res, err := s.deps.Merchants.Search(r.Context(), q, limit)
	if err != nil {
		s.fail(w, r, err, "search merchants")
		return
	}
	if res == nil {
		res = []model.SearchCandidate{}
	}
	writeJSON(w, http.StatusOK, listResponse[model.SearchCandidate]{Items: res})
}

func (s *Server) handleUpsertMerchant(w http.ResponseWriter, r *http.Request) {
	var req merchantUpsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	m, err := model.NewMerchant(chi.URLParam(r, "slug"), req.DisplayName, req.LinkTemplate, req.BaseRate)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "slug, display_name, link_template and a positive base_rate are required")
		return
	}
	if err := s.deps.Merchants.Upsert(r.Context(), m); err != nil {
		s.fail(w, r, err, "upsert merchant")
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleLinkPreview(w http.ResponseWriter, r *http.Request) {
	uid, err := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
	if err != nil || uid <= 0 {
		writeError(w, http.StatusBadRequest, "user_id must be a positive integer")
		return
	}
	m, err := s.deps.Merchants.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		s.fail(w, r, err, "get merchant")
		return
	}
	comp := s.deps.Previewer.ComposeLink(uid, *m)
	writeJSON(w, http.StatusOK, linkResponse{MerchantSlug: m.Slug, TrackingID: comp.TrackingID, TrackedURL: comp.TrackedURL})
}

// handleSendLink generates a personal link for user_id and pushes it to their private chat.
func (s *Server) handleSendLink(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID <= 0 {
		writeError(w, http.StatusBadRequest, "user_id must be a positive integer")
		return
	}
	ctx := logging.WithTgID(r.Context(), req.UserID)

	res, err := s.deps.Links.Generate(ctx, usecase.GenerateRequest{
		User:         model.User{TelegramID: req.UserID, FirstName: strings.TrimSpace(req.DisplayName)},
		MerchantSlug: chi.URLParam(r, "slug"),
		Source:       model.LinkSourceAdmin,
	})
	if err != nil {
		s.fail(w, r.WithContext(ctx), err, "generate link")
		return
	}
	metrics.IncLinkGenerated(string(model.LinkSourceAdmin))

	err = s.deps.Bot.SendMessage(ctx, adapter.SendMessageParams{
		ChatID:  req.UserID,
		Text:    res.Message,
		Buttons: &res.Buttons,
	})
	if err != nil {
		l := logging.With(ctx, s.log)
		l.Warn().Err(err).Msg("admin send failed")
		writeError(w, http.StatusBadGateway, "telegram delivery failed")
		return
	}
	writeJSON(w, http.StatusOK, linkResponse{
		MerchantSlug: res.Composition.Merchant.Slug,
		TrackingID:   res.Composition.TrackingID,
		TrackedURL:   res.Composition.TrackedURL,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	days := s.deps.StatsDays
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 365 {
			writeError(w, http.StatusBadRequest, "days must be between 1 and 365")
			return
		}
		days = n
	}
	top := 10
	if v := r.URL.Query().Get("top"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 100 {
			writeError(w, http.StatusBadRequest, "top must be between 1 and 100")
			return
		}
		top = n
	}
	since := s.now().Add(-time.Duration(days) * 24 * time.Hour)
	totals, err := s.deps.Stats.Totals(r.Context(), since, top)
	if err != nil {
		s.fail(w, r, err, "stats")
		return
	}
	writeJSON(w, http.StatusOK, totals)
}

// fail maps domain errors to status codes and logs anything unexpected.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error, op string) {
	switch {
	case errors.Is(err, domain.ErrMerchantNotFound), errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "merchant not found")
	case errors.Is(err, domain.ErrInvalidArgument), errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusUnprocessableEntity, strings.TrimSpace(err.Error()))
	default:
		l := logging.With(r.Context(), s.log)
		l.Error().Err(err).Str("op", op).Msg("admin request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
