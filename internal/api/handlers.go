package api

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/dealscout/dealscout/internal/discovery"
	"github.com/dealscout/dealscout/internal/lifecycle"
	"github.com/dealscout/dealscout/internal/model"
)

// AdminTokenHeader authenticates the partner-management collaborator.
const AdminTokenHeader = "X-Admin-Token"

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleDiscover(w http.ResponseWriter, r *http.Request) {
	q, err := ParseQuery(r.URL.Query(), s.opts.DefaultLimit)
	if err != nil {
		s.discoverError(w, r, err)
		return
	}

	resp, err := s.discovery.Search(r.Context(), q, ViewerFrom(r.Context()))
	if err != nil {
		s.discoverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) discoverError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *discovery.ValidationError
	if errors.As(err, &verr) {
		writeError(w, r, http.StatusBadRequest, "invalid_query", verr.Error(), verr.Field)
		return
	}
	zap.L().Error("api: discovery failed",
		zap.String("component", "api"),
		zap.String("request_id", RequestIDFrom(r.Context())),
		zap.Error(err),
	)
	writeError(w, r, http.StatusInternalServerError, "discovery_failed", "discovery is temporarily unavailable", "")
}

func (s *Server) handleFacets(kind model.FacetKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		facets, err := s.discovery.ListFacets(r.Context(), kind)
		if err != nil {
			zap.L().Error("api: list facets failed",
				zap.String("component", "api"),
				zap.String("kind", string(kind)),
				zap.Error(err),
			)
			writeError(w, r, http.StatusInternalServerError, "catalog_failed", "could not load "+kind.Table(), "")
			return
		}
		if facets == nil {
			facets = []model.Facet{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": facets})
	}
}

type statusRequest struct {
	Status string `json:"status"`
}

type statusResponse struct {
	ID   int64            `json:"id"`
	From model.DealStatus `json:"from"`
	To   model.DealStatus `json:"to"`
}

func (s *Server) handleDealStatus(w http.ResponseWriter, r *http.Request) {
	if !s.authorizedAdmin(r) {
		writeError(w, r, http.StatusUnauthorized, "unauthorized", "missing or invalid admin token", "")
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "deal id must be a positive integer", "id")
		return
	}

	var req statusRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4<<10)).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "invalid request body", "")
		return
	}
	to, err := model.ParseDealStatus(req.Status)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "unknown status "+strconv.Quote(req.Status), "status")
		return
	}

	from, err := s.deals.TransitionDeal(r.Context(), id, to)
	var terr *model.TransitionError
	switch {
	case err == nil:
		zap.L().Info("api: deal status changed",
			zap.String("component", "api"),
			zap.Int64("deal_id", id),
			zap.String("from", string(from)),
			zap.String("to", string(to)),
		)
		writeJSON(w, http.StatusOK, statusResponse{ID: id, From: from, To: to})
	case errors.As(err, &terr):
		writeError(w, r, http.StatusConflict, "invalid_transition", terr.Error(), "status")
	case errors.Is(err, model.ErrDealArchived):
		writeError(w, r, http.StatusConflict, "deal_archived", "deal is archived and can no longer change", "status")
	case errors.Is(err, lifecycle.ErrDealNotFound):
		writeError(w, r, http.StatusNotFound, "not_found", "deal not found", "id")
	default:
		zap.L().Error("api: deal transition failed",
			zap.String("component", "api"),
			zap.Int64("deal_id", id),
			zap.Error(err),
		)
		writeError(w, r, http.StatusInternalServerError, "transition_failed", "could not update deal", "")
	}
}

func (s *Server) authorizedAdmin(r *http.Request) bool {
	if s.opts.AdminToken == "" {
		return true
	}
	got := r.Header.Get(AdminTokenHeader)
	return subtle.ConstantTimeCompare([]byte(got), []byte(s.opts.AdminToken)) == 1
}
