package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"warships-rating/internal/domain"
	"warships-rating/internal/service"
	"warships-rating/internal/stats"

	"github.com/rs/zerolog"
)

// RatingServer is the JSON surface over the rating engine.
type RatingServer struct {
	playerSvc    *service.PlayerService
	clanSvc      *service.ClanService
	watchlistSvc *service.WatchlistService
	logger       zerolog.Logger
}

func NewRatingServer(playerSvc *service.PlayerService, clanSvc *service.ClanService, watchlistSvc *service.WatchlistService, logger zerolog.Logger) *RatingServer {
	return &RatingServer{playerSvc: playerSvc, clanSvc: clanSvc, watchlistSvc: watchlistSvc, logger: logger}
}

// Register mounts the API routes.
func (s *RatingServer) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/players/{region}/{id}/rating", s.handlePlayerRating)
	mux.HandleFunc("GET /v1/clans/{region}/{id}/rating", s.handleClanRating)
	mux.HandleFunc("GET /v1/watchlist/{channel}", s.handleWatchlistList)
	mux.HandleFunc("POST /v1/watchlist/{channel}", s.handleWatchlistAdd)
	mux.HandleFunc("DELETE /v1/watchlist/{channel}/{region}/{id}", s.handleWatchlistRemove)
	mux.HandleFunc("GET /v1/watchlist/{channel}/ratings", s.handleWatchlistRatings)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

type playerRatingResponse struct {
	AccountID   int64                   `json:"account_id"`
	Region      string                  `json:"region"`
	Nickname    string                  `json:"nickname"`
	ClanTag     string                  `json:"clan_tag,omitempty"`
	Rating      float64                 `json:"rating"`
	Bucket      string                  `json:"bucket"`
	Color       string                  `json:"color"`
	Stale       bool                    `json:"stale"`
	AllTime     stats.Sample            `json:"all_time"`
	Recent      stats.Sample            `json:"recent,omitempty"`
	RecentSince string                  `json:"recent_since,omitempty"`
	PerShip     map[string]stats.Sample `json:"per_ship,omitempty"`
	FetchedAt   time.Time               `json:"fetched_at"`
}

func toPlayerResponse(r *domain.PlayerRating) playerRatingResponse {
	resp := playerRatingResponse{
		AccountID: r.AccountID,
		Region:    r.Region,
		Nickname:  r.Nickname,
		ClanTag:   r.ClanTag,
		Rating:    r.Rating,
		Bucket:    r.Bucket.String(),
		Color:     r.Bucket.Color(),
		Stale:     r.Stale,
		AllTime:   r.AllTime,
		Recent:    r.Recent,
		FetchedAt: r.FetchedAt,
	}
	if r.RecentSince != nil {
		resp.RecentSince = r.RecentSince.Format("2006-01-02")
	}
	if len(r.PerShip) > 0 {
		resp.PerShip = make(map[string]stats.Sample, len(r.PerShip))
		for id, sample := range r.PerShip {
			resp.PerShip[strconv.FormatInt(id, 10)] = sample
		}
	}
	return resp
}

type memberRatingResponse struct {
	AccountID int64   `json:"account_id"`
	Nickname  string  `json:"nickname"`
	Rating    float64 `json:"rating"`
	Bucket    string  `json:"bucket"`
	Battles   float64 `json:"battles"`
}

type clanRatingResponse struct {
	ClanID      int64                  `json:"clan_id"`
	Region      string                 `json:"region"`
	Name        string                 `json:"name"`
	Tag         string                 `json:"tag"`
	Description string                 `json:"description,omitempty"`
	Rating      float64                `json:"rating"`
	Bucket      string                 `json:"bucket"`
	Color       string                 `json:"color"`
	Stale       bool                   `json:"stale"`
	Members     []memberRatingResponse `json:"members"`
	Combined    stats.Sample           `json:"combined"`
	FetchedAt   time.Time              `json:"fetched_at"`
}

func toClanResponse(r *domain.ClanRating) clanRatingResponse {
	members := make([]memberRatingResponse, len(r.Members))
	for i, m := range r.Members {
		members[i] = memberRatingResponse{
			AccountID: m.AccountID,
			Nickname:  m.Nickname,
			Rating:    m.Rating,
			Bucket:    m.Bucket.String(),
			Battles:   m.Battles,
		}
	}
	return clanRatingResponse{
		ClanID:      r.ClanID,
		Region:      r.Region,
		Name:        r.Name,
		Tag:         r.Tag,
		Description: r.Description,
		Rating:      r.Rating,
		Bucket:      r.Bucket.String(),
		Color:       r.Bucket.Color(),
		Stale:       r.Stale,
		Members:     members,
		Combined:    r.Combined,
		FetchedAt:   r.FetchedAt,
	}
}

func (s *RatingServer) handlePlayerRating(w http.ResponseWriter, r *http.Request) {
	region := r.PathValue("region")
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid account id")
		return
	}
	refresh := r.URL.Query().Get("refresh") == "1"

	result, err := s.playerSvc.GetRating(r.Context(), region, id, refresh)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toPlayerResponse(result))
}

func (s *RatingServer) handleClanRating(w http.ResponseWriter, r *http.Request) {
	region := r.PathValue("region")
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid clan id")
		return
	}
	refresh := r.URL.Query().Get("refresh") == "1"

	result, err := s.clanSvc.GetRating(r.Context(), region, id, refresh)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toClanResponse(result))
}

type watchlistAddRequest struct {
	Region    string `json:"region"`
	AccountID int64  `json:"account_id"`
}

type trackedPlayerResponse struct {
	ID        string    `json:"id"`
	Channel   string    `json:"channel"`
	Region    string    `json:"region"`
	AccountID int64     `json:"account_id"`
	AddedAt   time.Time `json:"added_at"`
}

func (s *RatingServer) handleWatchlistAdd(w http.ResponseWriter, r *http.Request) {
	channel := r.PathValue("channel")

	var req watchlistAddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Region == "" || req.AccountID == 0 {
		s.writeError(w, http.StatusBadRequest, "region and account_id are required")
		return
	}

	entry, err := s.watchlistSvc.Add(r.Context(), channel, req.Region, req.AccountID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, trackedPlayerResponse{
		ID:        entry.ID,
		Channel:   entry.Channel,
		Region:    entry.Region,
		AccountID: entry.AccountID,
		AddedAt:   entry.AddedAt,
	})
}

func (s *RatingServer) handleWatchlistList(w http.ResponseWriter, r *http.Request) {
	entries, err := s.watchlistSvc.List(r.Context(), r.PathValue("channel"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	resp := make([]trackedPlayerResponse, len(entries))
	for i, entry := range entries {
		resp[i] = trackedPlayerResponse{
			ID:        entry.ID,
			Channel:   entry.Channel,
			Region:    entry.Region,
			AccountID: entry.AccountID,
			AddedAt:   entry.AddedAt,
		}
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *RatingServer) handleWatchlistRemove(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid account id")
		return
	}
	if err := s.watchlistSvc.Remove(r.Context(), r.PathValue("channel"), r.PathValue("region"), id); err != nil {
		s.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *RatingServer) handleWatchlistRatings(w http.ResponseWriter, r *http.Request) {
	ratings, err := s.watchlistSvc.Ratings(r.Context(), r.PathValue("channel"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	resp := make([]playerRatingResponse, len(ratings))
	for i, pr := range ratings {
		resp[i] = toPlayerResponse(pr)
	}
	s.writeJSON(w, http.StatusOK, resp)
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *RatingServer) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		s.writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrHiddenProfile):
		s.writeError(w, http.StatusForbidden, "profile is hidden")
	case errors.Is(err, domain.ErrUpstreamUnavailable),
		errors.Is(err, domain.ErrReferenceDataUnavailable):
		s.writeError(w, http.StatusServiceUnavailable, "try again later")
	default:
		s.logger.Error().Err(err).Msg("unhandled error in handler")
		s.writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *RatingServer) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorResponse{Error: msg})
}

func (s *RatingServer) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error().Err(err).Msg("failed to encode response")
	}
}
