package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourorg/logohunt-service/internal/collection"
	"github.com/yourorg/logohunt-service/internal/model"
	"github.com/yourorg/logohunt-service/internal/types"
	"github.com/yourorg/logohunt-service/internal/validation"
)

const maxBodyBytes = 1 << 16

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return types.Errorf(types.KindInvalidInput, "decode body", "invalid request body: %v", err)
	}
	return nil
}

// handleCollectLogo finds a logo for the wallet and dispatches it cross-chain
func (s *Server) handleCollectLogo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	// every accepted collect spends operator funds
	if s.rateLimit != nil && !s.rateLimit.Allow() {
		s.metrics.rateLimited.Inc()
		writeJSON(w, http.StatusTooManyRequests, ErrorResponse{
			Success: false,
			Error:   "RateLimited",
			Details: "Rate limit exceeded",
		})
		return
	}

	var req CollectRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.errorResponse(w, r, "collect_logo", err)
		return
	}

	res, err := s.collector.Collect(r.Context(), collection.Request{
		Wallet:      req.UserWallet,
		Origin:      req.Chain,
		Destination: req.Destination,
	})
	if err != nil {
		s.errorResponse(w, r, "collect_logo", err)
		return
	}

	writeJSON(w, http.StatusOK, CollectResponse{
		Success:            true,
		UserWallet:         res.Wallet.Hex(),
		Chain:              res.Origin,
		Destination:        res.Destination,
		Message:            "Logo collection successful",
		TotalLogos:         res.TotalLogos,
		PersonalCollection: res.PersonalCollection,
		Quote:              res.Quote.Ether(),
		QuoteWei:           res.Quote.Wei(),
		TransactionHash:    res.Transaction.Hash,
	})
}

// handleCheckCollection reports a wallet's collection on every chain
func (s *Server) handleCheckCollection(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	var req CheckCollectionRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.errorResponse(w, r, "check_collection", err)
		return
	}
	wallet, err := validation.ParseWallet(req.UserWallet)
	if err != nil {
		s.errorResponse(w, r, "check_collection", err)
		return
	}

	view, err := s.stats.UserStats(r.Context(), wallet)
	if err != nil {
		s.errorResponse(w, r, "check_collection", err)
		return
	}

	collected := make(map[string]uint64, len(view.Chains)+1)
	for _, c := range view.Chains {
		collected[c.Chain] = c.Snapshot.Personal
	}
	collected["total"] = view.PersonalTotal

	degraded := view.DegradedChains()
	if len(degraded) > 0 {
		s.metrics.degradedReplies.WithLabelValues("check_collection").Inc()
	}
	writeJSON(w, http.StatusOK, CheckCollectionResponse{
		Success:        true,
		UserWallet:     wallet.Hex(),
		Collection:     collected,
		GlobalStats:    chainCounters(view),
		DegradedChains: degraded,
	})
}

// handleGlobalStats reports the counters of every chain
func (s *Server) handleGlobalStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	view, err := s.stats.GlobalStats(r.Context())
	if err != nil {
		s.errorResponse(w, r, "global_stats", err)
		return
	}

	degraded := view.DegradedChains()
	if len(degraded) > 0 {
		s.metrics.degradedReplies.WithLabelValues("global_stats").Inc()
	}
	writeJSON(w, http.StatusOK, GlobalStatsResponse{
		Success:           true,
		GlobalStats:       chainCounters(view),
		TotalLogos:        view.TotalLogos,
		TotalParticipants: view.TotalParticipants,
		DegradedChains:    degraded,
	})
}

func chainCounters(view model.StatsView) map[string]ChainCounters {
	out := make(map[string]ChainCounters, len(view.Chains))
	for _, c := range view.Chains {
		out[c.Chain] = ChainCounters{Total: c.Snapshot.Total, Participants: c.Snapshot.Participants}
	}
	return out
}

// handleLeaderboard ranks the discovered candidates
func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	limit := s.opts.LeaderboardSize
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.errorResponse(w, r, "leaderboard", types.Errorf(types.KindInvalidInput, "leaderboard", "limit must be a positive integer, got %q", raw))
			return
		}
		limit = n
	}

	wallets, err := s.opts.CandidateSources.Candidates(r.Context())
	if err != nil {
		s.errorResponse(w, r, "leaderboard", err)
		return
	}

	entries, totalPlayers, err := s.leaderboard.Build(r.Context(), wallets, limit)
	if err != nil {
		s.errorResponse(w, r, "leaderboard", err)
		return
	}

	players := make([]LeaderboardPlayer, len(entries))
	for i, e := range entries {
		players[i] = LeaderboardPlayer{
			Rank:          i + 1,
			Wallet:        e.Address.Hex(),
			DisplayWallet: model.ShortAddress(e.Address),
			Total:         e.Total,
			PerChain:      e.PerChain,
		}
	}

	logrus.WithFields(logrus.Fields{
		"candidates": len(wallets),
		"players":    totalPlayers,
	}).Debug("Leaderboard built")

	writeJSON(w, http.StatusOK, LeaderboardResponse{
		Success:      true,
		TopPlayers:   players,
		TotalPlayers: totalPlayers,
	})
}

// handleHealth is a simple health check endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"service":   serviceName,
		"version":   Version,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"endpoints": map[string]string{
			"POST /collect-logo":     "Collect a logo for a user wallet",
			"POST /check-collection": "Check a user's logo collection",
			"GET /global-stats":      "Global logo counters per chain",
			"GET /leaderboard":       "Top players across all chains",
			"GET /health":            "Health check endpoint",
		},
	})
}

// handleStatus provides detailed service status information
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":         "operational",
		"uptime":         time.Since(s.startTime).String(),
		"version":        Version,
		"chains":         s.stats.Chains(),
		"circuit_states": s.opts.Breakers.States(),
		"configuration": map[string]interface{}{
			"leaderboard_size": s.opts.LeaderboardSize,
			"rate_limit_rps":   s.opts.RateLimitRPS,
			"rate_limit_burst": s.opts.RateLimitBurst,
		},
	})
}

// handleCircuitStatus allows viewing and resetting the per-chain breakers
func (s *Server) handleCircuitStatus(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("chain")
	if name == "" {
		writeJSON(w, http.StatusOK, map[string]interface{}{"states": s.opts.Breakers.States()})
		return
	}

	cb, ok := s.opts.Breakers.Get(name)
	if !ok {
		writeJSON(w, http.StatusNotFound, ErrorResponse{
			Success: false,
			Error:   "NotFound",
			Details: "unknown chain " + name,
		})
		return
	}

	response := map[string]interface{}{"chain": name}

	// Allow reset operation via POST
	if r.Method == http.MethodPost && r.URL.Query().Get("action") == "reset" {
		cb.Reset()
		response["message"] = "Circuit breaker reset"
	}

	response["state"] = cb.GetState()
	if err := cb.LastError(); err != nil {
		response["last_error"] = err.Error()
	}

	writeJSON(w, http.StatusOK, response)
}
