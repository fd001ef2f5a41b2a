package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/yourorg/logohunt-service/internal/otel"
	"github.com/yourorg/logohunt-service/internal/types"
)

// ErrorResponse is the failure envelope of every endpoint
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Details string `json:"details"`
}

// ChainCounters is the per-chain entry of globalStats
type ChainCounters struct {
	Total        uint64 `json:"total"`
	Participants uint64 `json:"participants"`
}

// CollectRequest is the body of POST /collect-logo
type CollectRequest struct {
	UserWallet  string `json:"userWallet"`
	Chain       string `json:"chain"`
	Destination string `json:"destination,omitempty"`
}

// CollectResponse is returned by a successful collect
type CollectResponse struct {
	Success            bool   `json:"success"`
	UserWallet         string `json:"userWallet"`
	Chain              string `json:"chain"`
	Destination        string `json:"destination"`
	Message            string `json:"message"`
	TotalLogos         uint64 `json:"totalLogos"`
	PersonalCollection uint64 `json:"personalCollection"`
	Quote              string `json:"quote"`
	QuoteWei           string `json:"quoteWei"`
	TransactionHash    string `json:"transactionHash"`
}

// CheckCollectionRequest is the body of POST /check-collection
type CheckCollectionRequest struct {
	UserWallet string `json:"userWallet"`
}

// CheckCollectionResponse carries per-chain personal counts plus "total"
type CheckCollectionResponse struct {
	Success        bool                     `json:"success"`
	UserWallet     string                   `json:"userWallet"`
	Collection     map[string]uint64        `json:"collection"`
	GlobalStats    map[string]ChainCounters `json:"globalStats"`
	DegradedChains []string                 `json:"degradedChains,omitempty"`
}

// GlobalStatsResponse is returned by GET /global-stats
type GlobalStatsResponse struct {
	Success           bool                     `json:"success"`
	GlobalStats       map[string]ChainCounters `json:"globalStats"`
	TotalLogos        uint64                   `json:"totalLogos"`
	TotalParticipants uint64                   `json:"totalParticipants"`
	DegradedChains    []string                 `json:"degradedChains,omitempty"`
}

// LeaderboardPlayer is one ranked row
type LeaderboardPlayer struct {
	Rank          int               `json:"rank"`
	Wallet        string            `json:"wallet"`
	DisplayWallet string            `json:"displayWallet"`
	Total         uint64            `json:"total"`
	PerChain      map[string]uint64 `json:"perChain"`
}

// LeaderboardResponse is returned by GET /leaderboard
type LeaderboardResponse struct {
	Success      bool                `json:"success"`
	TopPlayers   []LeaderboardPlayer `json:"topPlayers"`
	TotalPlayers int                 `json:"totalPlayers"`
}

// statusForError maps an error kind to its HTTP status
func statusForError(err error) int {
	switch types.KindOf(err) {
	case types.KindInvalidInput:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func methodNotAllowed(w http.ResponseWriter, allowed string) {
	w.Header().Set("Allow", allowed)
	writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{
		Success: false,
		Error:   "MethodNotAllowed",
		Details: "use " + allowed,
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logrus.Warnf("Failed to write response: %v", err)
	}
}

// errorResponse writes the failure envelope for err
func (s *Server) errorResponse(w http.ResponseWriter, r *http.Request, endpoint string, err error) {
	status := statusForError(err)
	kind := types.KindOf(err)

	details := err.Error()
	var typed *types.Error
	if errors.As(err, &typed) {
		details = typed.Cause()
	}

	entry := logrus.WithFields(logrus.Fields{
		"endpoint": endpoint,
		"status":   status,
		"kind":     kind,
	})
	if status >= http.StatusInternalServerError {
		entry.Error(details)
	} else {
		entry.Warn(details)
	}

	otel.RecordError(r.Context(), err)

	writeJSON(w, status, ErrorResponse{
		Success: false,
		Error:   string(kind),
		Details: details,
	})
}
