package handlers

import (
	"errors"
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/cogentx/cogentx/internal/services/chunker"
	"github.com/cogentx/cogentx/internal/services/llm"
	"github.com/cogentx/cogentx/internal/services/query"
)

// writeEngineError maps engine and provider failures onto HTTP statuses.
// Invalid input is the caller's fault (400). Provider faults surface with
// codes that distinguish rate limiting (429), a broken provider setup (502)
// and a transiently unreachable backend (503).
func writeEngineError(w http.ResponseWriter, logger arbor.ILogger, err error) {
	switch {
	case errors.Is(err, query.ErrEmptyQuestion),
		errors.Is(err, query.ErrEmptyDocument),
		errors.Is(err, chunker.ErrInvalidParameters):
		WriteError(w, http.StatusBadRequest, err.Error())

	case errors.Is(err, llm.ErrRateLimited):
		logger.Warn().Err(err).Msg("Provider rate limited")
		WriteError(w, http.StatusTooManyRequests, err.Error())

	case errors.Is(err, llm.ErrMisconfigured):
		logger.Warn().Err(err).Msg("Provider misconfigured")
		WriteError(w, http.StatusBadGateway, err.Error())

	case errors.Is(err, llm.ErrProviderUnavailable):
		logger.Error().Err(err).Msg("Provider unavailable")
		WriteError(w, http.StatusServiceUnavailable, err.Error())

	default:
		logger.Error().Err(err).Msg("Request failed")
		WriteError(w, http.StatusInternalServerError, err.Error())
	}
}
