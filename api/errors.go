package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/wricardo/mcp-training/crucible/route/config"
	"github.com/wricardo/mcp-training/crucible/route/engine"
	"github.com/wricardo/mcp-training/crucible/route/grid"
	"github.com/wricardo/mcp-training/crucible/route/puzzle"
	"github.com/wricardo/mcp-training/crucible/route/service"
	"github.com/wricardo/mcp-training/crucible/route/session"
)

// StatusFor maps a service error to the HTTP status returned to clients
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, session.ErrSessionNotFound), errors.Is(err, config.ErrPuzzleNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrSessionAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, puzzle.ErrInvalidPuzzle),
		errors.Is(err, grid.ErrMalformedGrid),
		errors.Is(err, engine.ErrUnknownRegime),
		errors.Is(err, service.ErrCellOutOfBounds):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrUnreachable):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
