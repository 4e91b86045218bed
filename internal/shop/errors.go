package shop

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"MiniShop/internal/apperr"
	"MiniShop/pkg/kit"
)

// writeError maps the error kinds to responses. Storage faults are logged
// and answered without internals.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, apperr.ErrValidation):
		kit.WriteError(w, r, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, apperr.ErrNotFound):
		kit.WriteError(w, r, http.StatusNotFound, err.Error(), nil)
	case errors.Is(err, apperr.ErrEmptyCart):
		kit.WriteError(w, r, http.StatusConflict, "cart empty", nil)
	default:
		s.log().Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
	}
}

func (s *Server) writeBadJSON(w http.ResponseWriter, r *http.Request, err error) {
	kit.WriteError(w, r, http.StatusBadRequest, "bad json", map[string]any{"cause": err.Error()})
}
