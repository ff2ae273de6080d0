package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/stemsi/sekolah-backend/internal/response"
	"github.com/stemsi/sekolah-backend/internal/service"
)

// failFromService maps a service error onto the response envelope. Errors
// that are not part of the domain taxonomy are logged and reported as 500.
func failFromService(c *gin.Context, log zerolog.Logger, err error) {
	var ve *service.ValidationError
	if errors.As(err, &ve) {
		response.FailWithMessage(c, http.StatusBadRequest, response.ErrValidation, ve.Message,
			map[string]string{ve.Field: ve.Message})
		return
	}

	switch {
	case errors.Is(err, service.ErrBranchMissing):
		log.Error().Str("path", c.FullPath()).Msg("Authenticated request without branch claim")
		response.Fail(c, http.StatusBadRequest, response.ErrBranchMissing)
		return
	case errors.Is(err, service.ErrNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	case errors.Is(err, service.ErrBranchBusy):
		response.Fail(c, http.StatusConflict, response.ErrBranchBusy)
		return
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			response.Fail(c, http.StatusConflict, response.ErrConflict)
			return
		case "23503":
			response.Fail(c, http.StatusConflict, response.ErrDependencyExists)
			return
		}
	}

	log.Error().Err(err).
		Str("method", c.Request.Method).
		Str("path", c.FullPath()).
		Str("request_id", c.GetString(response.ContextKeyRequestID)).
		Msg("Request failed")
	response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
}
