package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/sekolah-backend/internal/middleware"
	"github.com/stemsi/sekolah-backend/internal/service"
)

// requireBranch returns the caller's branch. When the token has none it
// writes BRANCH_MISSING and returns false, before any input is looked at.
func requireBranch(c *gin.Context, log zerolog.Logger) (uuid.UUID, bool) {
	branchID := middleware.BranchID(c)
	if branchID == uuid.Nil {
		failFromService(c, log, service.ErrBranchMissing)
		return uuid.Nil, false
	}
	return branchID, true
}
