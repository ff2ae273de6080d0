package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/sekolah-backend/internal/middleware"
	"github.com/stemsi/sekolah-backend/internal/model"
	"github.com/stemsi/sekolah-backend/internal/response"
	"github.com/stemsi/sekolah-backend/internal/service"
	"github.com/stemsi/sekolah-backend/internal/validator"
)

// ConcessionHandler serves the branch's fee concession policies.
type ConcessionHandler struct {
	concessionService *service.ConcessionService
	log               zerolog.Logger
}

// NewConcessionHandler creates a new ConcessionHandler.
func NewConcessionHandler(concessionService *service.ConcessionService, log zerolog.Logger) *ConcessionHandler {
	return &ConcessionHandler{
		concessionService: concessionService,
		log:               log.With().Str("component", "concession_handler").Logger(),
	}
}

// ListConcessions godoc
// GET /api/v1/concessions
func (h *ConcessionHandler) ListConcessions(c *gin.Context) {
	concessions, err := h.concessionService.List(c.Request.Context(), middleware.BranchID(c))
	if err != nil {
		failFromService(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"concessions": concessions})
}

// GetConcession godoc
// GET /api/v1/concessions/:id
func (h *ConcessionHandler) GetConcession(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	concession, err := h.concessionService.Get(c.Request.Context(), middleware.BranchID(c), id)
	if err != nil {
		failFromService(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"concession": concession})
}

// ListFeeGroups godoc
// GET /api/v1/concessions/fee-groups
// Returns {id, name} of every fee group a concession has to cover.
func (h *ConcessionHandler) ListFeeGroups(c *gin.Context) {
	refs, err := h.concessionService.ListFeeGroupRefs(c.Request.Context(), middleware.BranchID(c))
	if err != nil {
		failFromService(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"fee_groups": refs})
}

// ListCategories godoc
// GET /api/v1/concessions/categories
func (h *ConcessionHandler) ListCategories(c *gin.Context) {
	response.Success(c, http.StatusOK, gin.H{"categories": h.concessionService.Categories()})
}

// CreateConcession godoc
// POST /api/v1/concessions
func (h *ConcessionHandler) CreateConcession(c *gin.Context) {
	branchID, ok := requireBranch(c, h.log)
	if !ok {
		return
	}

	var req model.ConcessionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrInvalidPayload, fields)
		return
	}

	concession, err := h.concessionService.Create(c.Request.Context(), branchID, middleware.ActorID(c), req)
	if err != nil {
		failFromService(c, h.log, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"concession": concession})
}

// UpdateConcession godoc
// PUT /api/v1/concessions/:id
// Replaces category and discounts; coverage is checked against today's fee groups.
func (h *ConcessionHandler) UpdateConcession(c *gin.Context) {
	branchID, ok := requireBranch(c, h.log)
	if !ok {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.ConcessionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrInvalidPayload, fields)
		return
	}

	concession, err := h.concessionService.Update(c.Request.Context(), branchID, middleware.ActorID(c), id, req)
	if err != nil {
		failFromService(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"concession": concession})
}

// DeleteConcession godoc
// DELETE /api/v1/concessions/:id
func (h *ConcessionHandler) DeleteConcession(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.concessionService.Delete(c.Request.Context(), middleware.BranchID(c), middleware.ActorID(c), id); err != nil {
		failFromService(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "Concession deleted successfully"})
}
