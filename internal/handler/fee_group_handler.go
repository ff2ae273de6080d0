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

// FeeGroupHandler handles admin-facing fee group management (CRUD).
type FeeGroupHandler struct {
	feeGroupService *service.FeeGroupService
	log             zerolog.Logger
}

// NewFeeGroupHandler creates a new FeeGroupHandler.
func NewFeeGroupHandler(feeGroupService *service.FeeGroupService, log zerolog.Logger) *FeeGroupHandler {
	return &FeeGroupHandler{
		feeGroupService: feeGroupService,
		log:             log.With().Str("component", "fee_group_handler").Logger(),
	}
}

// ListFeeGroups godoc
// GET /api/v1/fee-groups
func (h *FeeGroupHandler) ListFeeGroups(c *gin.Context) {
	groups, err := h.feeGroupService.List(c.Request.Context(), middleware.BranchID(c))
	if err != nil {
		failFromService(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"fee_groups": groups})
}

// CreateFeeGroup godoc
// POST /api/v1/fee-groups
func (h *FeeGroupHandler) CreateFeeGroup(c *gin.Context) {
	branchID, ok := requireBranch(c, h.log)
	if !ok {
		return
	}

	var req model.CreateFeeGroupRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	group, err := h.feeGroupService.Create(c.Request.Context(), branchID, req)
	if err != nil {
		failFromService(c, h.log, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"fee_group": group})
}

// UpdateFeeGroup godoc
// PUT /api/v1/fee-groups/:id
func (h *FeeGroupHandler) UpdateFeeGroup(c *gin.Context) {
	branchID, ok := requireBranch(c, h.log)
	if !ok {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.UpdateFeeGroupRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	group, err := h.feeGroupService.Update(c.Request.Context(), branchID, id, req)
	if err != nil {
		failFromService(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"fee_group": group})
}

// DeleteFeeGroup godoc
// DELETE /api/v1/fee-groups/:id
// Fails with DEPENDENCY_EXISTS while a concession still references the group.
func (h *FeeGroupHandler) DeleteFeeGroup(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.feeGroupService.Delete(c.Request.Context(), middleware.BranchID(c), id); err != nil {
		failFromService(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "fee group deleted successfully"})
}
