// Package handler maps the two transport-neutral core operations
// (curate, cache_status) onto a thin gin surface. No auth, CORS
// policy or session handling lives here; those belong to the external
// transport layer.
package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	httpPlatform "github.com/talentcurate/pipeline/internal/platform/http"
	"github.com/talentcurate/pipeline/modules/curation/model"
	shortlistService "github.com/talentcurate/pipeline/modules/shortlist/service"
)

// curator is the engine surface this handler maps HTTP onto.
type curator interface {
	Curate(ctx context.Context, req model.CurateRequest) (*model.ShortlistResponse, error)
	CacheStatus(ctx context.Context, companyID string) ([]shortlistService.RoleStatus, error)
}

// CurationHandler handles curation HTTP requests.
type CurationHandler struct {
	engine curator
}

// NewCurationHandler creates a new curation handler.
func NewCurationHandler(eng curator) *CurationHandler {
	return &CurationHandler{engine: eng}
}

// RegisterRoutes registers the curation routes on the given group.
func (h *CurationHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/curate", h.Curate)
	rg.GET("/companies/:company_id/cache-status", h.CacheStatus)
}

// Curate runs or serves a shortlist for (company, role).
func (h *CurationHandler) Curate(c *gin.Context) {
	var req model.CurateRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		httpPlatform.RespondWithError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request payload")
		return
	}

	resp, err := h.engine.Curate(c.Request.Context(), model.CurateRequest{
		CompanyID:           req.CompanyID,
		RoleID:              req.RoleID,
		Limit:               req.Limit,
		ForceRefresh:        req.ForceRefresh,
		DisableStaleOnError: req.DisableStaleOnError,
	})
	if err != nil {
		respondCurationError(c, err)
		return
	}

	httpPlatform.RespondWithData(c, http.StatusOK, resp.ToDTO())
}

// CacheStatus reports each of the company's roles' shortlist cache state.
func (h *CurationHandler) CacheStatus(c *gin.Context) {
	companyID := c.Param("company_id")

	statuses, err := h.engine.CacheStatus(c.Request.Context(), companyID)
	if err != nil {
		respondCurationError(c, err)
		return
	}

	httpPlatform.RespondWithData(c, http.StatusOK, gin.H{"roles": model.RoleStatusesToDTO(statuses)})
}

func respondCurationError(c *gin.Context, err error) {
	errorCode := model.GetErrorCode(err)

	statusCode := http.StatusInternalServerError
	switch errorCode {
	case model.CodeRoleNotFound, model.CodeCompanyNotFound:
		statusCode = http.StatusNotFound
	case model.CodeDeadline:
		statusCode = http.StatusGatewayTimeout
	case model.CodeBuildFailed, model.CodeTransient:
		statusCode = http.StatusServiceUnavailable
	}

	httpPlatform.RespondWithError(c, statusCode, string(errorCode), model.GetErrorMessage(err))
}
