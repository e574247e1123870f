// internal/handlers/campaign/campaign.go
package campaign

import (
	"fmt"
	"net/http"

	"obcampaign-service/internal/domain/campaign"
	"obcampaign-service/internal/middleware"
	xerrors "obcampaign-service/internal/pkg/errors"
	"obcampaign-service/internal/pkg/response"
	service "obcampaign-service/internal/service/campaign"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type CampaignHandler struct {
	campaignService *service.CampaignService
	logger          *zap.Logger
}

func NewCampaignHandler(campaignService *service.CampaignService, logger *zap.Logger) *CampaignHandler {
	return &CampaignHandler{
		campaignService: campaignService,
		logger:          logger,
	}
}

// ========== Write Endpoints ==========

func (h *CampaignHandler) CreateCampaign(c *gin.Context) {
	var req campaign.CampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	result, err := h.campaignService.CreateCampaign(c.Request.Context(), &req)
	if err != nil {
		response.FromError(c, "failed to create campaign", err)
		return
	}

	response.Success(c, http.StatusCreated, "campaign created successfully", result)
}

// UpdateCampaign overlays the request on the stored campaign. A status change
// to start or stop goes through the same manual guards as SetStatus.
func (h *CampaignHandler) UpdateCampaign(c *gin.Context) {
	var req campaign.CampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	ctx := c.Request.Context()
	uuid := c.Param("uuid")

	if req.Status != nil {
		status, err := campaign.ParseStatus(*req.Status)
		if err != nil {
			response.FromError(c, "invalid status", err)
			return
		}
		if status == campaign.StatusStart || status == campaign.StatusStop {
			current, err := h.campaignService.GetCampaign(ctx, uuid)
			if err != nil {
				response.FromError(c, "failed to get campaign", err)
				return
			}
			if current.Status != status {
				if err := h.checkManual(c, current, status); err != nil {
					response.FromError(c, "status change refused", err)
					return
				}
			}
		}
	}

	result, err := h.campaignService.PatchCampaign(ctx, uuid, &req)
	if err != nil {
		response.FromError(c, "failed to update campaign", err)
		return
	}

	response.Success(c, http.StatusOK, "campaign updated successfully", result)
}

func (h *CampaignHandler) DeleteCampaign(c *gin.Context) {
	result, err := h.campaignService.DeleteCampaign(c.Request.Context(), c.Param("uuid"))
	if err != nil {
		response.FromError(c, "failed to delete campaign", err)
		return
	}

	response.Success(c, http.StatusOK, "campaign deleted successfully", result)
}

// SetStatus writes a status directly. Manual start and stop requests are
// subject to the manual guards.
func (h *CampaignHandler) SetStatus(c *gin.Context) {
	var req campaign.SetStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	status, err := campaign.ParseStatus(req.Status)
	if err != nil {
		response.FromError(c, "invalid status", err)
		return
	}

	ctx := c.Request.Context()
	uuid := c.Param("uuid")

	switch status {
	case campaign.StatusStart, campaign.StatusStop:
		current, err := h.campaignService.GetCampaign(ctx, uuid)
		if err != nil {
			response.FromError(c, "failed to get campaign", err)
			return
		}
		if err := h.checkManual(c, current, status); err != nil {
			response.FromError(c, "status change refused", err)
			return
		}
	}

	result, err := h.campaignService.SetStatus(ctx, uuid, status)
	if err != nil {
		response.FromError(c, "failed to set campaign status", err)
		return
	}

	h.logger.Info("campaign status set by operator",
		zap.String("uuid", uuid),
		zap.String("status", string(status)),
		zap.String("operator", operatorOf(c)),
	)
	response.Success(c, http.StatusOK, "campaign status updated successfully", result)
}

// RequestAction asks the executor to start, stop, pause or resume a campaign.
func (h *CampaignHandler) RequestAction(c *gin.Context) {
	action, err := campaign.ParseAction(c.Param("action"))
	if err != nil {
		response.FromError(c, "invalid action", err)
		return
	}

	req, err := h.campaignService.RequestTransition(c.Request.Context(), c.Param("uuid"), action, campaign.ReasonManual)
	if err != nil {
		response.FromError(c, "failed to request transition", err)
		return
	}

	h.logger.Info("campaign action requested by operator",
		zap.String("uuid", req.CampaignUUID),
		zap.String("action", string(action)),
		zap.String("operator", operatorOf(c)),
	)
	response.Success(c, http.StatusAccepted, "transition requested", req)
}

// ========== Read Endpoints ==========

func (h *CampaignHandler) GetCampaign(c *gin.Context) {
	result, err := h.campaignService.GetCampaign(c.Request.Context(), c.Param("uuid"))
	if err != nil {
		response.FromError(c, "campaign not found", err)
		return
	}

	response.Success(c, http.StatusOK, "campaign retrieved successfully", result)
}

func (h *CampaignHandler) GetDeletedCampaign(c *gin.Context) {
	result, err := h.campaignService.GetDeletedCampaign(c.Request.Context(), c.Param("uuid"))
	if err != nil {
		response.FromError(c, "deleted campaign not found", err)
		return
	}

	response.Success(c, http.StatusOK, "deleted campaign retrieved successfully", result)
}

func (h *CampaignHandler) ListCampaigns(c *gin.Context) {
	result, err := h.campaignService.ListCampaigns(c.Request.Context())
	if err != nil {
		response.FromError(c, "failed to list campaigns", err)
		return
	}

	response.Success(c, http.StatusOK, "campaigns retrieved successfully", result)
}

func (h *CampaignHandler) ListCampaignUUIDs(c *gin.Context) {
	result, err := h.campaignService.ListCampaignUUIDs(c.Request.Context())
	if err != nil {
		response.FromError(c, "failed to list campaign uuids", err)
		return
	}

	response.Success(c, http.StatusOK, "campaign uuids retrieved successfully", result)
}

func (h *CampaignHandler) ListCampaignsByStatus(c *gin.Context) {
	status, err := campaign.ParseStatus(c.Param("status"))
	if err != nil {
		response.FromError(c, "invalid status", err)
		return
	}

	result, err := h.campaignService.ListCampaignsByStatus(c.Request.Context(), status)
	if err != nil {
		response.FromError(c, "failed to list campaigns", err)
		return
	}

	response.Success(c, http.StatusOK, "campaigns retrieved successfully", result)
}

func (h *CampaignHandler) EligibleToStart(c *gin.Context) {
	result, err := h.campaignService.EligibleToStart(c.Request.Context())
	if err != nil {
		response.FromError(c, "failed to evaluate schedules", err)
		return
	}

	response.Success(c, http.StatusOK, "campaigns eligible to start", result)
}

func (h *CampaignHandler) EligibleToStop(c *gin.Context) {
	result, err := h.campaignService.EligibleToStop(c.Request.Context())
	if err != nil {
		response.FromError(c, "failed to evaluate schedules", err)
		return
	}

	response.Success(c, http.StatusOK, "campaigns eligible to stop", result)
}

func (h *CampaignHandler) GetCampaignStat(c *gin.Context) {
	result, err := h.campaignService.GetCampaignStat(c.Request.Context(), c.Param("uuid"))
	if err != nil {
		response.FromError(c, "failed to get campaign statistics", err)
		return
	}

	response.Success(c, http.StatusOK, "campaign statistics retrieved successfully", result)
}

func (h *CampaignHandler) GetCampaignStats(c *gin.Context) {
	result, err := h.campaignService.GetCampaignStats(c.Request.Context())
	if err != nil {
		response.FromError(c, "failed to get campaign statistics", err)
		return
	}

	response.Success(c, http.StatusOK, "campaign statistics retrieved successfully", result)
}

// ========== Reference Endpoints ==========

func (h *CampaignHandler) IsReferenced(c *gin.Context) {
	kind, err := campaign.ParseRefKind(c.Param("kind"))
	if err != nil {
		response.FromError(c, "invalid reference kind", err)
		return
	}
	id := c.Param("id")

	referenced, err := h.campaignService.IsReferenced(c.Request.Context(), kind, id)
	if err != nil {
		response.FromError(c, "failed to check reference", err)
		return
	}

	response.Success(c, http.StatusOK, "reference checked", campaign.ReferenceResponse{
		Kind:       kind,
		ID:         id,
		Referenced: referenced,
	})
}

func (h *CampaignHandler) ClearReference(c *gin.Context) {
	kind, err := campaign.ParseRefKind(c.Param("kind"))
	if err != nil {
		response.FromError(c, "invalid reference kind", err)
		return
	}

	cleared, err := h.campaignService.ClearReference(c.Request.Context(), kind, c.Param("id"))
	if err != nil {
		response.FromError(c, "failed to clear reference", err)
		return
	}

	response.Success(c, http.StatusOK, "reference cleared", gin.H{
		"kind":    kind,
		"id":      c.Param("id"),
		"cleared": cleared,
	})
}

// ========== Helpers ==========

func (h *CampaignHandler) checkManual(c *gin.Context, current *campaign.Campaign, status campaign.Status) error {
	if status == campaign.StatusStart {
		if !h.campaignService.IsManuallyStartable(current) {
			return fmt.Errorf("%w: campaign cannot be started", xerrors.ErrConflict)
		}
		return nil
	}

	ok, err := h.campaignService.IsManuallyStoppable(c.Request.Context(), current)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: campaign has dial attempts in progress", xerrors.ErrConflict)
	}
	return nil
}

func operatorOf(c *gin.Context) string {
	id, _ := middleware.GetOperatorID(c)
	return id
}
