package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/princeprakhar/review-widget-backend/internal/services"
	"github.com/princeprakhar/review-widget-backend/internal/utils"
)

type AdminHandler struct {
	sweepJob           *services.SweepJob
	consumptionService *services.ConsumptionService
}

func NewAdminHandler(sweepJob *services.SweepJob, consumptionService *services.ConsumptionService) *AdminHandler {
	return &AdminHandler{sweepJob: sweepJob, consumptionService: consumptionService}
}

// TriggerSweep runs the scheduled sweep now and waits for it. The run outlives a dropped connection.
func (h *AdminHandler) TriggerSweep(c *gin.Context) {
	report, err := h.sweepJob.Run(context.WithoutCancel(c.Request.Context()))
	if errors.Is(err, services.ErrSweepAborted) {
		// the report still says how far the run got
		c.JSON(http.StatusBadGateway, utils.APIResponse{
			Success: false,
			Message: "Review sweep aborted",
			Data:    report,
			Error:   "upstream rejected credentials",
		})
		return
	}
	if err != nil {
		sendServiceError(c, "Review sweep failed", err)
		return
	}
	utils.SendSuccess(c, "Review sweep completed", report)
}

func (h *AdminHandler) GetConsumption(c *gin.Context) {
	var userID uint
	if raw := c.Param("user_id"); raw != "" {
		id, ok := parseID(raw)
		if !ok {
			utils.SendValidationError(c, "Invalid user ID")
			return
		}
		userID = id
	}

	report, err := h.consumptionService.MonthlyUsage(c.Request.Context(), userID)
	if err != nil {
		sendServiceError(c, "Failed to fetch API consumption", err)
		return
	}
	utils.SendSuccess(c, "API consumption retrieved successfully", report)
}
