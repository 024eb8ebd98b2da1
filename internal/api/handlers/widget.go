package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/princeprakhar/review-widget-backend/internal/api/middleware"
	"github.com/princeprakhar/review-widget-backend/internal/models"
	"github.com/princeprakhar/review-widget-backend/internal/services"
	"github.com/princeprakhar/review-widget-backend/internal/utils"
)

type WidgetHandler struct {
	reviewService *services.ReviewService
	widgetService *services.WidgetService
}

func NewWidgetHandler(reviewService *services.ReviewService, widgetService *services.WidgetService) *WidgetHandler {
	return &WidgetHandler{reviewService: reviewService, widgetService: widgetService}
}

// GetWidgetScript serves the embeddable script for ?widget_id=.
func (h *WidgetHandler) GetWidgetScript(c *gin.Context) {
	widgetID, ok := parseID(c.Query("widget_id"))
	if !ok {
		utils.SendValidationError(c, "Missing or invalid widget_id")
		return
	}
	filter, ok := parseFilter(c)
	if !ok {
		return
	}

	payload, err := h.reviewService.GetWidgetPayload(c.Request.Context(), services.DisplayRequest{
		WidgetID: widgetID,
		Referrer: c.GetHeader("Referer"),
		Filter:   filter,
	})
	if err != nil {
		sendServiceError(c, "Failed to load widget", err)
		return
	}

	script, err := utils.RenderWidgetScript(widgetID, payload)
	if err != nil {
		sendServiceError(c, "Failed to render widget", err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "application/javascript; charset=utf-8", script)
}

// GetWidgetReviews returns the same payload as the script, as JSON.
func (h *WidgetHandler) GetWidgetReviews(c *gin.Context) {
	widgetID, ok := parseID(c.Param("widget_id"))
	if !ok {
		utils.SendValidationError(c, "Invalid widget ID")
		return
	}
	filter, ok := parseFilter(c)
	if !ok {
		return
	}

	payload, err := h.reviewService.GetWidgetPayload(c.Request.Context(), services.DisplayRequest{
		WidgetID: widgetID,
		Referrer: c.GetHeader("Referer"),
		Filter:   filter,
	})
	if err != nil {
		sendServiceError(c, "Failed to load widget", err)
		return
	}
	utils.SendSuccess(c, "Reviews retrieved successfully", payload)
}

func (h *WidgetHandler) GetStoredReviews(c *gin.Context) {
	widgetID, ok := parseID(c.Param("widget_id"))
	if !ok {
		utils.SendValidationError(c, "Invalid widget ID")
		return
	}

	stored, err := h.widgetService.GetStoredReviews(c.Request.Context(), widgetID)
	if err != nil {
		sendServiceError(c, "Failed to fetch reviews", err)
		return
	}
	utils.SendSuccess(c, "Reviews retrieved successfully", stored)
}

func (h *WidgetHandler) CreateWidget(c *gin.Context) {
	userID := c.GetUint("user_id")

	var req services.CreateWidgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, "Invalid request data")
		return
	}

	widget, err := h.widgetService.CreateWidget(c.Request.Context(), userID, req)
	if err != nil {
		sendServiceError(c, "Failed to create widget", err)
		return
	}
	utils.SendCreated(c, "Widget created successfully", widget)
}

func (h *WidgetHandler) GetUserWidgets(c *gin.Context) {
	userID := c.GetUint("user_id")

	widgets, err := h.widgetService.GetUserWidgets(c.Request.Context(), userID)
	if err != nil {
		sendServiceError(c, "Failed to fetch widgets", err)
		return
	}
	utils.SendSuccess(c, "Widgets retrieved successfully", widgets)
}

func (h *WidgetHandler) UpdateLayout(c *gin.Context) {
	userID := c.GetUint("user_id")
	widgetID, ok := parseID(c.Param("widget_id"))
	if !ok {
		utils.SendValidationError(c, "Invalid widget ID")
		return
	}

	var req struct {
		LayoutType string `json:"layout_type" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, "layout_type is required")
		return
	}

	widget, err := h.widgetService.UpdateLayout(c.Request.Context(), userID, widgetID, req.LayoutType)
	if err != nil {
		sendServiceError(c, "Failed to update layout", err)
		return
	}
	utils.SendSuccess(c, "Layout updated successfully", widget)
}

// RefreshWidget re-fetches one widget's reviews from the upstream now, without waiting for the sweep.
func (h *WidgetHandler) RefreshWidget(c *gin.Context) {
	widgetID, ok := parseID(c.Param("widget_id"))
	if !ok {
		utils.SendValidationError(c, "Invalid widget ID")
		return
	}

	isAdmin := c.GetString("user_role") == middleware.RoleAdmin
	report, err := h.reviewService.RefreshWidget(c.Request.Context(), c.GetUint("user_id"), isAdmin, widgetID)
	if err != nil {
		sendServiceError(c, "Failed to refresh reviews", err)
		return
	}
	utils.SendSuccess(c, "Reviews refreshed successfully", report)
}

func parseID(raw string) (uint, bool) {
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// parseFilter reads min_rating and sort, writing a 400 itself when either is malformed.
func parseFilter(c *gin.Context) (models.ReviewFilter, bool) {
	var filter models.ReviewFilter

	if raw := c.Query("min_rating"); raw != "" {
		minRating, err := strconv.Atoi(raw)
		if err != nil || minRating < 0 || minRating > 5 {
			utils.SendValidationError(c, "min_rating must be between 0 and 5")
			return filter, false
		}
		filter.MinRating = minRating
	}

	switch sort := c.Query("sort"); sort {
	case models.SortRandom, models.SortNewest, models.SortHighest:
		filter.Sort = sort
	default:
		utils.SendValidationError(c, "sort must be newest or highest")
		return filter, false
	}
	return filter, true
}
