package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/princeprakhar/review-widget-backend/internal/api/middleware"
	"github.com/princeprakhar/review-widget-backend/internal/services"
	"github.com/princeprakhar/review-widget-backend/internal/upstream"
	"github.com/princeprakhar/review-widget-backend/internal/utils"
	"github.com/princeprakhar/review-widget-backend/pkg/logger"
	"github.com/sirupsen/logrus"
)

// sendServiceError maps the service and upstream error taxonomy onto HTTP responses.
func sendServiceError(c *gin.Context, fallback string, err error) {
	fields := logrus.Fields{"path": c.FullPath(), "request_id": middleware.GetRequestID(c)}

	switch {
	case errors.Is(err, services.ErrWidgetNotFound):
		utils.SendNotFound(c, "Widget not found")
	case errors.Is(err, upstream.ErrNotFound):
		utils.SendNotFound(c, "Place not found")
	case errors.Is(err, services.ErrInvalidWidget):
		utils.SendError(c, http.StatusBadRequest, "Invalid widget data", err)
	case errors.Is(err, services.ErrForbidden):
		utils.SendForbidden(c, "You do not own this widget")
	case errors.Is(err, services.ErrSubscriptionRequired):
		utils.SendForbidden(c, "An active subscription is required")
	case errors.Is(err, services.ErrSweepInProgress):
		utils.SendConflict(c, "A review sweep is already running")
	case errors.Is(err, upstream.ErrAuth):
		logger.WithFields(fields).Errorf("upstream rejected credentials: %v", err)
		utils.SendBadGateway(c, "Reviews are temporarily unavailable")
	case errors.Is(err, upstream.ErrUnavailable):
		logger.WithFields(fields).Warnf("upstream unavailable: %v", err)
		utils.SendBadGateway(c, "Reviews are temporarily unavailable")
	default:
		logger.WithFields(fields).Errorf("%s: %v", fallback, err)
		utils.SendInternalError(c, fallback, nil)
	}
}
