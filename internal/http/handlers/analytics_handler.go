// Analytics HTTP handlers.
//
//   - GET  /stats       (dashboard submission totals for the caller's scope)
//   - GET  /engagement  (open/save counts for a business)
//   - POST /events      (consumer app records an open/save event)
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/arcornucopia-stack/cornucopia-portal/internal/services"
)

// RecordEventRequest is the JSON payload for one engagement event.
type RecordEventRequest struct {
	BusinessID string `json:"businessId" binding:"required"`
	EventType  string `json:"eventType"  binding:"required" example:"open"`
}

// Stats godoc
// @ID          dashboardStats
// @Summary     Dashboard submission totals
// @Description Total and approved submission counts: the whole store for admins, the caller's business otherwise.
// @Tags        Analytics
// @Produce     json
// @Security    BearerAuth
//
// @Success     200  {object}  services.DashboardStats
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthenticated"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /stats [get]
func (h *Handlers) Stats(c *gin.Context) {
	sess, okSess := session(c)
	if !okSess {
		return
	}
	stats, err := h.Analytics.Stats(c.Request.Context(), sess)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, stats)
}

// Engagement godoc
// @ID          engagementCounts
// @Summary     Open/save engagement counts
// @Description Aggregated event counts for a business. Partners may only query their own business; admins any. Defaults to the caller's business.
// @Tags        Analytics
// @Produce     json
// @Security    BearerAuth
//
// @Param       businessId  query  string  false  "Business to aggregate (admin only for foreign businesses)"
//
// @Success     200  {object}  services.EngagementCounts
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthenticated"
// @Failure     403  {object}  handlers.ErrorResponse  "Foreign business"
// @Router      /engagement [get]
func (h *Handlers) Engagement(c *gin.Context) {
	sess, okSess := session(c)
	if !okSess {
		return
	}
	businessID := strings.TrimSpace(c.Query("businessId"))
	if businessID == "" {
		businessID = sess.Business()
	}
	if businessID != sess.Business() && !sess.IsAdmin() {
		fail(c, http.StatusForbidden, ErrCodeForbidden, "not allowed to read this business")
		return
	}

	counts, err := h.Analytics.CountEvents(c.Request.Context(), businessID)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, counts)
}

// RecordEvent godoc
// @ID          recordEvent
// @Summary     Record an engagement event
// @Description Appends one open or save event emitted by the consumer app.
// @Tags        Analytics
// @Accept      json
// @Produce     json
// @Security    BearerAuth
//
// @Param       body  body  handlers.RecordEventRequest  true  "Event payload"
//
// @Success     204  {string}  string "No Content"
// @Failure     400  {object}  handlers.ErrorResponse  "Unknown event type"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthenticated"
// @Router      /events [post]
func (h *Handlers) RecordEvent(c *gin.Context) {
	sess, okSess := session(c)
	if !okSess {
		return
	}
	var req RecordEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "businessId and eventType required")
		return
	}

	if _, err := h.Analytics.RecordEvent(c.Request.Context(), sess, req.BusinessID, req.EventType); err != nil {
		if errors.Is(err, services.ErrInvalidEventType) {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "eventType must be open or save")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	noContent(c)
}
