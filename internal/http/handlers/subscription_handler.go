// Subscription registry HTTP handlers.
//
//   - PUT /partners/{id}/subscribers  (admin: wholesale replace the audience)
//   - GET /partners/{id}/subscribers  (admin or the partner itself)
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arcornucopia-stack/cornucopia-portal/internal/services"
)

// SetSubscribersRequest is the JSON payload for replacing an audience.
// An empty list clears the audience.
type SetSubscribersRequest struct {
	UserIDs []string `json:"userIds"`
}

// SubscribersResponse carries the stored audience after a read or write.
type SubscribersResponse struct {
	PartnerID string   `json:"partnerId"`
	UserIDs   []string `json:"userIds"`
}

// SetSubscribers godoc
// @ID          setSubscribers
// @Summary     Replace a partner's subscriber audience
// @Description Overwrites the stored set with exactly the given UIDs. Unknown UIDs and non-end-user accounts are dropped. Admin only.
// @Tags        Subscriptions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
//
// @Param       id    path  string                          true  "Partner business ID"
// @Param       body  body  handlers.SetSubscribersRequest  true  "New audience"
//
// @Success     200  {object}  handlers.SubscribersResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthenticated"
// @Failure     403  {object}  handlers.ErrorResponse  "Admin only"
// @Router      /partners/{id}/subscribers [put]
func (h *Handlers) SetSubscribers(c *gin.Context) {
	sess, okSess := session(c)
	if !okSess {
		return
	}
	var req SetSubscribersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	partnerID := c.Param("id")
	kept, err := h.Subscriptions.SetSubscribers(c.Request.Context(), sess, partnerID, req.UserIDs)
	if err != nil {
		if errors.Is(err, services.ErrForbidden) {
			fail(c, http.StatusForbidden, ErrCodeForbidden, "admin only")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, SubscribersResponse{PartnerID: partnerID, UserIDs: kept})
}

// GetSubscribers godoc
// @ID          getSubscribers
// @Summary     Read a partner's subscriber audience
// @Description Partners may read only their own audience; admins may read any.
// @Tags        Subscriptions
// @Produce     json
// @Security    BearerAuth
//
// @Param       id  path  string  true  "Partner business ID"
//
// @Success     200  {object}  handlers.SubscribersResponse
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthenticated"
// @Failure     403  {object}  handlers.ErrorResponse  "Not your audience"
// @Router      /partners/{id}/subscribers [get]
func (h *Handlers) GetSubscribers(c *gin.Context) {
	sess, okSess := session(c)
	if !okSess {
		return
	}
	partnerID := c.Param("id")
	ids, err := h.Subscriptions.GetSubscribers(c.Request.Context(), sess, partnerID)
	if err != nil {
		if errors.Is(err, services.ErrForbidden) {
			fail(c, http.StatusForbidden, ErrCodeForbidden, "not allowed to read this audience")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, SubscribersResponse{PartnerID: partnerID, UserIDs: ids})
}
