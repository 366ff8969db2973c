// Catalog and distribution HTTP handlers.
//
// This file exposes the published-model catalog and the re-dispatch
// endpoints:
//   - GET  /models                              (list catalog)
//   - GET  /models/{key}                        (one entry)
//   - POST /models/{key}/dispatch               (admin: fan out to given users)
//   - POST /models/{key}/send-to-subscribers    (partner/admin: fan out to own audience)
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arcornucopia-stack/cornucopia-portal/internal/http/middleware"
	"github.com/arcornucopia-stack/cornucopia-portal/internal/services"
)

// DispatchRequest is the JSON payload for an admin re-dispatch.
type DispatchRequest struct {
	UserIDs []string `json:"userIds" binding:"required,min=1"`
}

// ListModels godoc
// @ID          listModels
// @Summary     List the published catalog
// @Tags        Catalog
// @Produce     json
// @Security    BearerAuth
//
// @Success     200  {array}   domain.Model
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthenticated"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /models [get]
func (h *Handlers) ListModels(c *gin.Context) {
	if _, okSess := session(c); !okSess {
		return
	}
	models, err := h.Catalog.List(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, models)
}

// GetModel godoc
// @ID          getModel
// @Summary     Fetch one catalog entry
// @Tags        Catalog
// @Produce     json
// @Security    BearerAuth
//
// @Param       key  path  string  true  "Model key"  example(widget_482913)
//
// @Success     200  {object}  domain.Model
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthenticated"
// @Failure     404  {object}  handlers.ErrorResponse  "Model not found"
// @Router      /models/{key} [get]
func (h *Handlers) GetModel(c *gin.Context) {
	if _, okSess := session(c); !okSess {
		return
	}
	m, err := h.Catalog.Get(c.Request.Context(), c.Param("key"))
	if err != nil {
		if errors.Is(err, services.ErrModelNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "model not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, m)
}

// Dispatch godoc
// @ID          dispatchModel
// @Summary     Re-dispatch a model to specific users
// @Description Fans an existing catalog entry out to the listed users without touching submission state. Admin only. Unknown UIDs are skipped.
// @Tags        Catalog
// @Accept      json
// @Produce     json
// @Security    BearerAuth
//
// @Param       key   path  string                    true  "Model key"
// @Param       body  body  handlers.DispatchRequest  true  "Target users"
//
// @Success     200  {object}  services.PushResult
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthenticated"
// @Failure     403  {object}  handlers.ErrorResponse  "Admin only"
// @Failure     404  {object}  handlers.ErrorResponse  "Model not found"
// @Router      /models/{key}/dispatch [post]
func (h *Handlers) Dispatch(c *gin.Context) {
	sess, okSess := session(c)
	if !okSess {
		return
	}
	var req DispatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "userIds required")
		return
	}
	res, err := h.Distribution.Redispatch(c.Request.Context(), sess, c.Param("key"), req.UserIDs)
	if err != nil {
		failDispatch(c, err)
		return
	}
	observePush(res)
	ok(c, http.StatusOK, res)
}

// SendToSubscribers godoc
// @ID          sendToSubscribers
// @Summary     Push a model to the caller's subscriber audience
// @Description Fans an existing catalog entry out to the partner's admin-curated subscriber set. Partners push their own audience; admins may act for a partner.
// @Tags        Catalog
// @Produce     json
// @Security    BearerAuth
//
// @Param       key  path  string  true  "Model key"
//
// @Success     200  {object}  services.PushResult
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthenticated"
// @Failure     403  {object}  handlers.ErrorResponse  "Partners and admins only"
// @Failure     404  {object}  handlers.ErrorResponse  "Model not found"
// @Router      /models/{key}/send-to-subscribers [post]
func (h *Handlers) SendToSubscribers(c *gin.Context) {
	sess, okSess := session(c)
	if !okSess {
		return
	}
	res, err := h.Distribution.RedispatchToSubscribers(c.Request.Context(), sess, c.Param("key"))
	if err != nil {
		failDispatch(c, err)
		return
	}
	observePush(res)
	ok(c, http.StatusOK, res)
}

// failDispatch maps re-dispatch errors onto the response envelope.
func failDispatch(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrForbidden):
		fail(c, http.StatusForbidden, ErrCodeForbidden, "not allowed to dispatch this model")
	case errors.Is(err, services.ErrModelNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "model not found")
	default:
		middleware.ObservePush("failed", 0)
		fail(c, http.StatusInternalServerError, ErrCodePushFailed, err.Error())
	}
}
