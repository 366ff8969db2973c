// Auth HTTP handlers and handler wiring.
//
// This file exposes the sign-in endpoint:
//   - POST /auth/login  (verify credential, issue bearer token)
//
// and defines the Handlers aggregate that groups all portal endpoints.
// Handlers are transport-thin: they validate input, call application
// services with the explicit session resolved by middleware, and translate
// results into HTTP responses.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arcornucopia-stack/cornucopia-portal/internal/http/middleware"
	"github.com/arcornucopia-stack/cornucopia-portal/internal/identity"
	"github.com/arcornucopia-stack/cornucopia-portal/internal/services"
)

// Handlers groups HTTP endpoints for auth, submissions, the catalog,
// distribution, subscriptions, and analytics. All business rules live in the
// services; handlers only translate between HTTP and service calls.
type Handlers struct {
	Auth          *identity.Service
	Submissions   *services.SubmissionService
	Catalog       *services.CatalogService
	Distribution  *services.DistributionService
	Subscriptions *services.SubscriptionService
	Analytics     *services.AnalyticsService
}

// New constructs a Handlers instance bound to the given services.
func New(auth *identity.Service, subs *services.SubmissionService, cat *services.CatalogService,
	dist *services.DistributionService, reg *services.SubscriptionService, an *services.AnalyticsService) *Handlers {
	return &Handlers{
		Auth:          auth,
		Submissions:   subs,
		Catalog:       cat,
		Distribution:  dist,
		Subscriptions: reg,
		Analytics:     an,
	}
}

// session returns the authenticated session stashed by the auth middleware.
// Handlers behind RequireSession can rely on ok being true; the check guards
// against misrouted registration.
func session(c *gin.Context) (identity.Session, bool) {
	sess, ok := middleware.SessionFrom(c)
	if !ok {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "authentication required")
	}
	return sess, ok
}

// LoginRequest is the JSON payload for signing in.
type LoginRequest struct {
	UID    string `json:"uid" binding:"required" example:"partner-42"`
	Secret string `json:"secret" binding:"required"`
}

// LoginResponse carries the bearer token and the resolved profile.
type LoginResponse struct {
	Token        string `json:"token"`
	UID          string `json:"uid"`
	Role         string `json:"role"`
	BusinessID   string `json:"businessId,omitempty"`
	BusinessName string `json:"businessName,omitempty"`
	DisplayName  string `json:"displayName,omitempty"`
}

// Login godoc
// @ID          login
// @Summary     Sign in
// @Description Verifies the credential and issues a bearer token for the API.
// @Tags        Auth
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.LoginRequest  true  "Credentials"
//
// @Success     200  {object}  handlers.LoginResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse  "Invalid credential"
// @Failure     403  {object}  handlers.ErrorResponse  "No profile for account"
// @Router      /auth/login [post]
func (h *Handlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "uid and secret required")
		return
	}

	sess, token, err := h.Auth.SignIn(c.Request.Context(), req.UID, req.Secret)
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrInvalidCredential):
			fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "invalid credential")
		case errors.Is(err, identity.ErrNoProfile):
			fail(c, http.StatusForbidden, ErrCodeForbidden, "no user role found")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}

	ok(c, http.StatusOK, LoginResponse{
		Token:        token,
		UID:          sess.UID,
		Role:         string(sess.Role),
		BusinessID:   sess.BusinessID,
		BusinessName: sess.BusinessName,
		DisplayName:  sess.DisplayName,
	})
}
