// Submission HTTP handlers.
//
// This file exposes REST endpoints for the submission lifecycle:
//   - POST /submissions               (multipart upload)
//   - GET  /submissions               (list own, paginated; admin sees all)
//   - GET  /submissions/queue         (admin review queue, paginated)
//   - POST /submissions/{id}/approve  (admin decision)
//   - POST /submissions/{id}/reject   (admin decision, terminal)
//   - POST /submissions/{id}/push     (admin approve-and-push)
//
// Uploads by admins are approved and pushed in the same request (silently),
// matching how the portal's admin upload behaves. Partner uploads land in
// the pending queue.
package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/arcornucopia-stack/cornucopia-portal/internal/domain"
	"github.com/arcornucopia-stack/cornucopia-portal/internal/http/middleware"
	"github.com/arcornucopia-stack/cornucopia-portal/internal/identity"
	"github.com/arcornucopia-stack/cornucopia-portal/internal/services"
	"github.com/arcornucopia-stack/cornucopia-portal/internal/utils"
)

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListSubmissionsResponse wraps a page of submissions and pagination info.
type ListSubmissionsResponse struct {
	Submissions []domain.Submission `json:"submissions"`
	Pagination  Pagination          `json:"pagination"`
}

// UploadResponse is returned by the upload endpoint. Push is set only when
// the upload was auto-pushed (admin uploads).
type UploadResponse struct {
	Submission *domain.Submission   `json:"submission"`
	Replayed   bool                 `json:"replayed,omitempty"`
	Push       *services.PushResult `json:"push,omitempty"`
}

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}

// paginate slices items for the requested page and builds the metadata.
func paginate(items []domain.Submission, page, pageSize int) ([]domain.Submission, Pagination) {
	total := int64(len(items))
	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	start := (page - 1) * pageSize
	if start > len(items) {
		start = len(items)
	}
	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end], Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
	}
}

// Upload godoc
// @ID          uploadSubmission
// @Summary     Upload a model for review
// @Description Accepts a .glb file with display metadata. Partner uploads enter the pending queue; admin uploads are approved and pushed immediately.
// @Tags        Submissions
// @Accept      multipart/form-data
// @Produce     json
// @Security    BearerAuth
//
// @Param       Idempotency-Key  header  string  false  "Dedupe key for safe retries"
// @Param       model            formData  file    true   "Model file (.glb)"
// @Param       displayName      formData  string  false  "Display name shown in the app"
// @Param       question         formData  string  false  "Question shown with the model"
// @Param       businessName     formData  string  false  "Business display name"
// @Param       targetMode       formData  string  false  "all_users or specific_users"  default(all_users)
// @Param       targetUserIds    formData  string  false  "Comma-separated UIDs for specific_users"
//
// @Success     201  {object}  handlers.UploadResponse
// @Success     200  {object}  handlers.UploadResponse  "Replayed (Idempotency-Key matched)"
// @Failure     400  {object}  handlers.ErrorResponse   "Validation failure"
// @Failure     401  {object}  handlers.ErrorResponse   "Unauthenticated"
// @Failure     500  {object}  handlers.ErrorResponse   "Uploaded but not recorded"
// @Failure     502  {object}  handlers.ErrorResponse   "Blob upload failed"
// @Router      /submissions [post]
func (h *Handlers) Upload(c *gin.Context) {
	sess, okSess := session(c)
	if !okSess {
		return
	}

	fh, err := c.FormFile("model")
	if err != nil {
		middleware.ObserveUpload("rejected")
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "model file required")
		return
	}
	f, err := fh.Open()
	if err != nil {
		middleware.ObserveUpload("failed")
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "cannot read model file")
		return
	}
	data, err := io.ReadAll(f)
	f.Close()
	if err != nil {
		middleware.ObserveUpload("failed")
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "cannot read model file")
		return
	}

	targetMode := domain.TargetMode(strings.TrimSpace(c.PostForm("targetMode")))
	if targetMode == "" {
		targetMode = domain.TargetAllUsers
	}
	var targetIDs []string
	if raw := strings.TrimSpace(c.PostForm("targetUserIds")); raw != "" {
		targetIDs = strings.Split(raw, ",")
	}
	idemKey, _ := middleware.GetIdempotencyKey(c)

	in := services.UploadInput{
		FileName:       fh.Filename,
		Data:           data,
		DisplayName:    c.PostForm("displayName"),
		Question:       c.PostForm("question"),
		BusinessName:   c.PostForm("businessName"),
		TargetMode:     targetMode,
		TargetUserIDs:  targetIDs,
		IdempotencyKey: idemKey,
	}

	res, err := h.Submissions.CreateFromUpload(c.Request.Context(), sess, in)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrMissingFile),
			errors.Is(err, services.ErrWrongExtension),
			errors.Is(err, services.ErrFileTooLarge),
			errors.Is(err, services.ErrInvalidTargetMode),
			errors.Is(err, services.ErrMissingBusinessName),
			errors.Is(err, services.ErrNoTargets):
			middleware.ObserveUpload("rejected")
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		case errors.Is(err, services.ErrUploadedNotRecorded):
			middleware.ObserveUpload("failed")
			fail(c, http.StatusInternalServerError, ErrCodeUploadedNotRecorded,
				"file stored but submission record failed")
		default:
			middleware.ObserveUpload("failed")
			fail(c, http.StatusBadGateway, ErrCodeUploadFailed, "model upload failed")
		}
		return
	}

	resp := UploadResponse{Submission: res.Submission, Replayed: res.Replayed}
	if res.Replayed {
		middleware.ObserveUpload("replayed")
		ok(c, http.StatusOK, resp)
		return
	}
	middleware.ObserveUpload("accepted")

	// Admin uploads skip the queue: approve and push in the same request.
	if sess.IsAdmin() {
		push, err := h.Distribution.ApproveAndPush(c.Request.Context(), sess, res.Submission.ID, true)
		if err != nil {
			fail(c, http.StatusInternalServerError, ErrCodePushFailed, err.Error())
			return
		}
		observePush(push)
		resp.Push = push
		resp.Submission.Status = domain.StatusApproved
	}

	ok(c, http.StatusCreated, resp)
}

// ListSubmissions godoc
// @ID          listSubmissions
// @Summary     List submissions (paginated)
// @Description Partners see their business's submissions; admins see all. Newest first.
// @Tags        Submissions
// @Produce     json
// @Security    BearerAuth
//
// @Param       page       query  int  false  "Page number"     minimum(1) default(1)
// @Param       page_size  query  int  false  "Items per page"  minimum(1) maximum(100) default(20)
//
// @Success     200  {object}  handlers.ListSubmissionsResponse
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthenticated"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /submissions [get]
func (h *Handlers) ListSubmissions(c *gin.Context) {
	sess, okSess := session(c)
	if !okSess {
		return
	}
	items, err := h.Submissions.ListMine(c.Request.Context(), sess)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	page, pageSize := clampPagination(c)
	pageItems, meta := paginate(items, page, pageSize)
	ok(c, http.StatusOK, ListSubmissionsResponse{Submissions: pageItems, Pagination: meta})
}

// Queue godoc
// @ID          reviewQueue
// @Summary     Admin review queue (paginated)
// @Description Returns every submission, newest first. Admin only.
// @Tags        Submissions
// @Produce     json
// @Security    BearerAuth
//
// @Param       page       query  int  false  "Page number"     minimum(1) default(1)
// @Param       page_size  query  int  false  "Items per page"  minimum(1) maximum(100) default(20)
//
// @Success     200  {object}  handlers.ListSubmissionsResponse
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthenticated"
// @Failure     403  {object}  handlers.ErrorResponse  "Admin only"
// @Router      /submissions/queue [get]
func (h *Handlers) Queue(c *gin.Context) {
	sess, okSess := session(c)
	if !okSess {
		return
	}
	items, err := h.Submissions.Queue(c.Request.Context(), sess)
	if err != nil {
		if errors.Is(err, services.ErrForbidden) {
			fail(c, http.StatusForbidden, ErrCodeForbidden, "admin only")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	page, pageSize := clampPagination(c)
	pageItems, meta := paginate(items, page, pageSize)
	ok(c, http.StatusOK, ListSubmissionsResponse{Submissions: pageItems, Pagination: meta})
}

// Approve godoc
// @ID          approveSubmission
// @Summary     Approve a submission
// @Description Transitions a pending submission to approved without pushing. Admin only; rejected submissions cannot be revived.
// @Tags        Submissions
// @Produce     json
// @Security    BearerAuth
//
// @Param       id  path  string  true  "Submission ID (UUID)"  format(uuid)
//
// @Success     200  {object}  domain.Submission
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthenticated"
// @Failure     403  {object}  handlers.ErrorResponse  "Admin only"
// @Failure     404  {object}  handlers.ErrorResponse  "Submission not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Submission is rejected"
// @Router      /submissions/{id}/approve [post]
func (h *Handlers) Approve(c *gin.Context) {
	h.decide(c, h.Submissions.Approve)
}

// Reject godoc
// @ID          rejectSubmission
// @Summary     Reject a submission
// @Description Transitions a submission to rejected, its terminal state. Admin only.
// @Tags        Submissions
// @Produce     json
// @Security    BearerAuth
//
// @Param       id  path  string  true  "Submission ID (UUID)"  format(uuid)
//
// @Success     200  {object}  domain.Submission
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthenticated"
// @Failure     403  {object}  handlers.ErrorResponse  "Admin only"
// @Failure     404  {object}  handlers.ErrorResponse  "Submission not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Submission already rejected"
// @Router      /submissions/{id}/reject [post]
func (h *Handlers) Reject(c *gin.Context) {
	h.decide(c, h.Submissions.Reject)
}

func (h *Handlers) decide(c *gin.Context, op func(context.Context, identity.Session, string) (*domain.Submission, error)) {
	sess, okSess := session(c)
	if !okSess {
		return
	}
	sub, err := op(c.Request.Context(), sess, c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrForbidden):
			fail(c, http.StatusForbidden, ErrCodeForbidden, "admin only")
		case errors.Is(err, services.ErrSubmissionNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "submission not found")
		case errors.Is(err, services.ErrRejectedTerminal):
			fail(c, http.StatusConflict, ErrCodeRejectedTerminal, "submission is rejected and cannot change state")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, sub)
}

// Push godoc
// @ID          pushSubmission
// @Summary     Approve and push a submission
// @Description Approves (if needed), publishes the catalog entry, and fans the model out to its target users. A partial fan-out still returns 200 with the assignment error surfaced for retry.
// @Tags        Submissions
// @Produce     json
// @Security    BearerAuth
//
// @Param       id  path  string  true  "Submission ID (UUID)"  format(uuid)
//
// @Success     200  {object}  services.PushResult
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthenticated"
// @Failure     403  {object}  handlers.ErrorResponse  "Admin only"
// @Failure     404  {object}  handlers.ErrorResponse  "Submission not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Submission is rejected"
// @Router      /submissions/{id}/push [post]
func (h *Handlers) Push(c *gin.Context) {
	sess, okSess := session(c)
	if !okSess {
		return
	}
	res, err := h.Distribution.ApproveAndPush(c.Request.Context(), sess, c.Param("id"), false)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrForbidden):
			fail(c, http.StatusForbidden, ErrCodeForbidden, "admin only")
		case errors.Is(err, services.ErrSubmissionNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "submission not found")
		case errors.Is(err, services.ErrRejectedTerminal):
			fail(c, http.StatusConflict, ErrCodeRejectedTerminal, "submission is rejected and cannot be pushed")
		default:
			middleware.ObservePush("failed", 0)
			fail(c, http.StatusInternalServerError, ErrCodePushFailed, err.Error())
		}
		return
	}
	observePush(res)
	ok(c, http.StatusOK, res)
}

// observePush feeds the push outcome into the Prometheus counters.
func observePush(res *services.PushResult) {
	outcome := "full"
	if res.Partial() {
		outcome = "partial"
	}
	middleware.ObservePush(outcome, res.Assigned)
}
