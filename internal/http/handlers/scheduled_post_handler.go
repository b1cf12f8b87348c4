// Scheduled post HTTP handlers.
//
// This file exposes REST endpoints for scheduled post resources:
//   - GET    /scheduledPosts                  (list, paginated, ETag support)
//   - GET    /scheduledPosts/available        (remaining daily quota)
//   - GET    /scheduledPosts/{id}             (read with status)
//   - POST   /scheduledPosts                  (schedule, quota-checked)
//   - PUT    /scheduledPosts/{id}             (update content fields)
//   - DELETE /scheduledPosts/{id}             (delete with history)
//   - POST   /scheduledPosts/{id}/submissions (dispatch worker outcome)
//
// Handlers are transport-thin: they resolve the acting user (identity,
// privilege, timezone) from headers, validate input, call application
// services, and translate results into HTTP responses. Timezone conversion of
// submission dates happens here, at the boundary; services only see absolute
// instants.
package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-post-scheduler/internal/domain"
	"github.com/tbourn/go-post-scheduler/internal/http/middleware"
	"github.com/tbourn/go-post-scheduler/internal/repo"
	"github.com/tbourn/go-post-scheduler/internal/services"
	"github.com/tbourn/go-post-scheduler/internal/sysutil"
	"github.com/tbourn/go-post-scheduler/internal/utils"
)

//
// Service contracts (context-aware)
//

// SchedulerService defines scheduled-post lifecycle operations consumed by
// HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type SchedulerService interface {
	// Schedule creates a new post for user, enforcing the daily quota.
	Schedule(ctx context.Context, user services.User, draft domain.ScheduledPost, resubmitEnabled bool) (*domain.ScheduledPost, error)
	// Update overwrites content fields of an existing post.
	Update(ctx context.Context, user services.User, incoming domain.ScheduledPost, resubmitEnabled bool) (*domain.ScheduledPost, error)
	// Delete removes a post together with its submission history.
	Delete(ctx context.Context, user services.User, id string) error
	// Get returns a post fully materialized with its history.
	Get(ctx context.Context, user services.User, id string) (*domain.ScheduledPost, error)
}

// ListingService defines paged read operations over a user's posts.
type ListingService interface {
	// List returns one page of posts ordered by an allow-listed field.
	List(ctx context.Context, userID string, page, size int, sortDir, sortField string) ([]domain.ScheduledPost, error)
	// PagingInfo reports paging metadata for the PAGING_INFO header.
	PagingInfo(ctx context.Context, userID string, page, size int) (services.PagingInfo, error)
}

// SubmissionService records dispatch attempt outcomes.
type SubmissionService interface {
	// Record appends one attempt outcome to a post's history.
	Record(ctx context.Context, postID string, outcome services.Outcome) (*domain.SubmissionResponse, error)
}

// QuotaService reports how many posts a user may still schedule today.
type QuotaService interface {
	Remaining(ctx context.Context, userID string, now time.Time, loc *time.Location) (int, error)
}

//
// Handler wiring
//

// Handlers groups HTTP endpoints for scheduled posts, quota, and submissions.
// It depends on abstract service interfaces to keep transport concerns
// separate from business logic.
type Handlers struct {
	schedSvc SchedulerService
	listSvc  ListingService
	subSvc   SubmissionService
	quotaSvc QuotaService

	// IdempotencyTTL controls how long schedule replays stay valid.
	IdempotencyTTL time.Duration
}

// New constructs and returns a Handlers instance bound to the given services.
func New(schedSvc SchedulerService, listSvc ListingService, subSvc SubmissionService, quotaSvc QuotaService) *Handlers {
	return &Handlers{
		schedSvc:       schedSvc,
		listSvc:        listSvc,
		subSvc:         subSvc,
		quotaSvc:       quotaSvc,
		IdempotencyTTL: 24 * time.Hour,
	}
}

// submissionDateLayout is the wire format for submission dates, interpreted
// in the acting user's timezone.
const submissionDateLayout = "2006-01-02 15:04"

// unlimitedPrivilege is the role that bypasses the daily quota.
const unlimitedPrivilege = "POST_UNLIMITED_PRIVILEGE"

// userID extracts the authenticated user id from Gin context (set by upstream
// middleware). If absent, it falls back to "X-User-ID" header (tests use it),
// and finally to "demo-user". It never touches c.Request if it's nil.
func userID(c *gin.Context) string {
	var fromCtx, fromHeader string
	if v, ok := c.Get("userID"); ok {
		fromCtx, _ = v.(string)
	}
	if c != nil && c.Request != nil {
		fromHeader = strings.TrimSpace(c.GetHeader("X-User-ID"))
	}
	return sysutil.FirstNonEmpty(fromCtx, fromHeader, "demo-user")
}

// actingUser resolves identity, privilege flag, and timezone from the request.
// The auth layer upstream is expected to have validated these; the engine
// receives them as plain inputs.
func actingUser(c *gin.Context) services.User {
	u := services.User{
		ID:       userID(c),
		Location: utils.LocationOrUTC(c.GetHeader("X-User-Timezone")),
	}
	for _, p := range strings.Split(c.GetHeader("X-User-Privileges"), ",") {
		if strings.TrimSpace(p) == unlimitedPrivilege {
			u.Unlimited = true
			break
		}
	}
	return u
}

//
// DTOs
//

// ScheduledPostRequest is the JSON payload for scheduling or updating a post.
type ScheduledPostRequest struct {
	// Title of the content to dispatch (1–255 chars).
	Title string `json:"title" binding:"required,min=1,max=255" example:"Release notes v2"`
	// Body is the optional content text.
	Body string `json:"body" example:"Changelog attached."`
	// Target is the destination the post will be submitted to.
	Target string `json:"target" binding:"required" example:"r/golang"`
	// SubmissionDate is the dispatch time in the user's timezone
	// ("2006-01-02 15:04").
	SubmissionDate string `json:"submission_date" binding:"required" example:"2025-03-01 18:30"`
}

// ScheduledPostResponse is the JSON view of a scheduled post, with the
// submission date and status timestamps rendered in the user's timezone.
type ScheduledPostResponse struct {
	ID              string                    `json:"id"`
	Title           string                    `json:"title"`
	Body            string                    `json:"body,omitempty"`
	Target          string                    `json:"target"`
	SubmissionDate  string                    `json:"submission_date"`
	ExternalID      string                    `json:"external_id,omitempty"`
	Dispatched      bool                      `json:"dispatched"`
	ResubmitEnabled bool                      `json:"resubmit_enabled"`
	Status          string                    `json:"status"`
	DetailedStatus  []services.SubmissionView `json:"detailed_status"`
}

// RecordSubmissionRequest is the payload the dispatch worker sends after an
// attempt. Timestamps are RFC 3339; SubmittedAt defaults to now when omitted.
type RecordSubmissionRequest struct {
	OutcomeSummary string `json:"outcome_summary" binding:"required" example:"submitted"`
	Success        bool   `json:"success"`
	ExternalID     string `json:"external_id" example:"t3_1abc2d"`
	SubmittedAt    string `json:"submitted_at" example:"2025-03-01T18:30:05Z"`
	ScoreCheckAt   string `json:"score_check_at" example:"2025-03-01T20:30:00Z"`
}

// ListPostsResponse wraps a page of posts and its paging metadata.
type ListPostsResponse struct {
	Posts  []ScheduledPostResponse `json:"posts"`
	Paging services.PagingInfo     `json:"paging"`
}

// AvailableResponse reports the remaining daily quota.
type AvailableResponse struct {
	Remaining int    `json:"remaining,omitempty"`
	Unlimited bool   `json:"unlimited"`
	Message   string `json:"message"`
}

//
// Helpers
//

// toPostResponse renders a post with its derived status in loc.
func toPostResponse(p *domain.ScheduledPost, loc *time.Location) ScheduledPostResponse {
	resp := ScheduledPostResponse{
		ID:              p.ID,
		Title:           p.Title,
		Body:            p.Body,
		Target:          p.Target,
		SubmissionDate:  p.SubmissionDate.In(loc).Format(submissionDateLayout),
		Dispatched:      p.Dispatched,
		ResubmitEnabled: p.ResubmitEnabled,
		Status:          services.StatusOf(p),
		DetailedStatus:  services.DetailedStatus(p, loc),
	}
	if p.ExternalID != nil {
		resp.ExternalID = *p.ExternalID
	}
	return resp
}

// parseSubmissionDate interprets the wire date in the user's timezone and
// returns the absolute instant.
func parseSubmissionDate(s string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(submissionDateLayout, strings.TrimSpace(s), loc)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// resubmitFlag reads the resubmitOptionsActivated query parameter.
func resubmitFlag(c *gin.Context) bool {
	return sysutil.IsTruthy(c.Query("resubmitOptionsActivated"))
}

// db exposes the GORM handle when the scheduler service is the concrete
// implementation; used for ETag stats and idempotency records (best effort).
func (h *Handlers) db() *gorm.DB {
	if svc, ok := h.schedSvc.(*services.SchedulerService); ok {
		return svc.DB
	}
	return nil
}

//
// Handlers
//

// ListPosts godoc
// @ID          listScheduledPosts
// @Summary     List scheduled posts (paginated)
// @Description Returns a page of the user's scheduled posts, ordered by the given field. Paging metadata is echoed in the PAGING_INFO header. Supports weak ETag via If-None-Match.
// @Tags        ScheduledPosts
// @Produce     json
//
// @Param       X-User-ID       header  string  false "User ID (demo header)"       example(user123)
// @Param       X-User-Timezone header  string  false "IANA timezone"               example(Europe/Athens)
// @Param       If-None-Match   header  string  false "Return 304 if ETag matches"
// @Param       page            query   int     false "Page number (0-based)"        minimum(0) default(0)
// @Param       size            query   int     false "Items per page"               minimum(0) default(10)
// @Param       sortDir         query   string  false "asc or desc"                  default(asc)
// @Param       sort            query   string  false "title, submission_date, created_at" default(title)
//
// @Success     200  {object} handlers.ListPostsResponse
// @Header      200  {string} PAGING_INFO "Paging metadata"
// @Success     304  {string} string "Not Modified"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /scheduledPosts [get]
func (h *Handlers) ListPosts(c *gin.Context) {
	ctx := c.Request.Context()
	user := actingUser(c)

	page := utils.AtoiDefault(c.Query("page"), 0)
	size := utils.AtoiDefault(c.Query("size"), 10)
	sortDir := c.DefaultQuery("sortDir", "asc")
	sortField := c.DefaultQuery("sort", "title")
	if page < 0 || size < 0 {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "page and size must be non-negative")
		return
	}

	// ETag pre-check (best effort).
	if db := h.db(); db != nil {
		count, maxTS, err := repo.PostsStats(ctx, db, user.ID)
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.Unix()
			}
			etag := fmt.Sprintf(`W/"posts:%s:%d:%d"`, user.ID, count, ts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	items, err := h.listSvc.List(ctx, user.ID, page, size, sortDir, sortField)
	if err != nil {
		switch err {
		case services.ErrInvalidSortDirection, services.ErrInvalidSortField, services.ErrInvalidPaging:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		default:
			fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		}
		return
	}

	info, err := h.listSvc.PagingInfo(ctx, user.ID, page, size)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	c.Header("PAGING_INFO", info.String())

	posts := make([]ScheduledPostResponse, 0, len(items))
	for i := range items {
		posts = append(posts, toPostResponse(&items[i], user.Location))
	}
	ok(c, http.StatusOK, ListPostsResponse{Posts: posts, Paging: info})
}

// GetPost godoc
// @ID          getScheduledPost
// @Summary     Get one scheduled post
// @Description Returns a scheduled post with its derived status and full submission history.
// @Tags        ScheduledPosts
// @Produce     json
//
// @Param       X-User-ID       header  string  false "User ID (demo header)"  example(user123)
// @Param       X-User-Timezone header  string  false "IANA timezone"          example(Europe/Athens)
// @Param       id              path    string  true  "Post ID (UUID)"         format(uuid)
//
// @Success     200  {object} handlers.ScheduledPostResponse
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Post not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /scheduledPosts/{id} [get]
func (h *Handlers) GetPost(c *gin.Context) {
	postID := c.Param("id")
	if _, err := uuid.Parse(postID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "post id must be a UUID")
		return
	}
	user := actingUser(c)

	post, err := h.schedSvc.Get(c.Request.Context(), user, postID)
	if err != nil {
		if err == services.ErrPostNotFound {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "scheduled post not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, toPostResponse(post, user.Location))
}

// Available godoc
// @ID          countAvailablePosts
// @Summary     Remaining daily quota
// @Description Reports how many posts the user may still schedule today (their local day).
// @Tags        ScheduledPosts
// @Produce     json
//
// @Param       X-User-ID         header  string  false "User ID (demo header)"  example(user123)
// @Param       X-User-Timezone   header  string  false "IANA timezone"          example(Europe/Athens)
// @Param       X-User-Privileges header  string  false "Comma-separated roles"  example(POST_UNLIMITED_PRIVILEGE)
//
// @Success     200  {object} handlers.AvailableResponse
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /scheduledPosts/available [get]
func (h *Handlers) Available(c *gin.Context) {
	user := actingUser(c)
	if user.Unlimited {
		ok(c, http.StatusOK, AvailableResponse{
			Unlimited: true,
			Message:   "You can schedule as many posts as you want",
		})
		return
	}

	remaining, err := h.quotaSvc.Remaining(c.Request.Context(), user.ID, time.Now(), user.Location)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, AvailableResponse{
		Remaining: remaining,
		Message:   fmt.Sprintf("You can schedule maximum %d posts to be submitted today", remaining),
	})
}

// SchedulePost godoc
// @ID          schedulePost
// @Summary     Schedule a new post
// @Description Creates a scheduled post for the current user. Non-privileged users are subject to the daily quota. Supports Idempotency-Key for safe retries.
// @Tags        ScheduledPosts
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID                header  string  false "User ID (demo header)"  example(user123)
// @Param       X-User-Timezone          header  string  false "IANA timezone"          example(Europe/Athens)
// @Param       X-User-Privileges        header  string  false "Comma-separated roles"
// @Param       Idempotency-Key          header  string  false "Safe-retry key"
// @Param       resubmitOptionsActivated query   bool    false "Allow re-attempts after a failed dispatch"
// @Param       body                     body    handlers.ScheduledPostRequest  true  "Post payload"
//
// @Success     201  {object} handlers.ScheduledPostResponse
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     403  {object} handlers.ErrorResponse "Quota exceeded"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /scheduledPosts [post]
func (h *Handlers) SchedulePost(c *gin.Context) {
	ctx := c.Request.Context()
	user := actingUser(c)

	// Serve idempotent replays from the stored record.
	if key, hasKey := middleware.GetIdempotencyKey(c); hasKey && middleware.IsReplay(c) {
		if db := h.db(); db != nil {
			if rec, err := repo.GetIdempotency(ctx, db, user.ID, key, time.Now().UTC()); err == nil {
				if post, err := h.schedSvc.Get(ctx, user, rec.PostID); err == nil {
					ok(c, rec.Status, toPostResponse(post, user.Location))
					return
				}
			}
		}
	}

	var req ScheduledPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	due, err := parseSubmissionDate(req.SubmissionDate, user.Location)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "submission_date must match "+submissionDateLayout)
		return
	}

	draft := domain.ScheduledPost{
		Title:          strings.TrimSpace(req.Title),
		Body:           req.Body,
		Target:         strings.TrimSpace(req.Target),
		SubmissionDate: due,
	}
	post, err := h.schedSvc.Schedule(ctx, user, draft, resubmitFlag(c))
	if err != nil {
		if err == services.ErrQuotaExceeded {
			middleware.CountQuotaRejection()
			fail(c, http.StatusForbidden, ErrCodeQuotaExceeded, "you have 0 posts left to schedule today")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeScheduleFailed, err.Error())
		return
	}
	middleware.CountPostScheduled()

	// Persist the idempotency record so retries replay this post.
	if key, hasKey := middleware.GetIdempotencyKey(c); hasKey {
		if db := h.db(); db != nil {
			_, _ = repo.CreateIdempotency(ctx, db, user.ID, key, post.ID, http.StatusCreated, h.IdempotencyTTL)
		}
	}

	ok(c, http.StatusCreated, toPostResponse(post, user.Location))
}

// UpdatePost godoc
// @ID          updateScheduledPost
// @Summary     Update a scheduled post
// @Description Overwrites title, body, target, submission date, and the resubmit flag. The external id, dispatched flag, and history always keep their stored values.
// @Tags        ScheduledPosts
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID                header  string  false "User ID (demo header)"  example(user123)
// @Param       X-User-Timezone          header  string  false "IANA timezone"
// @Param       id                       path    string  true  "Post ID (UUID)"         format(uuid)
// @Param       resubmitOptionsActivated query   bool    false "Allow re-attempts after a failed dispatch"
// @Param       body                     body    handlers.ScheduledPostRequest  true  "Post payload"
//
// @Success     200  {object} handlers.ScheduledPostResponse
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Post not found"
// @Failure     409  {object} handlers.ErrorResponse "Concurrent modification"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /scheduledPosts/{id} [put]
func (h *Handlers) UpdatePost(c *gin.Context) {
	postID := c.Param("id")
	if _, err := uuid.Parse(postID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "post id must be a UUID")
		return
	}
	user := actingUser(c)

	var req ScheduledPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	due, err := parseSubmissionDate(req.SubmissionDate, user.Location)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "submission_date must match "+submissionDateLayout)
		return
	}

	incoming := domain.ScheduledPost{
		ID:             postID,
		Title:          strings.TrimSpace(req.Title),
		Body:           req.Body,
		Target:         strings.TrimSpace(req.Target),
		SubmissionDate: due,
	}
	post, err := h.schedSvc.Update(c.Request.Context(), user, incoming, resubmitFlag(c))
	if err != nil {
		switch err {
		case services.ErrPostNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "scheduled post not found")
		case services.ErrConflictingUpdate:
			fail(c, http.StatusConflict, ErrCodeConflict, err.Error())
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, toPostResponse(post, user.Location))
}

// DeletePost godoc
// @ID          deleteScheduledPost
// @Summary     Delete a scheduled post
// @Description Removes a post and its entire submission history. Deleting an unknown id fails with 404.
// @Tags        ScheduledPosts
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       id         path    string  true  "Post ID (UUID)"         format(uuid)
//
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Post not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /scheduledPosts/{id} [delete]
func (h *Handlers) DeletePost(c *gin.Context) {
	postID := c.Param("id")
	if _, err := uuid.Parse(postID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "post id must be a UUID")
		return
	}

	if err := h.schedSvc.Delete(c.Request.Context(), actingUser(c), postID); err != nil {
		if err == services.ErrPostNotFound {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "scheduled post not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	noContent(c)
}

// RecordSubmission godoc
// @ID          recordSubmission
// @Summary     Record a dispatch attempt outcome
// @Description Called by the dispatch worker after attempting a submission. Appends to the post's history; a successful outcome marks the post dispatched and stores the platform id.
// @Tags        Submissions
// @Accept      json
// @Produce     json
//
// @Param       id    path  string  true  "Post ID (UUID)"  format(uuid)
// @Param       body  body  handlers.RecordSubmissionRequest  true  "Attempt outcome"
//
// @Success     201  {object} domain.SubmissionResponse
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Post not found"
// @Failure     409  {object} handlers.ErrorResponse "Concurrent modification"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /scheduledPosts/{id}/submissions [post]
func (h *Handlers) RecordSubmission(c *gin.Context) {
	postID := c.Param("id")
	if _, err := uuid.Parse(postID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "post id must be a UUID")
		return
	}

	var req RecordSubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	outcome := services.Outcome{
		Summary:    req.OutcomeSummary,
		Success:    req.Success,
		ExternalID: req.ExternalID,
	}
	if req.SubmittedAt != "" {
		t, err := time.Parse(time.RFC3339, req.SubmittedAt)
		if err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "submitted_at must be RFC 3339")
			return
		}
		outcome.SubmittedAt = t
	}
	if req.ScoreCheckAt != "" {
		t, err := time.Parse(time.RFC3339, req.ScoreCheckAt)
		if err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "score_check_at must be RFC 3339")
			return
		}
		outcome.ScoreCheckAt = &t
	}

	resp, err := h.subSvc.Record(c.Request.Context(), postID, outcome)
	if err != nil {
		switch err {
		case services.ErrPostNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "scheduled post not found")
		case services.ErrConflictingUpdate:
			fail(c, http.StatusConflict, ErrCodeConflict, err.Error())
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	middleware.CountSubmissionRecorded(req.Success)
	ok(c, http.StatusCreated, resp)
}
