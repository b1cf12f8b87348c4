package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-post-scheduler/internal/domain"
	"github.com/tbourn/go-post-scheduler/internal/http/middleware"
	"github.com/tbourn/go-post-scheduler/internal/repo"
	"github.com/tbourn/go-post-scheduler/internal/services"
)

// ---------- test DB + repo shims ----------

func newPostDB(t *testing.T) *gorm.DB {
	t.Helper()

	// Unique DSN per call to avoid cross-test contamination
	dsn := fmt.Sprintf("file:post_handlers_%s?mode=memory&cache=shared", uuid.NewString())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	db.Exec("PRAGMA foreign_keys=ON;")
	if err := db.AutoMigrate(&domain.ScheduledPost{}, &domain.SubmissionResponse{}, &domain.Idempotency{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// Minimal shims implementing the service repo contracts via the repo package
// (like router.go).

type testPostRepo struct{}

func (testPostRepo) CreatePost(ctx context.Context, db *gorm.DB, p *domain.ScheduledPost) error {
	return repo.CreatePost(ctx, db, p)
}

func (testPostRepo) GetPost(ctx context.Context, db *gorm.DB, id, userID string) (*domain.ScheduledPost, error) {
	return repo.GetPost(ctx, db, id, userID)
}

func (testPostRepo) UpdatePost(ctx context.Context, db *gorm.DB, p *domain.ScheduledPost, expectedVersion int64) error {
	return repo.UpdatePost(ctx, db, p, expectedVersion)
}

func (testPostRepo) DeletePost(ctx context.Context, db *gorm.DB, id, userID string) error {
	return repo.DeletePost(ctx, db, id, userID)
}

type testQuotaRepo struct{}

func (testQuotaRepo) CountPending(ctx context.Context, db *gorm.DB, userID string, from, to time.Time) (int64, error) {
	return repo.CountPending(ctx, db, userID, from, to)
}

type testSubmissionRepo struct{}

func (testSubmissionRepo) AppendSubmission(ctx context.Context, db *gorm.DB, postID string, resp *domain.SubmissionResponse, success bool, externalID string) error {
	return repo.AppendSubmission(ctx, db, postID, resp, success, externalID)
}

func (testSubmissionRepo) ListSubmissions(ctx context.Context, db *gorm.DB, postID string) ([]domain.SubmissionResponse, error) {
	return repo.ListSubmissions(ctx, db, postID)
}

type testListingRepo struct{}

func (testListingRepo) CountPosts(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	return repo.CountPosts(ctx, db, userID)
}

func (testListingRepo) ListPostsPage(ctx context.Context, db *gorm.DB, userID, order string, offset, limit int) ([]domain.ScheduledPost, error) {
	return repo.ListPostsPage(ctx, db, userID, order, offset, limit)
}

// ---------- test server ----------

func newTestServer(t *testing.T, dailyLimit int) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := newPostDB(t)
	quotaSvc := services.NewQuotaService(db, testQuotaRepo{}, dailyLimit)
	schedSvc := services.NewSchedulerService(db, testPostRepo{}, quotaSvc)
	listSvc := services.NewListingService(db, testListingRepo{})
	subSvc := services.NewSubmissionService(db, testSubmissionRepo{})
	h := New(schedSvc, listSvc, subSvc, quotaSvc)

	r := gin.New()
	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{MaxLen: 200},
		func(ctx context.Context, userID, key string, now time.Time) (bool, error) {
			rec, err := repo.GetIdempotency(ctx, db, userID, key, now)
			if err != nil || rec == nil {
				return false, nil
			}
			return true, nil
		},
	))
	r.GET("/scheduledPosts", h.ListPosts)
	r.POST("/scheduledPosts", h.SchedulePost)
	r.GET("/scheduledPosts/available", h.Available)
	r.GET("/scheduledPosts/:id", h.GetPost)
	r.PUT("/scheduledPosts/:id", h.UpdatePost)
	r.DELETE("/scheduledPosts/:id", h.DeletePost)
	r.POST("/scheduledPosts/:id/submissions", h.RecordSubmission)
	return r, db
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "u1")
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func schedulePost(t *testing.T, r *gin.Engine, title string, hdr map[string]string) ScheduledPostResponse {
	t.Helper()
	w := doJSON(t, r, http.MethodPost, "/scheduledPosts", ScheduledPostRequest{
		Title:          title,
		Body:           "body of " + title,
		Target:         "r/golang",
		SubmissionDate: "2030-03-01 18:30",
	}, hdr)
	if w.Code != http.StatusCreated {
		t.Fatalf("schedule %q: status %d body %s", title, w.Code, w.Body.String())
	}
	var resp ScheduledPostResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return resp
}

// ---------- tests ----------

func TestSchedulePost_CreatesWithFreshDispatchState(t *testing.T) {
	r, _ := newTestServer(t, 3)

	resp := schedulePost(t, r, "hello", nil)
	if resp.ID == "" || resp.Title != "hello" || resp.Target != "r/golang" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.Dispatched || resp.ExternalID != "" {
		t.Fatalf("fresh post carries dispatch state: %+v", resp)
	}
	if resp.Status != services.StatusNotSent {
		t.Fatalf("status = %q, want %q", resp.Status, services.StatusNotSent)
	}
	if resp.SubmissionDate != "2030-03-01 18:30" {
		t.Fatalf("submission date round-trip: %q", resp.SubmissionDate)
	}
}

func TestSchedulePost_BadPayloads(t *testing.T) {
	r, _ := newTestServer(t, 3)

	w := doJSON(t, r, http.MethodPost, "/scheduledPosts", map[string]any{"title": "x"}, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing fields: status %d", w.Code)
	}

	w = doJSON(t, r, http.MethodPost, "/scheduledPosts", ScheduledPostRequest{
		Title: "x", Target: "r/golang", SubmissionDate: "March 1st",
	}, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad date: status %d", w.Code)
	}
}

func TestSchedulePost_QuotaExceeded(t *testing.T) {
	r, _ := newTestServer(t, 1)

	w := doJSON(t, r, http.MethodPost, "/scheduledPosts", ScheduledPostRequest{
		Title: "first", Target: "r/golang", SubmissionDate: dueToday(),
	}, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("first: status %d body %s", w.Code, w.Body.String())
	}
	w = doJSON(t, r, http.MethodPost, "/scheduledPosts", ScheduledPostRequest{
		Title: "second", Target: "r/golang", SubmissionDate: dueToday(),
	}, nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("status %d, want 403; body %s", w.Code, w.Body.String())
	}
	var er ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if er.Code != ErrCodeQuotaExceeded {
		t.Fatalf("code = %q, want %q", er.Code, ErrCodeQuotaExceeded)
	}
}

// dueToday returns a wire-format submission date within the current UTC day,
// so the first scheduled post consumes today's quota.
func dueToday() string {
	return time.Now().UTC().Format("2006-01-02") + " 23:00"
}

func TestSchedulePost_PrivilegedUserBypassesQuota(t *testing.T) {
	r, _ := newTestServer(t, 1)
	hdr := map[string]string{"X-User-Privileges": "SOME_ROLE,POST_UNLIMITED_PRIVILEGE"}

	for i := 0; i < 4; i++ {
		schedulePost(t, r, fmt.Sprintf("post-%d", i), hdr)
	}
}

func TestSchedulePost_QuotaCountsOnlyTodaysPending(t *testing.T) {
	r, _ := newTestServer(t, 1)

	// The helper schedules for 2030; today's window stays free.
	schedulePost(t, r, "far future", nil)
	w := doJSON(t, r, http.MethodPost, "/scheduledPosts", ScheduledPostRequest{
		Title: "today", Target: "r/golang", SubmissionDate: dueToday(),
	}, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("status %d, want 201; body %s", w.Code, w.Body.String())
	}
}

func TestSchedulePost_IdempotencyKeyReplays(t *testing.T) {
	r, db := newTestServer(t, 3)
	hdr := map[string]string{"Idempotency-Key": "retry-123"}

	first := schedulePost(t, r, "once", hdr)
	second := schedulePost(t, r, "once", hdr)
	if first.ID != second.ID {
		t.Fatalf("replay created a new post: %q vs %q", first.ID, second.ID)
	}

	var n int64
	if err := db.Model(&domain.ScheduledPost{}).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 post, got %d", n)
	}
}

func TestAvailable_Messages(t *testing.T) {
	r, _ := newTestServer(t, 3)

	w := doJSON(t, r, http.MethodGet, "/scheduledPosts/available", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	var resp AvailableResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Unlimited || resp.Remaining != 3 {
		t.Fatalf("unexpected quota: %+v", resp)
	}
	if resp.Message != "You can schedule maximum 3 posts to be submitted today" {
		t.Fatalf("message = %q", resp.Message)
	}

	w = doJSON(t, r, http.MethodGet, "/scheduledPosts/available", nil,
		map[string]string{"X-User-Privileges": "POST_UNLIMITED_PRIVILEGE"})
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Unlimited || resp.Message != "You can schedule as many posts as you want" {
		t.Fatalf("unexpected privileged response: %+v", resp)
	}
}

func TestGetPost_Errors(t *testing.T) {
	r, _ := newTestServer(t, 3)

	w := doJSON(t, r, http.MethodGet, "/scheduledPosts/not-a-uuid", nil, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("invalid id: status %d", w.Code)
	}
	w = doJSON(t, r, http.MethodGet, "/scheduledPosts/"+uuid.NewString(), nil, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("missing id: status %d", w.Code)
	}
}

func TestGetPost_OtherUsersPostIsInvisible(t *testing.T) {
	r, _ := newTestServer(t, 3)
	created := schedulePost(t, r, "mine", nil)

	w := doJSON(t, r, http.MethodGet, "/scheduledPosts/"+created.ID, nil,
		map[string]string{"X-User-ID": "intruder"})
	if w.Code != http.StatusNotFound {
		t.Fatalf("status %d, want 404", w.Code)
	}
}

func TestUpdatePost_OverwritesContentButNotDispatchState(t *testing.T) {
	r, _ := newTestServer(t, 3)
	created := schedulePost(t, r, "original", nil)

	// Dispatch succeeds; the post now owns an external id.
	w := doJSON(t, r, http.MethodPost, "/scheduledPosts/"+created.ID+"/submissions", RecordSubmissionRequest{
		OutcomeSummary: "submitted", Success: true, ExternalID: "t3_abc",
	}, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("record: status %d body %s", w.Code, w.Body.String())
	}

	w = doJSON(t, r, http.MethodPut, "/scheduledPosts/"+created.ID+"?resubmitOptionsActivated=true", ScheduledPostRequest{
		Title: "revised", Target: "r/programming", SubmissionDate: "2030-04-01 09:00",
	}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("update: status %d body %s", w.Code, w.Body.String())
	}
	var resp ScheduledPostResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Title != "revised" || resp.Target != "r/programming" || !resp.ResubmitEnabled {
		t.Fatalf("content not applied: %+v", resp)
	}
	if !resp.Dispatched || resp.ExternalID != "t3_abc" {
		t.Fatalf("dispatch state lost on update: %+v", resp)
	}
	if resp.Status != "submitted" {
		t.Fatalf("status = %q, want submitted", resp.Status)
	}
}

func TestUpdatePost_NotFound(t *testing.T) {
	r, _ := newTestServer(t, 3)
	w := doJSON(t, r, http.MethodPut, "/scheduledPosts/"+uuid.NewString(), ScheduledPostRequest{
		Title: "x", Target: "r/golang", SubmissionDate: "2030-03-01 18:30",
	}, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status %d, want 404", w.Code)
	}
}

func TestDeletePost_RemovesAndRejectsRepeat(t *testing.T) {
	r, db := newTestServer(t, 3)
	created := schedulePost(t, r, "doomed", nil)

	w := doJSON(t, r, http.MethodDelete, "/scheduledPosts/"+created.ID, nil, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete: status %d", w.Code)
	}
	var n int64
	if err := db.Model(&domain.ScheduledPost{}).Count(&n).Error; err != nil || n != 0 {
		t.Fatalf("rows remain: %d, %v", n, err)
	}

	w = doJSON(t, r, http.MethodDelete, "/scheduledPosts/"+created.ID, nil, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("repeat delete: status %d, want 404", w.Code)
	}
}

func TestListPosts_OrderPagingHeader(t *testing.T) {
	r, _ := newTestServer(t, 10)
	for _, title := range []string{"C", "A", "B"} {
		schedulePost(t, r, title, nil)
	}

	w := doJSON(t, r, http.MethodGet, "/scheduledPosts?page=0&size=2", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list: status %d body %s", w.Code, w.Body.String())
	}
	var resp ListPostsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Posts) != 2 || resp.Posts[0].Title != "A" || resp.Posts[1].Title != "B" {
		t.Fatalf("default title-asc order broken: %+v", resp.Posts)
	}
	if resp.Paging.TotalItems != 3 || resp.Paging.TotalPages != 2 {
		t.Fatalf("paging: %+v", resp.Paging)
	}

	want := "PagingInfo [totalItems=3, totalPages=2, page=0, size=2]"
	if got := w.Header().Get("PAGING_INFO"); got != want {
		t.Fatalf("PAGING_INFO = %q, want %q", got, want)
	}

	// Second page carries the remainder.
	w = doJSON(t, r, http.MethodGet, "/scheduledPosts?page=1&size=2", nil, nil)
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Posts) != 1 || resp.Posts[0].Title != "C" {
		t.Fatalf("second page: %+v", resp.Posts)
	}
}

func TestListPosts_InvalidSortRejected(t *testing.T) {
	r, _ := newTestServer(t, 3)

	w := doJSON(t, r, http.MethodGet, "/scheduledPosts?sort=password", nil, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad sort field: status %d", w.Code)
	}
	w = doJSON(t, r, http.MethodGet, "/scheduledPosts?sortDir=sideways", nil, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad sort direction: status %d", w.Code)
	}
}

func TestListPosts_ETagNotModified(t *testing.T) {
	r, _ := newTestServer(t, 3)
	schedulePost(t, r, "one", nil)

	w := doJSON(t, r, http.MethodGet, "/scheduledPosts", nil, nil)
	etag := w.Header().Get("ETag")
	if etag == "" {
		t.Fatalf("expected ETag header")
	}

	w = doJSON(t, r, http.MethodGet, "/scheduledPosts", nil, map[string]string{"If-None-Match": etag})
	if w.Code != http.StatusNotModified {
		t.Fatalf("status %d, want 304", w.Code)
	}
}

func TestRecordSubmission_HistoryAndStatus(t *testing.T) {
	r, _ := newTestServer(t, 3)
	created := schedulePost(t, r, "watched", nil)
	hdr := map[string]string{"X-User-Timezone": "Europe/Athens"}

	attempts := []RecordSubmissionRequest{
		{OutcomeSummary: "rejected: rate limited", SubmittedAt: "2030-03-01T18:30:05Z"},
		{OutcomeSummary: "submitted", Success: true, ExternalID: "t3_xyz",
			SubmittedAt: "2030-03-01T19:00:00Z", ScoreCheckAt: "2030-03-01T21:00:00Z"},
	}
	for i, a := range attempts {
		w := doJSON(t, r, http.MethodPost, "/scheduledPosts/"+created.ID+"/submissions", a, nil)
		if w.Code != http.StatusCreated {
			t.Fatalf("attempt %d: status %d body %s", i, w.Code, w.Body.String())
		}
	}

	w := doJSON(t, r, http.MethodGet, "/scheduledPosts/"+created.ID, nil, hdr)
	var resp ScheduledPostResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "submitted" || !resp.Dispatched || resp.ExternalID != "t3_xyz" {
		t.Fatalf("derived state: %+v", resp)
	}
	if len(resp.DetailedStatus) != 2 {
		t.Fatalf("expected 2 detail rows, got %+v", resp.DetailedStatus)
	}
	if resp.DetailedStatus[0].OutcomeSummary != "rejected: rate limited" {
		t.Fatalf("append order lost: %+v", resp.DetailedStatus)
	}
	// Athens is UTC+2 in March.
	if resp.DetailedStatus[1].SubmittedAt != "2030-03-01 21:00:00 EET" {
		t.Fatalf("local rendering: %q", resp.DetailedStatus[1].SubmittedAt)
	}
	if resp.DetailedStatus[0].ScoreCheckAt != "" || resp.DetailedStatus[1].ScoreCheckAt == "" {
		t.Fatalf("score check rendering: %+v", resp.DetailedStatus)
	}
}

func TestRecordSubmission_Errors(t *testing.T) {
	r, _ := newTestServer(t, 3)

	w := doJSON(t, r, http.MethodPost, "/scheduledPosts/"+uuid.NewString()+"/submissions", RecordSubmissionRequest{
		OutcomeSummary: "submitted",
	}, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("missing post: status %d", w.Code)
	}

	created := schedulePost(t, r, "p", nil)
	w = doJSON(t, r, http.MethodPost, "/scheduledPosts/"+created.ID+"/submissions", RecordSubmissionRequest{
		OutcomeSummary: "submitted", SubmittedAt: "yesterday",
	}, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad timestamp: status %d", w.Code)
	}
}

func TestTimezoneBoundary_SubmissionDateParsedInUserZone(t *testing.T) {
	r, db := newTestServer(t, 3)
	hdr := map[string]string{"X-User-Timezone": "America/New_York"}

	resp := schedulePost(t, r, "tz", hdr)

	var stored domain.ScheduledPost
	if err := db.First(&stored, "id = ?", resp.ID).Error; err != nil {
		t.Fatalf("load: %v", err)
	}
	loc, _ := time.LoadLocation("America/New_York")
	want := time.Date(2030, 3, 1, 18, 30, 0, 0, loc).UTC()
	if !stored.SubmissionDate.UTC().Equal(want) {
		t.Fatalf("stored %v, want %v", stored.SubmissionDate.UTC(), want)
	}
	// And it renders back in the user's zone.
	if resp.SubmissionDate != "2030-03-01 18:30" {
		t.Fatalf("render: %q", resp.SubmissionDate)
	}
}
