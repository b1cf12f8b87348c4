// Package services – ListingService
//
// This file implements ordered, paged views over a user's scheduled posts.
// Sort parameters are validated against an explicit allow-list; unrecognized
// values fail with an error instead of silently falling back to a default
// (the transport layer may substitute defaults before calling in, but the
// core never does). Paging is 0-based: the returned window starts at
// page*size.
package services

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/tbourn/go-post-scheduler/internal/domain"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Sort directions accepted by List.
const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

// sortColumns maps the externally visible sortable attributes to the columns
// used in ORDER BY. Anything outside this map is rejected.
var sortColumns = map[string]string{
	"title":           "title",
	"submission_date": "submission_date",
	"created_at":      "created_at",
}

// PagingInfo reports paging metadata for caller-side headers.
type PagingInfo struct {
	TotalItems int64 `json:"total_items"`
	TotalPages int64 `json:"total_pages"`
	Page       int   `json:"page"`
	Size       int   `json:"size"`
}

// String renders the metadata in the compact form emitted via the PAGING_INFO
// response header.
func (p PagingInfo) String() string {
	return fmt.Sprintf("PagingInfo [totalItems=%d, totalPages=%d, page=%d, size=%d]",
		p.TotalItems, p.TotalPages, p.Page, p.Size)
}

// ListingRepo defines the repository contract required by ListingService.
type ListingRepo interface {
	// CountPosts returns the total number of posts owned by userID.
	CountPosts(ctx context.Context, db *gorm.DB, userID string) (int64, error)

	// ListPostsPage returns a page of posts ordered by an allow-listed column.
	ListPostsPage(ctx context.Context, db *gorm.DB, userID, order string, offset, limit int) ([]domain.ScheduledPost, error)
}

// ListingService provides read-only paged views of scheduled posts.
type ListingService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the listing repository used by this service.
	Repo ListingRepo
}

// NewListingService constructs a ListingService.
func NewListingService(db *gorm.DB, r ListingRepo) *ListingService {
	return &ListingService{DB: db, Repo: r}
}

// List returns at most size posts owned by userID starting at offset
// page*size, ordered by sortField in sortDir. page and size must be
// non-negative; size 0 yields an empty page without error. Invalid sort
// parameters fail with ErrInvalidSortDirection / ErrInvalidSortField.
func (s *ListingService) List(ctx context.Context, userID string, page, size int, sortDir, sortField string) ([]domain.ScheduledPost, error) {
	tr := otel.Tracer("services/ListingService")
	ctx, span := tr.Start(ctx, "List",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.Int("page", page),
			attribute.Int("size", size),
		),
	)
	defer span.End()

	order, err := orderClause(sortDir, sortField)
	if err != nil {
		return nil, err
	}
	if page < 0 || size < 0 {
		return nil, ErrInvalidPaging
	}
	if size == 0 {
		return []domain.ScheduledPost{}, nil
	}
	return s.Repo.ListPostsPage(ctx, s.DB, userID, order, page*size, size)
}

// PagingInfo computes paging metadata for userID's posts. page and size must
// be non-negative; a size of 0 reports 0 total pages.
func (s *ListingService) PagingInfo(ctx context.Context, userID string, page, size int) (PagingInfo, error) {
	if page < 0 || size < 0 {
		return PagingInfo{}, ErrInvalidPaging
	}
	total, err := s.Repo.CountPosts(ctx, s.DB, userID)
	if err != nil {
		return PagingInfo{}, err
	}
	var pages int64
	if size > 0 {
		pages = (total + int64(size) - 1) / int64(size)
	}
	return PagingInfo{TotalItems: total, TotalPages: pages, Page: page, Size: size}, nil
}

// orderClause validates sort parameters and builds the ORDER BY expression.
func orderClause(dir, field string) (string, error) {
	switch dir {
	case SortAsc, SortDesc:
	default:
		return "", ErrInvalidSortDirection
	}
	col, ok := sortColumns[field]
	if !ok {
		return "", ErrInvalidSortField
	}
	return col + " " + dir, nil
}
