package usecase

import (
	"context"
	"math"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/totegamma/community/internal/domain"
)

// SortMode orders listings that are not filtered by tag or keyword.
type SortMode string

const (
	SortRecency SortMode = "recency"
	SortViews   SortMode = "views"
	SortLikes   SortMode = "likes"
)

// ParseSortMode maps the query parameter to a SortMode. Unknown values and
// "createdAt" fall back to recency.
func ParseSortMode(s string) SortMode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "views":
		return SortViews
	case "likes":
		return SortLikes
	default:
		return SortRecency
	}
}

// Strategy is one of the mutually exclusive listing paths.
type Strategy int

const (
	StrategyRecent Strategy = iota
	StrategyTag
	StrategySearch
	StrategyPopularByViews
	StrategyPopularByLikes
)

func (s Strategy) String() string {
	switch s {
	case StrategyTag:
		return "tag"
	case StrategySearch:
		return "search"
	case StrategyPopularByViews:
		return "popularByViews"
	case StrategyPopularByLikes:
		return "popularByLikes"
	case StrategyRecent:
		return "recent"
	default:
		return "unknown"
	}
}

// ListingQuery is the input of a post listing.
type ListingQuery struct {
	Category string
	Tag      string
	Search   string
	Sort     SortMode
	Page     domain.PageRequest
}

// SelectStrategy picks the listing path. Tag wins over search, search wins
// over sort, and everything else lists by recency.
func SelectStrategy(q ListingQuery) Strategy {
	switch {
	case strings.TrimSpace(q.Tag) != "":
		return StrategyTag
	case strings.TrimSpace(q.Search) != "":
		return StrategySearch
	case q.Sort == SortViews:
		return StrategyPopularByViews
	case q.Sort == SortLikes:
		return StrategyPopularByLikes
	default:
		return StrategyRecent
	}
}

// ListingUsecase executes listings and annotates them with like state.
type ListingUsecase struct {
	store   Store
	likes   *LikeUsecase
	maxSize int
}

func NewListingUsecase(store Store, likes *LikeUsecase, maxSize int) *ListingUsecase {
	return &ListingUsecase{store: store, likes: likes, maxSize: maxSize}
}

// List runs the selected strategy. When viewerID is non-nil the page is
// annotated with one BatchCheckLiked call.
func (uc *ListingUsecase) List(ctx context.Context, q ListingQuery, viewerID *int64) (domain.Page[domain.PostSummary], error) {
	ctx, span := tracer.Start(ctx, "Listing.Usecase.List")
	defer span.End()

	req, err := uc.normalizePage(q.Page)
	if err != nil {
		return domain.Page[domain.PostSummary]{}, err
	}

	category, err := parseListingCategory(q.Category)
	if err != nil {
		return domain.Page[domain.PostSummary]{}, err
	}

	strategy := SelectStrategy(q)
	span.SetAttributes(attribute.String("strategy", strategy.String()))

	posts := uc.store.Posts()
	var page domain.Page[domain.PostSummary]
	switch strategy {
	case StrategyTag:
		page, err = posts.ListByTag(ctx, strings.TrimSpace(q.Tag), req)
	case StrategySearch:
		page, err = posts.Search(ctx, strings.TrimSpace(q.Search), req)
	case StrategyPopularByViews:
		page, err = posts.ListPopularByViews(ctx, category, req)
	case StrategyPopularByLikes:
		page, err = posts.ListPopularByLikes(ctx, category, req)
	default:
		page, err = posts.ListRecent(ctx, category, req)
	}
	if err != nil {
		span.RecordError(err)
		return domain.Page[domain.PostSummary]{}, err
	}

	return uc.annotate(ctx, page, viewerID)
}

// LikedBy lists the posts liked by viewerID, most recently created first.
func (uc *ListingUsecase) LikedBy(ctx context.Context, viewerID int64, req domain.PageRequest) (domain.Page[domain.PostSummary], error) {
	ctx, span := tracer.Start(ctx, "Listing.Usecase.LikedBy")
	defer span.End()

	req, err := uc.normalizePage(req)
	if err != nil {
		return domain.Page[domain.PostSummary]{}, err
	}

	page, err := uc.store.Posts().ListLikedBy(ctx, viewerID, req)
	if err != nil {
		span.RecordError(err)
		return domain.Page[domain.PostSummary]{}, err
	}
	for i := range page.Content {
		page.Content[i].IsLiked = true
	}
	return page, nil
}

// AuthoredBy lists the posts written by the member with accountID.
func (uc *ListingUsecase) AuthoredBy(ctx context.Context, accountID int64, req domain.PageRequest) (domain.Page[domain.PostSummary], error) {
	ctx, span := tracer.Start(ctx, "Listing.Usecase.AuthoredBy")
	defer span.End()

	req, err := uc.normalizePage(req)
	if err != nil {
		return domain.Page[domain.PostSummary]{}, err
	}

	page, err := uc.store.Posts().ListByMember(ctx, accountID, req)
	if err != nil {
		span.RecordError(err)
		return domain.Page[domain.PostSummary]{}, err
	}
	return uc.annotate(ctx, page, &accountID)
}

func (uc *ListingUsecase) annotate(ctx context.Context, page domain.Page[domain.PostSummary], viewerID *int64) (domain.Page[domain.PostSummary], error) {
	if viewerID == nil || len(page.Content) == 0 {
		return page, nil
	}

	ids := make([]int64, len(page.Content))
	for i, p := range page.Content {
		ids[i] = p.ID
	}

	liked, err := uc.likes.BatchCheckLiked(ctx, *viewerID, ids)
	if err != nil {
		return domain.Page[domain.PostSummary]{}, err
	}
	for i := range page.Content {
		page.Content[i].IsLiked = liked[page.Content[i].ID]
	}
	return page, nil
}

func (uc *ListingUsecase) normalizePage(req domain.PageRequest) (domain.PageRequest, error) {
	if req.Page < 0 {
		return req, domain.NewValidationError("page", "page must not be negative")
	}
	if req.Size <= 0 {
		return req, domain.NewValidationError("size", "size must be positive")
	}
	if uc.maxSize > 0 && req.Size > uc.maxSize {
		req.Size = uc.maxSize
	}
	if req.Page > math.MaxInt/req.Size {
		return req, domain.NewValidationError("page", "page is out of range")
	}
	return req, nil
}

func parseListingCategory(s string) (domain.Category, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, domain.CategoryAll) {
		return "", nil
	}
	category, ok := domain.ParseCategory(s)
	if !ok {
		return "", domain.NewValidationError("category", "unknown category "+s)
	}
	return category, nil
}
