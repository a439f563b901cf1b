package service

import (
	"context"
	"fmt"

	"yatube/internal/models"
	"yatube/internal/observability"
	"yatube/internal/pagination"
	"yatube/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// FeedKind selects which posts a feed contains.
type FeedKind string

const (
	FeedIndex     FeedKind = "index"
	FeedGroup     FeedKind = "group"
	FeedProfile   FeedKind = "profile"
	FeedFollowing FeedKind = "following"
)

// FeedRequest describes one page of one feed. Page is the raw query value.
type FeedRequest struct {
	Kind     FeedKind
	Slug     string
	Username string
	ViewerID uint
	Page     string
}

// Feed is a page of posts, newest first, plus the context object of its kind.
type Feed struct {
	Kind      FeedKind                      `json:"kind"`
	Page      pagination.Page[*models.Post] `json:"page"`
	Group     *models.Group                 `json:"group,omitempty"`
	Author    *models.User                  `json:"author,omitempty"`
	Following bool                          `json:"following"`
}

// FeedService assembles paginated post feeds.
type FeedService struct {
	postRepo   repository.PostRepository
	groupRepo  repository.GroupRepository
	userRepo   repository.UserRepository
	followRepo repository.FollowRepository
	paginator  pagination.Paginator
}

func NewFeedService(
	postRepo repository.PostRepository,
	groupRepo repository.GroupRepository,
	userRepo repository.UserRepository,
	followRepo repository.FollowRepository,
	perPage int,
) *FeedService {
	return &FeedService{
		postRepo:   postRepo,
		groupRepo:  groupRepo,
		userRepo:   userRepo,
		followRepo: followRepo,
		paginator:  pagination.New(perPage),
	}
}

func (s *FeedService) Index(ctx context.Context, page string) (*Feed, error) {
	return s.Assemble(ctx, FeedRequest{Kind: FeedIndex, Page: page})
}

func (s *FeedService) Group(ctx context.Context, slug, page string) (*Feed, error) {
	return s.Assemble(ctx, FeedRequest{Kind: FeedGroup, Slug: slug, Page: page})
}

func (s *FeedService) Profile(ctx context.Context, username string, viewerID uint, page string) (*Feed, error) {
	return s.Assemble(ctx, FeedRequest{Kind: FeedProfile, Username: username, ViewerID: viewerID, Page: page})
}

func (s *FeedService) Following(ctx context.Context, viewerID uint, page string) (*Feed, error) {
	return s.Assemble(ctx, FeedRequest{Kind: FeedFollowing, ViewerID: viewerID, Page: page})
}

// Assemble resolves the feed context, counts matching posts and fetches the requested page.
func (s *FeedService) Assemble(ctx context.Context, req FeedRequest) (feed *Feed, err error) {
	span, ctx := observability.NewSpan(ctx, "feed.assemble", attribute.String("feed.kind", string(req.Kind)))
	defer span.End()
	defer observability.TrackFeed(string(req.Kind))()
	defer func() { span.SetError(err) }()

	feed = &Feed{Kind: req.Kind}
	var filter repository.PostFilter

	switch req.Kind {
	case FeedIndex:
	case FeedGroup:
		group, err := s.groupRepo.GetBySlug(ctx, req.Slug)
		if err != nil {
			return nil, err
		}
		feed.Group = group
		filter.GroupID = group.ID
	case FeedProfile:
		author, err := s.userRepo.GetByUsername(ctx, req.Username)
		if err != nil {
			return nil, err
		}
		feed.Author = author
		filter.AuthorID = author.ID
		if req.ViewerID != 0 && req.ViewerID != author.ID {
			following, err := s.followRepo.Exists(ctx, req.ViewerID, author.ID)
			if err != nil {
				return nil, err
			}
			feed.Following = following
		}
	case FeedFollowing:
		if req.ViewerID == 0 {
			return nil, models.NewUnauthorizedError("Authentication required")
		}
		ids, err := s.followRepo.FollowingIDs(ctx, req.ViewerID)
		if err != nil {
			return nil, err
		}
		filter.AuthorIDs = ids
		if filter.AuthorIDs == nil {
			filter.AuthorIDs = []uint{}
		}
	default:
		return nil, models.NewValidationError(fmt.Sprintf("Unknown feed kind %q", req.Kind))
	}

	count, err := s.postRepo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}
	number := s.paginator.Resolve(req.Page, count)
	limit, offset := s.paginator.Window(number)

	posts, err := s.postRepo.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, err
	}

	feed.Page = pagination.NewPage(s.paginator, number, count, posts)
	span.AddAttributes(
		attribute.Int("feed.page", number),
		attribute.Int64("feed.count", count),
	)
	return feed, nil
}
