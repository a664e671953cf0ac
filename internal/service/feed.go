package service

import (
	"context"

	"github.com/mifthebest/hw05-final/internal/models"
	"github.com/mifthebest/hw05-final/internal/repository"
)

// PageSize is the number of posts shown on every listing page.
const PageSize = 10

// Page is one window of a post listing plus the pagination state the
// templates need to render page links.
type Page struct {
	Posts  []*models.Post
	Number int
	Total  int
}

func (p *Page) HasPrev() bool { return p.Number > 1 }
func (p *Page) HasNext() bool { return p.Number < p.Total }
func (p *Page) Prev() int     { return p.Number - 1 }
func (p *Page) Next() int     { return p.Number + 1 }

// FeedService assembles paginated post listings for the home page,
// group pages, profiles and the follow feed.
type FeedService struct {
	postRepo repository.PostRepository
}

func NewFeedService(postRepo repository.PostRepository) *FeedService {
	return &FeedService{postRepo: postRepo}
}

func (s *FeedService) Home(ctx context.Context, page int) (*Page, error) {
	return s.assemble(ctx, page,
		func(ctx context.Context) (int64, error) { return s.postRepo.Count(ctx) },
		func(ctx context.Context, limit, offset int) ([]*models.Post, error) {
			return s.postRepo.List(ctx, limit, offset)
		})
}

func (s *FeedService) ByGroup(ctx context.Context, groupID uint, page int) (*Page, error) {
	return s.assemble(ctx, page,
		func(ctx context.Context) (int64, error) { return s.postRepo.CountByGroup(ctx, groupID) },
		func(ctx context.Context, limit, offset int) ([]*models.Post, error) {
			return s.postRepo.ListByGroup(ctx, groupID, limit, offset)
		})
}

func (s *FeedService) ByAuthor(ctx context.Context, authorID uint, page int) (*Page, error) {
	return s.assemble(ctx, page,
		func(ctx context.Context) (int64, error) { return s.postRepo.CountByAuthor(ctx, authorID) },
		func(ctx context.Context, limit, offset int) ([]*models.Post, error) {
			return s.postRepo.ListByAuthor(ctx, authorID, limit, offset)
		})
}

// Followed returns the page of posts written by authors the user follows.
func (s *FeedService) Followed(ctx context.Context, userID uint, page int) (*Page, error) {
	return s.assemble(ctx, page,
		func(ctx context.Context) (int64, error) { return s.postRepo.CountByFollowed(ctx, userID) },
		func(ctx context.Context, limit, offset int) ([]*models.Post, error) {
			return s.postRepo.ListByFollowed(ctx, userID, limit, offset)
		})
}

func (s *FeedService) assemble(
	ctx context.Context,
	page int,
	count func(ctx context.Context) (int64, error),
	list func(ctx context.Context, limit, offset int) ([]*models.Post, error),
) (*Page, error) {
	if page < 1 {
		page = 1
	}

	total, err := count(ctx)
	if err != nil {
		return nil, err
	}

	posts, err := list(ctx, PageSize, (page-1)*PageSize)
	if err != nil {
		return nil, err
	}

	return &Page{
		Posts:  posts,
		Number: page,
		Total:  totalPages(total),
	}, nil
}

// totalPages never reports zero pages: an empty listing is a single
// empty page, not a missing one.
func totalPages(count int64) int {
	pages := int((count + PageSize - 1) / PageSize)
	if pages < 1 {
		pages = 1
	}
	return pages
}
