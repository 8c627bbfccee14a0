package search

import (
	"context"
	"fmt"

	"bookfinder/internal/logger"
	"bookfinder/internal/openlibrary"
	"bookfinder/internal/query"
)

// Client is what Service needs from the Open Library client.
type Client interface {
	Fetcher
	Work(ctx context.Context, id string) (*openlibrary.Work, error)
	CoverURL(coverID int, size openlibrary.CoverSize) string
}

// Service serves stateless one-shot lookups: a single search page or a work.
type Service struct {
	client  Client
	builder query.Builder
}

// NewService wraps client. pageSize <= 0 uses the default limit.
func NewService(client Client, pageSize int) *Service {
	return &Service{client: client, builder: query.Builder{Limit: pageSize}}
}

// PageSize is the limit sent with each request.
func (s *Service) PageSize() int {
	return s.builder.Build(query.FilterSet{}, 1).Limit
}

// NewController builds a session controller over the same client.
func (s *Service) NewController(opts ...Option) *Controller {
	opts = append([]Option{WithPageSize(s.builder.Limit)}, opts...)
	return New(s.client, opts...)
}

// Search fetches one page for filters and maps it to DTOs.
func (s *Service) Search(ctx context.Context, filters query.FilterSet, page int) (*SearchResult, error) {
	defer logger.Track(ctx, "search.Service.Search")()

	req := s.builder.Build(filters, page)
	resp, err := s.client.Search(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", filters, err)
	}
	return &SearchResult{
		Page:  req.Page,
		Total: resp.NumFound,
		Books: NewBookDTOs(resp.Docs, s.client.CoverURL),
	}, nil
}

// Books maps controller state results to DTOs with the client's cover host.
func (s *Service) Books(docs []openlibrary.Document) []BookDTO {
	return NewBookDTOs(docs, s.client.CoverURL)
}

// Work fetches the detail record for id.
func (s *Service) Work(ctx context.Context, id string) (*openlibrary.Work, error) {
	defer logger.Track(ctx, "search.Service.Work")()
	return s.client.Work(ctx, id)
}

// CoverURL builds a cover URL on the client's covers host.
func (s *Service) CoverURL(coverID int, size openlibrary.CoverSize) string {
	return s.client.CoverURL(coverID, size)
}
