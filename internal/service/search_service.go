package service

import (
	"context"
	"strings"

	"github.com/donaldmo/pandopot-api/internal/domain/apperr"
	"github.com/donaldmo/pandopot-api/internal/domain/entity"
	"github.com/donaldmo/pandopot-api/internal/platform/logger"
	"github.com/donaldmo/pandopot-api/internal/repository"
)

const (
	defaultPage     = 1
	defaultPageSize = 10
	maxPageSize     = 100

	CategoryTypeMarket  = "market"
	CategoryTypeProduct = "product"
)

// SearchQuery filters are combined conjunctively; empty fields are ignored.
type SearchQuery struct {
	Query        string
	CategoryID   string
	CategoryName string
	SubCategory  string
	CategoryType string
	Page         int
	Size         int
}

// SearchResult lists products before markets. Each collection is paged on its own.
type SearchResult struct {
	Products []*entity.Product `json:"products"`
	Markets  []*entity.Market  `json:"markets"`
}

// Listings returns the hits in display order.
func (r *SearchResult) Listings() []entity.Listing {
	out := make([]entity.Listing, 0, len(r.Products)+len(r.Markets))
	for _, p := range r.Products {
		out = append(out, p)
	}
	for _, m := range r.Markets {
		out = append(out, m)
	}
	return out
}

type SearchService interface {
	Search(ctx context.Context, q SearchQuery) (*SearchResult, error)
	// ListOwned applies q to the listings authored by ownerID only.
	ListOwned(ctx context.Context, ownerID string, q SearchQuery) (*SearchResult, error)
}

type searchService struct {
	products repository.ProductRepository
	markets  repository.MarketRepository
	log      logger.Logger
}

func NewSearchService(products repository.ProductRepository, markets repository.MarketRepository, log logger.Logger) SearchService {
	return &searchService{products: products, markets: markets, log: log}
}

func normalizePage(page, size int) repository.Page {
	if page < 1 {
		page = defaultPage
	}
	if size < 1 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	return repository.NewPage(page, size)
}

func (s *searchService) Search(ctx context.Context, q SearchQuery) (*SearchResult, error) {
	return s.find(ctx, "SearchService.Search", "", q)
}

func (s *searchService) ListOwned(ctx context.Context, ownerID string, q SearchQuery) (*SearchResult, error) {
	const op = "SearchService.ListOwned"
	if ownerID == "" {
		return nil, apperr.NewValidation(op, "owner ID is required")
	}
	return s.find(ctx, op, ownerID, q)
}

func (s *searchService) find(ctx context.Context, op, ownerID string, q SearchQuery) (*SearchResult, error) {
	filter := repository.ListingFilter{
		Query:        strings.TrimSpace(q.Query),
		CategoryID:   strings.TrimSpace(q.CategoryID),
		CategoryName: strings.TrimSpace(q.CategoryName),
		SubCategory:  strings.TrimSpace(q.SubCategory),
		OwnerID:      ownerID,
	}
	page := normalizePage(q.Page, q.Size)
	kind := strings.ToLower(strings.TrimSpace(q.CategoryType))
	s.log.Debugf("%s: query=%q category=%s/%q/%q owner=%s type=%s limit=%d skip=%d",
		op, filter.Query, filter.CategoryID, filter.CategoryName, filter.SubCategory, ownerID, kind, page.Limit, page.Skip)

	result := &SearchResult{Products: []*entity.Product{}, Markets: []*entity.Market{}}

	if kind != CategoryTypeMarket {
		products, err := s.products.Search(ctx, filter, page)
		if err != nil {
			s.log.Errorf("%s: product search failed: %v", op, err)
			return nil, storeErr(op, err, "product")
		}
		result.Products = products
	}
	if kind != CategoryTypeProduct {
		markets, err := s.markets.Search(ctx, filter, page)
		if err != nil {
			s.log.Errorf("%s: market search failed: %v", op, err)
			return nil, storeErr(op, err, "market")
		}
		result.Markets = markets
	}
	return result, nil
}
