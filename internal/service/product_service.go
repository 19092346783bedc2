package service

import (
	"context"

	"foodshop/internal/domain"
	"foodshop/internal/repository"
)

// ProductService минимальный каталог: заведение товаров, смена цены и остатка
type ProductService struct {
	repo repository.ProductRepository
}

func NewProductService(repo repository.ProductRepository) *ProductService {
	return &ProductService{repo: repo}
}

func (s *ProductService) Create(ctx context.Context, p domain.Product) (*domain.Product, error) {
	if err := validateProduct(p); err != nil {
		return nil, err
	}
	cp := p
	if err := s.repo.Create(ctx, &cp); err != nil {
		return nil, err
	}
	return &cp, nil
}

func (s *ProductService) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	if id <= 0 {
		return nil, invalidf("product id must be positive")
	}
	return s.repo.GetByID(ctx, id)
}

func (s *ProductService) Update(ctx context.Context, p domain.Product) (*domain.Product, error) {
	if p.ID <= 0 {
		return nil, invalidf("product id must be positive")
	}
	if err := validateProduct(p); err != nil {
		return nil, err
	}
	cp := p
	if err := s.repo.Update(ctx, &cp); err != nil {
		return nil, err
	}
	return &cp, nil
}

func (s *ProductService) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return invalidf("product id must be positive")
	}
	return s.repo.Delete(ctx, id)
}

func (s *ProductService) List(ctx context.Context) ([]domain.Product, error) {
	return s.repo.List(ctx)
}

func validateProduct(p domain.Product) error {
	if p.Name == "" {
		return invalidf("name is required")
	}
	if p.Stock < 0 {
		return invalidf("stock must not be negative")
	}
	return validatePrice("price", p.Price)
}
