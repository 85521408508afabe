package services_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/trackmyrvu/rvutracker/internal/domain/entities"
)

// MockVisitRepository mocks repositories.VisitRepository
type MockVisitRepository struct {
	mock.Mock
}

func (m *MockVisitRepository) List(ctx context.Context) ([]entities.Visit, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.Visit), args.Error(1)
}

func (m *MockVisitRepository) Create(ctx context.Context, draft entities.VisitDraft) (*entities.Visit, error) {
	args := m.Called(ctx, draft)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Visit), args.Error(1)
}

func (m *MockVisitRepository) Update(ctx context.Context, id string, draft entities.VisitDraft) (*entities.Visit, error) {
	args := m.Called(ctx, id, draft)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Visit), args.Error(1)
}

func (m *MockVisitRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockFavoriteRepository mocks repositories.FavoriteRepository
type MockFavoriteRepository struct {
	mock.Mock
}

func (m *MockFavoriteRepository) List(ctx context.Context) ([]entities.Favorite, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.Favorite), args.Error(1)
}

func (m *MockFavoriteRepository) Create(ctx context.Context, hcpcs string) (*entities.Favorite, error) {
	args := m.Called(ctx, hcpcs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Favorite), args.Error(1)
}

func (m *MockFavoriteRepository) Delete(ctx context.Context, hcpcs string) error {
	args := m.Called(ctx, hcpcs)
	return args.Error(0)
}

func (m *MockFavoriteRepository) Reorder(ctx context.Context, orders []entities.FavoriteOrder) error {
	args := m.Called(ctx, orders)
	return args.Error(0)
}
