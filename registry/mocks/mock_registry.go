package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"go-url-registry/types"
)

// MockService is a mock registry Service interface
type MockService struct {
	mock.Mock
}

func (m *MockService) Create(ctx context.Context, originalURL, customCode string, validityMinutes *int) (types.ShortLink, error) {
	args := m.Called(ctx, originalURL, customCode, validityMinutes)
	return args.Get(0).(types.ShortLink), args.Error(1)
}

func (m *MockService) Resolve(ctx context.Context, shortCode string, meta types.ClickMeta) (types.ShortLink, error) {
	args := m.Called(ctx, shortCode, meta)
	return args.Get(0).(types.ShortLink), args.Error(1)
}

func (m *MockService) Get(ctx context.Context, shortCode string) (types.ShortLink, error) {
	args := m.Called(ctx, shortCode)
	return args.Get(0).(types.ShortLink), args.Error(1)
}

func (m *MockService) List(ctx context.Context) ([]types.ShortLink, error) {
	args := m.Called(ctx)
	links, _ := args.Get(0).([]types.ShortLink)
	return links, args.Error(1)
}

func (m *MockService) Delete(ctx context.Context, shortCode string) error {
	args := m.Called(ctx, shortCode)
	return args.Error(0)
}

func (m *MockService) PurgeExpired(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockService) PurgeAll(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}
