package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"go-url-registry/types"
)

// MockStorage is a mock Storage interface
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) Load(ctx context.Context) ([]types.ShortLink, error) {
	args := m.Called(ctx)
	links, _ := args.Get(0).([]types.ShortLink)
	return links, args.Error(1)
}

func (m *MockStorage) Create(ctx context.Context, link types.ShortLink) error {
	args := m.Called(ctx, link)
	return args.Error(0)
}

func (m *MockStorage) RecordClick(ctx context.Context, shortCode string, click types.ClickEvent) error {
	args := m.Called(ctx, shortCode, click)
	return args.Error(0)
}

func (m *MockStorage) Delete(ctx context.Context, shortCodes ...string) error {
	args := m.Called(ctx, shortCodes)
	return args.Error(0)
}

func (m *MockStorage) DeleteAll(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockStorage) Close() error {
	args := m.Called()
	return args.Error(0)
}
