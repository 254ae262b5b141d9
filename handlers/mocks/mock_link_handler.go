package mocks

import (
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
)

type MockLinkHandler struct {
	mock.Mock
}

func (m *MockLinkHandler) CreateLink(c *gin.Context) {
	m.Called(c)
}

func (m *MockLinkHandler) CreateBatch(c *gin.Context) {
	m.Called(c)
}

func (m *MockLinkHandler) RedirectLink(c *gin.Context) {
	m.Called(c)
}

func (m *MockLinkHandler) GetStats(c *gin.Context) {
	m.Called(c)
}

func (m *MockLinkHandler) GetLinkStats(c *gin.Context) {
	m.Called(c)
}

func (m *MockLinkHandler) QRCode(c *gin.Context) {
	m.Called(c)
}

func (m *MockLinkHandler) DeleteLink(c *gin.Context) {
	m.Called(c)
}

func (m *MockLinkHandler) PurgeExpired(c *gin.Context) {
	m.Called(c)
}

func (m *MockLinkHandler) PurgeAll(c *gin.Context) {
	m.Called(c)
}

func (m *MockLinkHandler) HealthCheck(c *gin.Context) {
	m.Called(c)
}
