package mocks

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"

	"github.com/jborjar/paquetes/internal/domain/entity"
	"github.com/jborjar/paquetes/internal/domain/repository"
	"github.com/jborjar/paquetes/internal/domain/service"
)

// MockAccountRepository is a mock implementation of repository.AccountRepository
type MockAccountRepository struct {
	mock.Mock
}

func NewMockAccountRepository(t *testing.T) *MockAccountRepository {
	m := &MockAccountRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockAccountRepository) FindByUsername(ctx context.Context, username string) (*entity.Account, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Account), args.Error(1)
}

// MockCredentialValidator is a mock implementation of service.CredentialValidator
type MockCredentialValidator struct {
	mock.Mock
}

func NewMockCredentialValidator(t *testing.T) *MockCredentialValidator {
	m := &MockCredentialValidator{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockCredentialValidator) Validate(ctx context.Context, username, password string) (*service.Principal, error) {
	args := m.Called(ctx, username, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Principal), args.Error(1)
}

// MockSessionLimitResolver is a mock implementation of service.SessionLimitResolver
type MockSessionLimitResolver struct {
	mock.Mock
}

func NewMockSessionLimitResolver(t *testing.T) *MockSessionLimitResolver {
	m := &MockSessionLimitResolver{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockSessionLimitResolver) MaxSessions(ctx context.Context, username string) (int, error) {
	args := m.Called(ctx, username)
	return args.Int(0), args.Error(1)
}

var (
	_ repository.AccountRepository = (*MockAccountRepository)(nil)
	_ service.CredentialValidator  = (*MockCredentialValidator)(nil)
	_ service.SessionLimitResolver = (*MockSessionLimitResolver)(nil)
)
