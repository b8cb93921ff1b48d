// Package mocks provides mock implementations for testing the harvester crawl system.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for the
// core ports. The mocks are generated using go:generate directives and provide a
// fluent API for setting up test expectations.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	defer ctrl.Finish()
//	mockRepo := mocks.NewMockJobRepository(ctrl)
//	mockRepo.EXPECT().GetByID(gomock.Any(), "id").Return(job, nil)
package mocks

// Generate mock for JobRepository interface from internal/core package.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=job_repository_mock.go github.com/crawlspace/harvester/internal/core JobRepository

// Generate mock for ProgressRepository interface from internal/core package.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=progress_repository_mock.go github.com/crawlspace/harvester/internal/core ProgressRepository

// Generate mock for AbuseLogRepository interface from internal/core package.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=abuse_log_repository_mock.go github.com/crawlspace/harvester/internal/core AbuseLogRepository

// Generate mock for CatalogRepository interface from internal/core package.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=catalog_repository_mock.go github.com/crawlspace/harvester/internal/core CatalogRepository

// Generate mock for CacheRepository interface from internal/core package.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=cache_repository_mock.go github.com/crawlspace/harvester/internal/core CacheRepository

// Generate mock for Fetcher interface from internal/core package.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=fetcher_mock.go github.com/crawlspace/harvester/internal/core Fetcher
