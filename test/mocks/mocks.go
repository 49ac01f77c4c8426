// test/mocks/mocks.go

// Package mocks contains generated mocks for the application's interfaces.
// To regenerate mocks, run `make mocks` from the root directory.
package mocks

//go:generate mockgen -source=../../internal/core/ports/medicine_repository.go -destination=medicine_repository_mock.go -package=mocks
//go:generate mockgen -source=../../internal/core/ports/sale_repository.go -destination=sale_repository_mock.go -package=mocks
//go:generate mockgen -source=../../internal/core/ports/user_repository.go -destination=user_repository_mock.go -package=mocks
//go:generate mockgen -source=../../internal/core/ports/medicine_service.go -destination=medicine_service_mock.go -package=mocks
//go:generate mockgen -source=../../internal/core/ports/sale_service.go -destination=sale_service_mock.go -package=mocks
//go:generate mockgen -source=../../internal/core/ports/cache.go -destination=cache_repository_mock.go -package=mocks
//go:generate mockgen -source=../../internal/core/ports/database.go -destination=database_mock.go -package=mocks
