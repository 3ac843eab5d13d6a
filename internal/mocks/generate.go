// Package mocks provides mock implementations for testing the dashboard services.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for our port interfaces.
// The mocks are generated using go:generate directives and provide a fluent API for setting up test expectations.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	gateway := mocks.NewMockJobGateway(ctrl)
//	gateway.EXPECT().StartJob(gomock.Any(), gomock.Any()).Return(ports.StartJobResult{}, nil)
package mocks

// Generate mock for DriveClient interface from internal/ports package.
// This creates MockDriveClient with methods for all DriveClient interface methods:
// ListFolders, CreateFolder, ListFiles, Upload, Content, Delete
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=drive_client_mock.go github.com/target/drive-notes/internal/ports DriveClient

// Generate mock for JobGateway interface from internal/ports package.
// This creates MockJobGateway with methods for all JobGateway interface methods:
// StartJob, NotifyDelete, SyncFolder, MirrorUpload
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=job_gateway_mock.go github.com/target/drive-notes/internal/ports JobGateway

// Generate mocks for the auth ports used by AuthService:
// AuthProvider (Begin, Exchange, Refresh), SessionStore and RoleMapper.
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=auth_mock.go github.com/target/drive-notes/internal/ports AuthProvider,SessionStore,RoleMapper
