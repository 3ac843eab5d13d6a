package ports_test

import (
	"github.com/target/drive-notes/internal/mocks"
	"github.com/target/drive-notes/internal/ports"
)

var (
	_ ports.AuthProvider = (*mocks.MockAuthProvider)(nil)
	_ ports.SessionStore = (*mocks.MockSessionStore)(nil)
	_ ports.RoleMapper   = (*mocks.MockRoleMapper)(nil)
	_ ports.DriveClient  = (*mocks.MockDriveClient)(nil)
	_ ports.JobGateway   = (*mocks.MockJobGateway)(nil)
	_ ports.JobStarter   = (*mocks.MockJobGateway)(nil)
)
