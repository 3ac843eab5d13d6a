// Package testutil provides Postgres and Redis fixtures for integration tests.
// Fixtures skip the calling test when the service is unreachable, unless
// TEST_REQUIRE_INFRA (or TEST_REQUIRE_DB / TEST_REQUIRE_REDIS) is set.
package testutil

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"
)

// TestTime is the fixed clock reading used across repository tests.
func TestTime() time.Time {
	return time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
}

func envBool(key string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "y":
		return true
	}
	return false
}

// unavailable fails or skips t depending on whether kind is required.
func unavailable(t testing.TB, kind string, err error) {
	t.Helper()
	if envBool("TEST_REQUIRE_INFRA") || envBool("TEST_REQUIRE_"+strings.ToUpper(kind)) {
		t.Fatalf("%s not available for testing: %v", kind, err)
	}
	t.Skipf("%s not available for testing: %v", kind, err)
}

// uniqueSuffix returns 8 lowercase hex characters.
func uniqueSuffix() string {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("%08x", time.Now().UnixNano()&0xffffffff)
	}
	return hex.EncodeToString(b)
}
