// Package integration exercises the session API end to end through the echo router
package integration

import (
	"os"
	"testing"

	"github.com/jborjar/paquetes/tests/testutil"
)

func TestMain(m *testing.M) {
	code := m.Run()
	// Redis and PostgreSQL connections are shared across tests and closed once
	testutil.CleanupTestEnvironment()
	os.Exit(code)
}
