// Package testing puts the binaries into test mode. Import it for side
// effects from tests that construct the application.
package testing

import (
	"os"
	"sync"
	stdtesting "testing"
)

var setup sync.Once

// enable flags test mode and drops a developer's CATALOG_PATH so tests always
// see the embedded catalogue.
func enable() {
	setup.Do(func() {
		_ = os.Setenv("ABILITIES_TEST_MODE", "1")
		_ = os.Unsetenv("CATALOG_PATH")
	})
}

func init() { enable() }

func TestMain(m *stdtesting.M) {
	enable()
	os.Exit(m.Run())
}
