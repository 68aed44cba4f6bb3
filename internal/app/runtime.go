package app

import (
	"os"
	"sync"
)

var inTestMode = sync.OnceValue(func() bool {
	return os.Getenv("BILLHIVE_TEST_MODE") == "1"
})

// InTestMode reports whether the process runs under the test harness. The
// binaries check it at startup and exit before opening any connections, so
// building and invoking them from tests is safe.
func InTestMode() bool {
	return inTestMode()
}
