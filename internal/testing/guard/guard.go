// Package guard flips the application into test mode when blank-imported
// from a test file, so binaries under test never start servers or workers.
package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("ELECTRONACCOUNT_TEST_MODE") == "" {
			_ = os.Setenv("ELECTRONACCOUNT_TEST_MODE", "1")
		}
	})
}
