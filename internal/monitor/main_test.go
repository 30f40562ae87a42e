package monitor_test

import (
	"os"
	"testing"

	"codeberg.org/mutker/resmon/internal/logger"
)

func TestMain(m *testing.M) {
	logger.Init(false, false, true)
	os.Exit(m.Run())
}
