package orchestrator

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Timeout constants for different operations
var (
	// RollbackTimeout bounds unwinding a failed creation and releasing a branch scope
	RollbackTimeout = getTimeoutOrDefault("COLONY_ROLLBACK_TIMEOUT", 5*time.Minute, 5*time.Second)
	// DefaultRetryCount is the standard number of retries for network git operations
	DefaultRetryCount = uint64(getRetryCountOrDefault("COLONY_RETRY_COUNT", 3, 1))
	// DefaultRetryDelay is the initial delay for exponential backoff
	DefaultRetryDelay = getTimeoutOrDefault("COLONY_RETRY_DELAY", 1*time.Second, 10*time.Millisecond)
)

// Launch waiter defaults
const (
	// DefaultPollInterval is the delay between two sandbox status requests
	DefaultPollInterval = 5 * time.Second
	// DefaultLaunchTimeout applies when no --timeout is given
	DefaultLaunchTimeout = 30 * time.Minute
)

// isTestEnvironment detects if we're running in a test environment
func isTestEnvironment() bool {
	for _, arg := range os.Args {
		if strings.Contains(arg, ".test") || strings.Contains(arg, "go test") {
			return true
		}
	}
	return os.Getenv("GO_TEST") == "true" || os.Getenv("TEST_MODE") == "true"
}

// getTimeoutOrDefault returns production timeout or test timeout based on environment
func getTimeoutOrDefault(envVar string, prodDefault, testDefault time.Duration) time.Duration {
	if env := os.Getenv(envVar); env != "" {
		if duration, err := time.ParseDuration(env); err == nil {
			return duration
		}
	}
	if isTestEnvironment() {
		return testDefault
	}
	return prodDefault
}

// getRetryCountOrDefault returns production retry count or test retry count based on environment
func getRetryCountOrDefault(envVar string, prodDefault, testDefault int) int {
	if env := os.Getenv(envVar); env != "" {
		if count, err := strconv.Atoi(env); err == nil {
			return count
		}
	}
	if isTestEnvironment() {
		return testDefault
	}
	return prodDefault
}

// MarkerFilePermissions is the mode of placeholder files created in empty directories
const MarkerFilePermissions = 0644
