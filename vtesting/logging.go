package vtesting

import (
	"regexp"

	"github.com/stretchr/testify/assert"
	"www.velocidex.com/golang/proctree/logging"
)

// Number of captured log lines matching the regex.
func CountMemoryLogs(regex string) int {
	re := regexp.MustCompile(regex)

	count := 0
	for _, line := range logging.GetMemoryLogs() {
		if re.MatchString(line) {
			count++
		}
	}
	return count
}

func MemoryLogsContain(t assert.TestingT, regex string, msgAndArgs ...interface{}) {
	if CountMemoryLogs(regex) == 0 {
		t.Errorf("Unable to find '%v' in memory logs %v", regex, msgAndArgs)
	}
}

// Asserts the tree or pump logged exactly `expected` lines matching
// the regex, e.g. to check anomaly rate limiting.
func MemoryLogsCount(t assert.TestingT, expected int, regex string) {
	assert.Equal(t, expected, CountMemoryLogs(regex),
		"log lines matching '%v': %v", regex, logging.GetMemoryLogs())
}
