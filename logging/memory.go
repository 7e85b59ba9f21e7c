package logging

import (
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

const max_memory_logs = 1000

var (
	memory_hook = &memoryHook{}
)

// Keeps the most recent log lines in memory so tests can assert on
// what was logged.
type memoryHook struct {
	mu    sync.Mutex
	lines []string
}

func (self *memoryHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (self *memoryHook) Fire(entry *logrus.Entry) error {
	formatter := &Formatter{NoColor: true}
	serialized, err := formatter.Format(entry)
	if err != nil {
		return err
	}

	self.mu.Lock()
	defer self.mu.Unlock()

	self.lines = append(self.lines, strings.TrimRight(string(serialized), "\n"))
	if len(self.lines) > max_memory_logs {
		self.lines = self.lines[len(self.lines)-max_memory_logs:]
	}
	return nil
}

func GetMemoryLogs() []string {
	memory_hook.mu.Lock()
	defer memory_hook.mu.Unlock()

	return append([]string{}, memory_hook.lines...)
}

func ClearMemoryLogs() {
	memory_hook.mu.Lock()
	defer memory_hook.mu.Unlock()

	memory_hook.lines = nil
}
