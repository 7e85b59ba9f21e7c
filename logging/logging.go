package logging

import (
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/rifflock/lfshook"
	"github.com/sirupsen/logrus"
	"www.velocidex.com/golang/proctree/config"
)

var (
	GenericComponent = "ProcTree"
	TreeComponent    = "ProcessTree"
	PumpComponent    = "EventPump"
	AuditComponent   = "Audit"
	ToolComponent    = "Tool"

	mu          sync.Mutex
	root_logger = newRootLogger()
)

// A LogContext is a component logger with printf style methods.
type LogContext struct {
	*logrus.Entry
}

func (self *LogContext) Debug(format string, args ...interface{}) {
	self.Entry.Debugf(format, args...)
}

func (self *LogContext) Info(format string, args ...interface{}) {
	self.Entry.Infof(format, args...)
}

func (self *LogContext) Warn(format string, args ...interface{}) {
	self.Entry.Warnf(format, args...)
}

func (self *LogContext) Error(format string, args ...interface{}) {
	self.Entry.Errorf(format, args...)
}

func (self *LogContext) WithFields(fields logrus.Fields) *LogContext {
	return &LogContext{Entry: self.Entry.WithFields(fields)}
}

func GetLogger(component string) *LogContext {
	mu.Lock()
	logger := root_logger
	mu.Unlock()

	return &LogContext{
		Entry: logger.WithField("component", component),
	}
}

// Colors are only used when stderr is an interactive terminal.
func stderrFormatter() *Formatter {
	return &Formatter{
		NoColor: !isatty.IsTerminal(os.Stderr.Fd()),
	}
}

func allLevels(writer io.Writer) lfshook.WriterMap {
	result := lfshook.WriterMap{}
	for _, level := range logrus.AllLevels {
		result[level] = writer
	}
	return result
}

func newRootLogger() *logrus.Logger {
	logger := logrus.New()

	// All output goes through the hooks.
	logger.Out = io.Discard
	logger.Level = logrus.InfoLevel
	logger.AddHook(lfshook.NewHook(allLevels(os.Stderr), stderrFormatter()))
	logger.AddHook(memory_hook)

	return logger
}

// Reconfigure the root logger from the config. Loggers obtained
// before this call keep writing to the same root logger.
func Configure(config_obj *config.LoggingConfig) error {
	if config_obj == nil {
		return nil
	}

	level := logrus.InfoLevel
	if config_obj.Level != "" {
		parsed, err := logrus.ParseLevel(config_obj.Level)
		if err != nil {
			return errors.Wrap(err, "logging.Configure")
		}
		level = parsed
	}

	hooks := make(logrus.LevelHooks)
	hooks.Add(memory_hook)

	if !config_obj.DisableStderr {
		hooks.Add(lfshook.NewHook(allLevels(os.Stderr), stderrFormatter()))
	}

	if config_obj.OutputDirectory != "" {
		writer, err := newRotatingWriter(config_obj)
		if err != nil {
			return err
		}
		hooks.Add(lfshook.NewHook(allLevels(writer),
			&Formatter{NoColor: true}))
	}

	mu.Lock()
	defer mu.Unlock()

	root_logger.SetLevel(level)
	root_logger.ReplaceHooks(hooks)

	return nil
}

func newRotatingWriter(config_obj *config.LoggingConfig) (io.Writer, error) {
	err := os.MkdirAll(config_obj.OutputDirectory, 0700)
	if err != nil {
		return nil, errors.Wrap(err, "logging")
	}

	base := filepath.Join(config_obj.OutputDirectory, "proctree.log")

	max_age := time.Duration(config_obj.MaxAgeHours) * time.Hour
	if max_age == 0 {
		max_age = 7 * 24 * time.Hour
	}

	writer, err := rotatelogs.New(base+".%Y%m%d",
		rotatelogs.WithLinkName(base),
		rotatelogs.WithRotationTime(24*time.Hour),
		rotatelogs.WithMaxAge(max_age))
	if err != nil {
		return nil, errors.Wrap(err, "logging")
	}
	return writer, nil
}
