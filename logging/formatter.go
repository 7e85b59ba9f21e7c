package logging

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"www.velocidex.com/golang/proctree/json"
)

var (
	tag_regex = regexp.MustCompile(`</?[a-z]*>`)

	level_colors = map[logrus.Level]string{
		logrus.DebugLevel: "\x1b[36m",
		logrus.InfoLevel:  "\x1b[32m",
		logrus.WarnLevel:  "\x1b[33m",
		logrus.ErrorLevel: "\x1b[31m",
	}
)

// Formats a log line as "[LEVEL] time message {fields}". Messages may
// carry <red>color</> tags which are stripped.
type Formatter struct {
	NoColor bool
}

func (self *Formatter) Format(entry *logrus.Entry) ([]byte, error) {
	b := &bytes.Buffer{}

	level_text := strings.ToUpper(entry.Level.String())
	color, pres := level_colors[entry.Level]
	if pres && !self.NoColor {
		level_text = color + level_text + "\x1b[0m"
	}
	fmt.Fprintf(b, "[%s] %v %s", level_text,
		entry.Time.Format(time.RFC3339),
		clearTag(strings.TrimRight(entry.Message, "\r\n")))

	if len(entry.Data) > 0 {
		serialized, err := json.Marshal(entry.Data)
		if err == nil {
			fmt.Fprintf(b, " %s", serialized)
		}
	}
	b.WriteString("\n")

	return b.Bytes(), nil
}

func clearTag(message string) string {
	return tag_regex.ReplaceAllString(message, "")
}
