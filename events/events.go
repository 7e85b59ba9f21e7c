// Events are the minimal facts the event source reports about process
// transitions. The Pump applies them to a ProcessTree, resolving the
// handles the tree's handlers need.

package events

import (
	"bufio"
	"io"

	"github.com/pkg/errors"
	"www.velocidex.com/golang/proctree/json"
	"www.velocidex.com/golang/proctree/process"
	"www.velocidex.com/golang/proctree/utils"
)

type EventType string

const (
	ForkEvent EventType = "fork"
	ExecEvent EventType = "exec"
	ExitEvent EventType = "exit"
)

// A single event. Pid/PidVersion always name the process the event
// happened to (the forking parent, the execing process or the exiting
// process). A zero version means "the current identity of this pid".
type Event struct {
	Type    EventType `json:"type"`
	EventId uint64    `json:"event_id,omitempty"`

	Pid        int32  `json:"pid"`
	PidVersion uint64 `json:"pidversion,omitempty"`

	// Fork only.
	ChildPid        int32  `json:"child_pid,omitempty"`
	ChildPidVersion uint64 `json:"child_pidversion,omitempty"`

	// Exec only.
	NewPidVersion uint64   `json:"new_pidversion,omitempty"`
	Executable    string   `json:"executable,omitempty"`
	Arguments     []string `json:"arguments,omitempty"`
	Uid           uint32   `json:"uid,omitempty"`
	Gid           uint32   `json:"gid,omitempty"`
}

func (self *Event) Validate() error {
	switch self.Type {
	case ForkEvent:
		if self.ChildPid == 0 {
			return utils.Wrap(utils.InvalidArgError, "fork event without child_pid")
		}
	case ExecEvent:
		if self.Executable == "" {
			return utils.Wrap(utils.InvalidArgError, "exec event without executable")
		}
	case ExitEvent:
	default:
		return utils.Wrap(utils.InvalidArgError, "unknown event type %q", self.Type)
	}
	return nil
}

func (self *Event) Program() *process.Program {
	return process.NewProgram(self.Executable, self.Arguments...)
}

func (self *Event) Cred() process.Cred {
	return process.Cred{Uid: self.Uid, Gid: self.Gid}
}

// Reads events encoded as JSON lines.
type Decoder struct {
	scanner *bufio.Scanner
	line    int
}

func NewDecoder(reader io.Reader) *Decoder {
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	return &Decoder{scanner: scanner}
}

// Returns io.EOF when the stream is exhausted. Blank lines are
// skipped.
func (self *Decoder) Next() (*Event, error) {
	for self.scanner.Scan() {
		self.line++
		line := self.scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		event := &Event{}
		err := json.Unmarshal(line, event)
		if err != nil {
			return nil, errors.Wrapf(err, "line %v", self.line)
		}

		err = event.Validate()
		if err != nil {
			return nil, errors.Wrapf(err, "line %v", self.line)
		}
		return event, nil
	}

	err := self.scanner.Err()
	if err != nil {
		return nil, err
	}
	return nil, io.EOF
}
