package process

import (
	"fmt"
)

// Pid identifies one identity segment of a process. The kernel pid is
// reused over time (and does not change across exec) so every new
// identity is given a fresh PidVersion.
type Pid struct {
	Pid        int32  `json:"pid"`
	PidVersion uint64 `json:"pidversion"`
}

func (self Pid) String() string {
	return fmt.Sprintf("%d.%d", self.Pid, self.PidVersion)
}

func (self Pid) Less(other Pid) bool {
	if self.Pid != other.Pid {
		return self.Pid < other.Pid
	}
	return self.PidVersion < other.PidVersion
}

// Effective credentials at a point in the process's life.
type Cred struct {
	Uid uint32 `json:"uid"`
	Gid uint32 `json:"gid"`
}

// Program is immutable once constructed. Fork shares the same
// instance between parent and child; exec builds a new one.
type Program struct {
	executable string
	arguments  []string
}

func NewProgram(executable string, arguments ...string) *Program {
	return &Program{
		executable: executable,
		arguments:  append([]string{}, arguments...),
	}
}

func (self *Program) Executable() string {
	if self == nil {
		return ""
	}
	return self.executable
}

// Returns a copy, callers may not modify the shared argument list.
func (self *Program) Arguments() []string {
	if self == nil {
		return nil
	}
	return append([]string{}, self.arguments...)
}

func (self *Program) Equal(other *Program) bool {
	if self == other {
		return true
	}
	if self == nil || other == nil {
		return false
	}

	if self.executable != other.executable ||
		len(self.arguments) != len(other.arguments) {
		return false
	}

	for i := range self.arguments {
		if self.arguments[i] != other.arguments[i] {
			return false
		}
	}
	return true
}
