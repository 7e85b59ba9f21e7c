package process

import (
	"reflect"
)

// A Process is the tree's record of one identity segment. Everything
// but the annotations is fixed at construction and only exposed
// through accessors, so holders of a *Process may read it without
// locking. A process that execs is modeled as a new Process, never a
// mutated one.
//
// A Process keeps its parent alive: once evicted from the tree's
// lookup map, a node is still reachable through any descendant that
// references it.
type Process struct {
	pid     Pid
	cred    Cred
	program *Program

	parent *Process

	// Only accessed under the owning tree's lock.
	annotations map[reflect.Type]Annotator
}

func newProcess(pid Pid, cred Cred, program *Program, parent *Process) *Process {
	return &Process{
		pid:         pid,
		cred:        cred,
		program:     program,
		parent:      parent,
		annotations: make(map[reflect.Type]Annotator),
	}
}

func (self *Process) Pid() Pid {
	return self.pid
}

// Effective credentials of this identity.
func (self *Process) Cred() Cred {
	return self.cred
}

func (self *Process) Program() *Program {
	return self.program
}

// Parent returns the parent node or nil for a root.
func (self *Process) Parent() *Process {
	return self.parent
}

func (self *Process) IsRoot() bool {
	return self.parent == nil
}

func (self *Process) Executable() string {
	return self.program.Executable()
}

func (self *Process) String() string {
	return self.pid.String() + " " + self.Executable()
}
