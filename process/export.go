package process

import (
	"sort"

	"github.com/Velocidex/ordereddict"
	"google.golang.org/protobuf/types/known/structpb"
)

// Merges the Proto() payloads of every annotation on the process into
// a single struct. This is pulled by the audit pipeline when it emits
// a record for the process; the tree never pushes it.
func (self *ProcessTree) ExportAnnotations(pid Pid) (*structpb.Struct, bool) {
	self.mu.RLock()
	defer self.mu.RUnlock()

	proc, pres := self.processes[pid]
	if !pres {
		return nil, false
	}

	return self.exportLocked(proc), true
}

func (self *ProcessTree) exportLocked(proc *Process) *structpb.Struct {
	result := &structpb.Struct{Fields: make(map[string]*structpb.Value)}

	// Stable merge order so that overlapping keys resolve the same
	// way every time.
	annotations := make([]Annotator, 0, len(proc.annotations))
	for _, annotation := range proc.annotations {
		annotations = append(annotations, annotation)
	}
	sort.Slice(annotations, func(i, j int) bool {
		return typeName(annotations[i]) < typeName(annotations[j])
	})

	for _, annotation := range annotations {
		payload := annotation.Proto()
		if payload == nil {
			continue
		}
		for k, v := range payload.Fields {
			result.Fields[k] = v
		}
	}
	return result
}

// Calls cb on each ancestor of the process starting with its parent,
// until cb returns false or the root is reached. Uses the nodes'
// parent links, so evicted ancestors are still visited.
func (self *ProcessTree) IterateAncestors(process *Process, cb func(ancestor *Process) bool) {
	if process == nil {
		return
	}

	depth := 0
	for ancestor := process.parent; ancestor != nil; ancestor = ancestor.parent {
		if depth >= self.max_call_chain || !cb(ancestor) {
			return
		}
		depth++
	}
}

// The chain of processes leading to this one, root first and ending
// with the process itself.
func (self *ProcessTree) CallChain(process *Process) []*Process {
	if process == nil {
		return nil
	}

	result := []*Process{process}
	self.IterateAncestors(process, func(ancestor *Process) bool {
		result = append(result, ancestor)
		return true
	})

	return reverse(result)
}

func reverse(in []*Process) []*Process {
	for i, j := 0, len(in)-1; i < j; i, j = i+1, j-1 {
		in[i], in[j] = in[j], in[i]
	}
	return in
}

// A row describing the process, suitable for JSON output.
func (self *ProcessTree) Describe(process *Process) *ordereddict.Dict {
	self.mu.RLock()
	defer self.mu.RUnlock()

	result := ordereddict.NewDict().
		Set("Pid", process.pid.Pid).
		Set("PidVersion", process.pid.PidVersion).
		Set("Uid", process.cred.Uid).
		Set("Gid", process.cred.Gid).
		Set("Executable", process.Executable())

	if process.program != nil {
		result.Set("Arguments", process.program.Arguments())
	}

	if process.parent != nil {
		result.Set("Parent", process.parent.pid.String())
	} else {
		result.Set("Parent", nil)
	}

	_, in_map := self.processes[process.pid]
	result.Set("Exited", self.retention.isExited(process.pid)).
		Set("Evicted", !in_map).
		Set("Annotations", self.exportLocked(process))

	return result
}
