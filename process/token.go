package process

import (
	"sync"
)

// A ProcessToken pins processes in the lookup map past the retention
// window, for example while a slow consumer still needs to resolve
// them by Pid. Release must be called to let them age out again.
type ProcessToken struct {
	tree *ProcessTree
	pids []Pid
	once sync.Once
}

// Pins the given Pids. Pids not currently in the map are ignored.
func (self *ProcessTree) RetainProcess(pids ...Pid) *ProcessToken {
	self.mu.Lock()
	defer self.mu.Unlock()

	token := &ProcessToken{tree: self}
	for _, pid := range pids {
		_, pres := self.processes[pid]
		if !pres {
			continue
		}
		self.retained[pid]++
		token.pids = append(token.pids, pid)
	}
	return token
}

func (self *ProcessToken) Pids() []Pid {
	return append([]Pid{}, self.pids...)
}

// Expired processes are evicted on the next event after release.
// Safe to call more than once.
func (self *ProcessToken) Release() {
	self.once.Do(func() {
		tree := self.tree
		tree.mu.Lock()
		defer tree.mu.Unlock()

		for _, pid := range self.pids {
			tree.retained[pid]--
			if tree.retained[pid] <= 0 {
				delete(tree.retained, pid)
			}
		}
	})
}
