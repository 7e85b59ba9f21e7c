package process

import (
	"fmt"
	"io"
	"reflect"
	"sort"
	"strings"
)

func typeName(annotation Annotator) string {
	return reflect.TypeOf(annotation).String()
}

// Writes the tree as an indented forest. A node is printed under its
// parent if the parent is still in the map, otherwise at the top
// level. Exited nodes are marked.
func (self *ProcessTree) DebugDump(w io.Writer) error {
	self.mu.RLock()
	defer self.mu.RUnlock()

	all := self.sortedLocked()
	children := make(map[*Process][]*Process)
	var roots []*Process

	for _, proc := range all {
		if proc.parent != nil {
			mapped, pres := self.processes[proc.parent.pid]
			if pres && mapped == proc.parent {
				children[proc.parent] = append(children[proc.parent], proc)
				continue
			}
		}
		roots = append(roots, proc)
	}

	var dump func(proc *Process, depth int) error
	dump = func(proc *Process, depth int) error {
		line := strings.Repeat("  ", depth) + proc.String()
		if self.retention.isExited(proc.pid) {
			line += " (exited)"
		}

		names := make([]string, 0, len(proc.annotations))
		for _, annotation := range proc.annotations {
			names = append(names, typeName(annotation))
		}
		if len(names) > 0 {
			sort.Strings(names)
			line += " [" + strings.Join(names, ",") + "]"
		}

		_, err := fmt.Fprintln(w, line)
		if err != nil {
			return err
		}

		for _, child := range children[proc] {
			err := dump(child, depth+1)
			if err != nil {
				return err
			}
		}
		return nil
	}

	for _, root := range roots {
		err := dump(root, 0)
		if err != nil {
			return err
		}
	}
	return nil
}
