package process

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// A process as reported by a snapshot of the live system. Pids here
// are bare kernel pids; the tree mints versions for them.
type LoadedProcess struct {
	Pid     int32
	PPid    int32
	Cred    Cred
	Program *Program
}

type Loader interface {
	LoadProcesses(ctx context.Context) ([]LoadedProcess, error)
}

// Seeds the tree with the processes that were already running before
// event ingestion started. Parents are inserted before their
// children; processes whose parent is not in the snapshot become
// roots. Backfill is not an event and does not advance retention.
func (self *ProcessTree) Backfill(ctx context.Context, loader Loader) error {
	loaded, err := loader.LoadProcesses(ctx)
	if err != nil {
		return errors.Wrap(err, "Backfill")
	}

	by_pid := make(map[int32]LoadedProcess)
	for _, item := range loaded {
		by_pid[item.Pid] = item
	}

	children := make(map[int32][]int32)
	var roots []int32
	for _, item := range loaded {
		_, parent_known := by_pid[item.PPid]
		if !parent_known || item.PPid == item.Pid || item.PPid == 0 {
			roots = append(roots, item.Pid)
			continue
		}
		children[item.PPid] = append(children[item.PPid], item.Pid)
	}

	self.mu.Lock()
	defer self.mu.Unlock()

	store := lockedStore{tree: self}
	inserted := make(map[int32]*Process)

	var insert func(pid int32, parent *Process) error
	insert = func(pid int32, parent *Process) error {
		err := ctx.Err()
		if err != nil {
			return err
		}

		// Loop protection.
		_, seen := inserted[pid]
		if seen {
			return nil
		}

		item := by_pid[pid]
		program := item.Program
		if program == nil {
			program = NewProgram("")
		}

		proc := newProcess(self.NewPid(pid), item.Cred, program, parent)
		self.insertLocked(proc)
		inserted[pid] = proc

		for _, annotator := range self.annotators {
			backfiller, ok := annotator.(BackfillAnnotator)
			if !ok {
				continue
			}
			self.runHook(annotator, "backfill", func() error {
				return backfiller.AnnotateBackfill(store, parent, proc)
			})
		}

		for _, child := range children[pid] {
			err := insert(child, proc)
			if err != nil {
				return err
			}
		}
		return nil
	}

	for _, pid := range roots {
		err := insert(pid, nil)
		if err != nil {
			return err
		}
	}

	// Anything left is part of a parent cycle in the snapshot.
	for _, item := range loaded {
		_, seen := inserted[item.Pid]
		if !seen {
			err := insert(item.Pid, nil)
			if err != nil {
				return err
			}
		}
	}

	self.logger.WithFields(logrus.Fields{
		"processes": len(inserted),
		"roots":     len(roots),
	}).Info("Backfilled process tree")

	return nil
}
