/*
  A wrapper around gopsutil that snapshots the running processes for
  ProcessTree.Backfill().

  Processes can exit while we are scanning them. Those are skipped:
  the event stream will never mention them again anyway.
*/

package psutils

import (
	"context"
	"errors"
	"os"

	"github.com/shirou/gopsutil/v4/process"
	"github.com/sirupsen/logrus"
	"www.velocidex.com/golang/proctree/logging"
	process_tree "www.velocidex.com/golang/proctree/process"
)

// The index of the effective id in the Uids()/Gids() slices (real,
// effective, saved, filesystem on Linux).
const effective_idx = 1

type Loader struct {
	logger *logging.LogContext
}

func NewLoader() *Loader {
	return &Loader{
		logger: logging.GetLogger(logging.ToolComponent),
	}
}

func (self *Loader) LoadProcesses(ctx context.Context) (
	[]process_tree.LoadedProcess, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]process_tree.LoadedProcess, 0, len(procs))
	skipped := 0

	for _, proc := range procs {
		item, err := self.loadOne(ctx, proc)
		if err != nil {
			skipped++
			continue
		}
		result = append(result, item)
	}

	self.logger.WithFields(logrus.Fields{
		"loaded":  len(result),
		"skipped": skipped,
	}).Debug("psutils: loaded process snapshot")

	return result, nil
}

func (self *Loader) loadOne(ctx context.Context, proc *process.Process) (
	process_tree.LoadedProcess, error) {
	result := process_tree.LoadedProcess{Pid: proc.Pid}

	ppid, err := proc.PpidWithContext(ctx)
	if err != nil {
		return result, err
	}
	result.PPid = ppid

	// Kernel threads and processes we can not read still belong in
	// the tree, just without an executable.
	exe, err := proc.ExeWithContext(ctx)
	if err != nil && !isPermissionError(err) {
		exists, _ := proc.IsRunningWithContext(ctx)
		if !exists {
			return result, err
		}
	}

	args, _ := proc.CmdlineSliceWithContext(ctx)
	result.Program = process_tree.NewProgram(exe, args...)

	uids, err := proc.UidsWithContext(ctx)
	if err == nil && len(uids) > effective_idx {
		result.Cred.Uid = uids[effective_idx]
	}

	gids, err := proc.GidsWithContext(ctx)
	if err == nil && len(gids) > effective_idx {
		result.Cred.Gid = gids[effective_idx]
	}

	return result, nil
}

func isPermissionError(err error) bool {
	return errors.Is(err, os.ErrPermission)
}
