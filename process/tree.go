/*
  The ProcessTree is a live model of process ancestry built from a
  stream of fork/exec/exit events.

  1. Every identity segment (a fork child or the image after an exec)
     is a separate immutable Process node keyed by a versioned Pid.

  2. Nodes hold a reference to their parent so ancestor walks keep
     working after a node leaves the lookup map.

  3. Exited nodes stay resolvable for a window of subsequent events so
     out of order delivery and late queries still find them.

  4. Annotators attach type keyed metadata on fork and exec which
     typically propagates down the tree.
*/

package process

import (
	"reflect"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"www.velocidex.com/golang/proctree/config"
	"www.velocidex.com/golang/proctree/logging"
	"www.velocidex.com/golang/proctree/utils"
)

type Options struct {
	// Number of subsequent mutating events an exited process remains
	// resolvable by Get.
	RetentionWindow int

	// Upper bound on ancestor walks.
	MaxCallChain int

	Logger *logging.LogContext
}

func OptionsFromConfig(config_obj *config.Config) Options {
	result := Options{}
	if config_obj != nil && config_obj.Tree != nil {
		result.RetentionWindow = config_obj.Tree.RetentionWindow
		result.MaxCallChain = config_obj.Tree.MaxCallChain
	}
	return result
}

type ProcessTree struct {
	mu sync.RWMutex

	processes map[Pid]*Process

	// Fixed at construction, invoked in order.
	annotators []Annotator

	retention *retentionState

	// Pids pinned by outstanding ProcessTokens.
	retained map[Pid]int

	// Highest pidversion seen or minted.
	pid_version uint64

	max_call_chain int
	logger         *logging.LogContext
}

func NewProcessTree(opts Options, annotators ...Annotator) *ProcessTree {
	if opts.RetentionWindow == 0 {
		opts.RetentionWindow = config.DEFAULT_RETENTION_WINDOW
	}

	if opts.MaxCallChain == 0 {
		opts.MaxCallChain = config.DEFAULT_MAX_CALL_CHAIN
	}

	if opts.Logger == nil {
		opts.Logger = logging.GetLogger(logging.TreeComponent)
	}

	return &ProcessTree{
		processes:      make(map[Pid]*Process),
		annotators:     append([]Annotator{}, annotators...),
		retention:      newRetentionState(opts.RetentionWindow),
		retained:       make(map[Pid]int),
		max_call_chain: opts.MaxCallChain,
		logger:         opts.Logger,
	}
}

// Mint a new pidversion, greater than any seen so far.
func (self *ProcessTree) NextPidVersion() uint64 {
	return atomic.AddUint64(&self.pid_version, 1)
}

func (self *ProcessTree) NewPid(pid int32) Pid {
	return Pid{Pid: pid, PidVersion: self.NextPidVersion()}
}

func (self *ProcessTree) observePidVersion(version uint64) {
	for {
		current := atomic.LoadUint64(&self.pid_version)
		if version <= current ||
			atomic.CompareAndSwapUint64(&self.pid_version, current, version) {
			return
		}
	}
}

// Insert a parentless node (the synthetic init, or an orphan found
// during backfill). This is not an event and does not advance the
// retention window.
func (self *ProcessTree) InsertRoot(pid Pid, cred Cred, program *Program) *Process {
	self.mu.Lock()
	defer self.mu.Unlock()

	proc := newProcess(pid, cred, program, nil)
	self.insertLocked(proc)

	return proc
}

// The parent handle is used directly, never looked up again by Pid,
// so forking from an already evicted parent is supported.
func (self *ProcessTree) HandleFork(event_id uint64, parent *Process, child_pid Pid) {
	self.mu.Lock()
	defer self.mu.Unlock()

	metricEvents.WithLabelValues("fork").Inc()

	if parent == nil {
		self.dropLocked(event_id, "fork")
		return
	}

	child := newProcess(child_pid, parent.cred, parent.program, parent)
	self.insertLocked(child)

	store := lockedStore{tree: self}
	for _, annotator := range self.annotators {
		self.runHook(annotator, "fork", func() error {
			return annotator.AnnotateFork(store, parent, child)
		})
	}

	self.stepLocked(event_id)
}

// Exec replaces the identity of orig_process. The new node shares the
// original's parent: fork is the only transition creating an edge.
// The original entry retires as if it exited at this event.
func (self *ProcessTree) HandleExec(event_id uint64, orig_process *Process,
	new_pid Pid, new_program *Program, new_cred Cred) {
	self.mu.Lock()
	defer self.mu.Unlock()

	metricEvents.WithLabelValues("exec").Inc()

	if orig_process == nil {
		self.dropLocked(event_id, "exec")
		return
	}

	if new_pid.Pid != orig_process.pid.Pid {
		metricPidMismatch.Inc()
		self.logger.WithFields(logrus.Fields{
			"orig_pid": orig_process.pid.String(),
			"new_pid":  new_pid.String(),
			"event_id": event_id,
		}).Warn("HandleExec: exec changed the kernel pid")
	}

	new_process := newProcess(new_pid, new_cred, new_program, orig_process.parent)
	self.insertLocked(new_process)

	if new_pid != orig_process.pid {
		self.retention.markExited(orig_process.pid)
	}

	store := lockedStore{tree: self}
	for _, annotator := range self.annotators {
		self.runHook(annotator, "exec", func() error {
			return annotator.AnnotateExec(store, orig_process, new_process)
		})
	}

	self.stepLocked(event_id)
}

// The exited process stays in the map until it ages out of the
// retention window.
func (self *ProcessTree) HandleExit(event_id uint64, process *Process) {
	self.mu.Lock()
	defer self.mu.Unlock()

	metricEvents.WithLabelValues("exit").Inc()

	if process == nil {
		self.dropLocked(event_id, "exit")
		return
	}

	self.retention.markExited(process.pid)
	self.stepLocked(event_id)
}

func (self *ProcessTree) Get(pid Pid) (*Process, bool) {
	self.mu.RLock()
	defer self.mu.RUnlock()

	proc, pres := self.processes[pid]
	return proc, pres
}

// Returns the parent through the node's own link, so this works even
// after the parent has been evicted from the map.
func (self *ProcessTree) GetParent(process *Process) (*Process, bool) {
	if process == nil || process.parent == nil {
		return nil, false
	}
	return process.parent, true
}

// Whether the Pid has exited (or retired through exec) but not yet
// been evicted.
func (self *ProcessTree) IsExited(pid Pid) bool {
	self.mu.RLock()
	defer self.mu.RUnlock()

	return self.retention.isExited(pid)
}

func (self *ProcessTree) AnnotateProcess(process *Process, annotation Annotator) {
	self.mu.Lock()
	defer self.mu.Unlock()

	self.annotateLocked(process, annotation)
}

func (self *ProcessTree) LookupAnnotation(
	process *Process, kind reflect.Type) (Annotator, bool) {
	self.mu.RLock()
	defer self.mu.RUnlock()

	return self.lookupLocked(process, kind)
}

func (self *ProcessTree) ClearAnnotation(process *Process, kind reflect.Type) {
	self.mu.Lock()
	defer self.mu.Unlock()

	self.clearLocked(process, kind)
}

func (self *ProcessTree) annotateLocked(process *Process, annotation Annotator) {
	if process == nil || utils.IsNil(annotation) {
		return
	}

	if process.annotations == nil {
		process.annotations = make(map[reflect.Type]Annotator)
	}
	process.annotations[reflect.TypeOf(annotation)] = annotation
}

func (self *ProcessTree) lookupLocked(
	process *Process, kind reflect.Type) (Annotator, bool) {
	if process == nil {
		return nil, false
	}

	annotation, pres := process.annotations[kind]
	return annotation, pres
}

func (self *ProcessTree) clearLocked(process *Process, kind reflect.Type) {
	if process != nil {
		delete(process.annotations, kind)
	}
}

func (self *ProcessTree) insertLocked(proc *Process) {
	existing, pres := self.processes[proc.pid]
	if pres && existing != proc {
		// The event source is trusted to version identities, so a
		// collision is an ingestion ordering anomaly. The newest
		// node wins.
		metricCollisions.Inc()
		self.logger.WithFields(logrus.Fields{
			"pid":      proc.pid.String(),
			"existing": existing.Executable(),
			"new":      proc.Executable(),
		}).Warn("ProcessTree: pid collision, replacing existing entry")
	}

	self.processes[proc.pid] = proc
	self.retention.forget(proc.pid)
	self.observePidVersion(proc.pid.PidVersion)

	metricTreeSize.Set(float64(len(self.processes)))
}

func (self *ProcessTree) stepLocked(event_id uint64) {
	if !self.retention.advance(event_id) {
		self.logger.WithFields(logrus.Fields{
			"event_id": event_id,
		}).Warn("ProcessTree: event id went backwards")
	}

	for _, pid := range self.retention.expired() {
		if self.retained[pid] > 0 {
			continue
		}

		_, pres := self.processes[pid]
		if pres {
			delete(self.processes, pid)
			metricEvictions.Inc()
		}
		self.retention.forget(pid)
	}

	metricTreeSize.Set(float64(len(self.processes)))
}

// An event without a process handle cannot be applied, but it still
// counts towards the retention window.
func (self *ProcessTree) dropLocked(event_id uint64, kind string) {
	self.logger.WithFields(logrus.Fields{
		"event_id": event_id,
		"event":    kind,
	}).Warn("ProcessTree: dropping %v event with no process", kind)

	self.stepLocked(event_id)
}

// Annotator failures (errors or panics) are logged and counted but
// never stop the event from being applied.
func (self *ProcessTree) runHook(annotator Annotator, hook string, cb func() error) {
	err := utils.CatchPanic(cb)
	if err == nil {
		return
	}

	metricAnnotatorFailures.WithLabelValues(hook).Inc()

	fields := logrus.Fields{
		"annotator": reflect.TypeOf(annotator).String(),
		"hook":      hook,
	}
	stack := utils.PanicStack(err)
	if stack != "" {
		fields["stack"] = stack
	}
	self.logger.WithFields(fields).Error("Annotator failed: %v", err)
}

// All nodes currently in the lookup map ordered by Pid.
func (self *ProcessTree) Processes() []*Process {
	self.mu.RLock()
	defer self.mu.RUnlock()

	return self.sortedLocked()
}

func (self *ProcessTree) sortedLocked() []*Process {
	result := make([]*Process, 0, len(self.processes))
	for _, proc := range self.processes {
		result = append(result, proc)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].pid.Less(result[j].pid)
	})
	return result
}

// Direct children of the process still in the map. Exec replacements
// are siblings, not children, of the node they replaced.
func (self *ProcessTree) Children(pid Pid) []*Process {
	self.mu.RLock()
	defer self.mu.RUnlock()

	parent, pres := self.processes[pid]
	if !pres {
		return nil
	}

	var result []*Process
	for _, proc := range self.sortedLocked() {
		if proc.parent == parent {
			result = append(result, proc)
		}
	}
	return result
}

type Stats struct {
	Processes       int    `json:"processes"`
	Exited          int    `json:"exited"`
	Retained        int    `json:"retained"`
	LastEventId     uint64 `json:"last_event_id"`
	RetentionWindow int    `json:"retention_window"`
	Annotators      int    `json:"annotators"`
}

func (self *ProcessTree) Stats() Stats {
	self.mu.RLock()
	defer self.mu.RUnlock()

	return Stats{
		Processes:       len(self.processes),
		Exited:          len(self.retention.exited),
		Retained:        len(self.retained),
		LastEventId:     self.retention.last_event_id,
		RetentionWindow: self.retention.window,
		Annotators:      len(self.annotators),
	}
}
