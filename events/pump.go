package events

import (
	"context"
	"io"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
	"www.velocidex.com/golang/proctree/config"
	"www.velocidex.com/golang/proctree/logging"
	"www.velocidex.com/golang/proctree/process"
	"www.velocidex.com/golang/proctree/utils"
)

// The Pump turns events into ProcessTree handler calls. Events that
// carry a zero pidversion are resolved through a link from the bare
// kernel pid to its current identity, and new identities without a
// version get one minted by the tree.
type Pump struct {
	mu sync.Mutex

	tree *process.ProcessTree

	// Bare kernel pid to the latest identity seen for it.
	links map[int32]process.Pid

	last_event_id uint64

	// Anomalies can arrive in floods (e.g. a dropped fork event
	// orphans every later event for that pid).
	limiter *rate.Limiter
	logger  *logging.LogContext

	applied, failed int
}

func NewPump(tree *process.ProcessTree, config_obj *config.PumpConfig) *Pump {
	if config_obj == nil {
		config_obj = config.GetDefaultConfig().Pump
	}

	return &Pump{
		tree:  tree,
		links: make(map[int32]process.Pid),
		limiter: rate.NewLimiter(
			rate.Limit(config_obj.AnomalyLogRate), config_obj.AnomalyLogBurst),
		logger: logging.GetLogger(logging.PumpComponent),
	}
}

// Registers an existing node (e.g. a backfilled or synthetic root) so
// that events naming its bare pid resolve to it.
func (self *Pump) Link(proc *process.Process) {
	self.mu.Lock()
	defer self.mu.Unlock()

	self.links[proc.Pid().Pid] = proc.Pid()
}

func (self *Pump) LinkAll(procs []*process.Process) {
	self.mu.Lock()
	defer self.mu.Unlock()

	for _, proc := range procs {
		current, pres := self.links[proc.Pid().Pid]
		if !pres || current.PidVersion < proc.Pid().PidVersion {
			self.links[proc.Pid().Pid] = proc.Pid()
		}
	}
}

func (self *Pump) resolve(pid int32, version uint64) (*process.Process, error) {
	target := process.Pid{Pid: pid, PidVersion: version}
	if version == 0 {
		linked, pres := self.links[pid]
		if !pres {
			return nil, utils.Wrap(utils.NotFoundError, "no identity for pid %v", pid)
		}
		target = linked
	}

	proc, pres := self.tree.Get(target)
	if !pres {
		// The link is stale if it points to an evicted entry.
		if version == 0 {
			delete(self.links, pid)
		}
		return nil, utils.Wrap(utils.NotFoundError, "process %v", target)
	}
	return proc, nil
}

func (self *Pump) nextEventId(event *Event) uint64 {
	if event.EventId == 0 {
		self.last_event_id++
		return self.last_event_id
	}
	if event.EventId > self.last_event_id {
		self.last_event_id = event.EventId
	}
	return event.EventId
}

func (self *Pump) Apply(event *Event) error {
	self.mu.Lock()
	defer self.mu.Unlock()

	err := self.apply(event)
	if err != nil {
		self.failed++
		self.anomaly(event, err)
		return err
	}
	self.applied++
	return nil
}

func (self *Pump) apply(event *Event) error {
	err := event.Validate()
	if err != nil {
		return err
	}

	proc, err := self.resolve(event.Pid, event.PidVersion)
	if err != nil {
		return err
	}

	event_id := self.nextEventId(event)

	switch event.Type {
	case ForkEvent:
		child_pid := process.Pid{Pid: event.ChildPid, PidVersion: event.ChildPidVersion}
		if child_pid.PidVersion == 0 {
			child_pid = self.tree.NewPid(event.ChildPid)
		}
		self.tree.HandleFork(event_id, proc, child_pid)
		self.links[child_pid.Pid] = child_pid

	case ExecEvent:
		new_pid := process.Pid{Pid: proc.Pid().Pid, PidVersion: event.NewPidVersion}
		if new_pid.PidVersion == 0 {
			new_pid = self.tree.NewPid(proc.Pid().Pid)
		}
		self.tree.HandleExec(event_id, proc, new_pid, event.Program(), event.Cred())
		self.links[new_pid.Pid] = new_pid

	case ExitEvent:
		self.tree.HandleExit(event_id, proc)
	}

	return nil
}

func (self *Pump) anomaly(event *Event, err error) {
	if !self.limiter.Allow() {
		return
	}

	self.logger.WithFields(logrus.Fields{
		"type":     event.Type,
		"pid":      event.Pid,
		"event_id": event.EventId,
	}).Warn("Unable to apply event: %v", err)
}

type decoded struct {
	event *Event
	err   error
}

// Reads the decoder in the background so a blocked read does not
// hold up cancellation. The goroutine exits at the end of input or
// once ctx is done and its next read returns.
func decodeAll(ctx context.Context, decoder *Decoder) <-chan decoded {
	output_chan := make(chan decoded)

	go func() {
		defer close(output_chan)

		for {
			event, err := decoder.Next()
			select {
			case <-ctx.Done():
				return
			case output_chan <- decoded{event: event, err: err}:
			}

			if err != nil {
				return
			}
		}
	}()

	return output_chan
}

// Applies every event from the decoder until it is exhausted or the
// context is done. Events that can not be applied are logged and
// skipped; decode errors stop the run.
func (self *Pump) Run(ctx context.Context, decoder *Decoder) error {
	err := ctx.Err()
	if err != nil {
		return err
	}

	sub_ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	input_chan := decodeAll(sub_ctx, decoder)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case item, ok := <-input_chan:
			if !ok {
				return nil
			}
			if errors.Is(item.err, io.EOF) {
				return nil
			}
			if item.err != nil {
				return errors.Wrap(item.err, "Pump.Run")
			}

			_ = self.Apply(item.event)
		}
	}
}

type PumpStats struct {
	Applied int `json:"applied"`
	Failed  int `json:"failed"`
}

func (self *Pump) Stats() PumpStats {
	self.mu.Lock()
	defer self.mu.Unlock()

	return PumpStats{Applied: self.applied, Failed: self.failed}
}
