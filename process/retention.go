package process

// Tracks exited identities and decides when they fall out of the
// lookup map. The window counts mutating events applied by the tree,
// not event id distance and not wall clock time: an entry that exited
// at event X is evicted once W further events have been processed.
//
// Caller supplied event ids are only used for the backwards warning
// and for Stats. Repeated or regressing ids still age entries out.
type retentionState struct {
	window int

	// Number of events applied so far. The event currently being
	// applied has sequence+1.
	sequence uint64

	last_event_id uint64

	// Sequence number of the exit event for every exited Pid still in
	// the map.
	exited map[Pid]uint64
}

func newRetentionState(window int) *retentionState {
	if window < 1 {
		window = 1
	}

	return &retentionState{
		window: window,
		exited: make(map[Pid]uint64),
	}
}

// Mark the pid as exited by the event currently being applied.
func (self *retentionState) markExited(pid Pid) {
	// Keep the earliest exit if an identity is reported twice.
	_, pres := self.exited[pid]
	if !pres {
		self.exited[pid] = self.sequence + 1
	}
}

func (self *retentionState) forget(pid Pid) {
	delete(self.exited, pid)
}

func (self *retentionState) isExited(pid Pid) bool {
	_, pres := self.exited[pid]
	return pres
}

// Complete the current event. Returns false if the event id went
// backwards.
func (self *retentionState) advance(event_id uint64) bool {
	monotonic := self.sequence == 0 || event_id >= self.last_event_id

	self.sequence++
	self.last_event_id = event_id

	return monotonic
}

// Returns the exited Pids whose exit event has left the window. The
// caller decides whether to actually evict them.
func (self *retentionState) expired() []Pid {
	var result []Pid
	for pid, exit_seq := range self.exited {
		if self.sequence-exit_seq >= uint64(self.window) {
			result = append(result, pid)
		}
	}
	return result
}
