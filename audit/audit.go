// Package audit emits annotation records for processes on demand. The
// tree never pushes annotations; the emitter pulls them through
// ExportAnnotations when a record is requested.
package audit

import (
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
	"www.velocidex.com/golang/proctree/process"
	"www.velocidex.com/golang/proctree/utils"
)

type Emitter struct {
	mu sync.Mutex

	tree   *process.ProcessTree
	writer io.Writer

	// Identifies this tree instance so records from different agent
	// runs can be told apart.
	session_id string
	clock      utils.Clock
}

func NewEmitter(tree *process.ProcessTree, writer io.Writer) *Emitter {
	return &Emitter{
		tree:       tree,
		writer:     writer,
		session_id: uuid.New().String(),
		clock:      utils.RealClock{},
	}
}

func (self *Emitter) WithSessionId(session_id string) *Emitter {
	self.session_id = session_id
	return self
}

func (self *Emitter) WithClock(clock utils.Clock) *Emitter {
	self.clock = clock
	return self
}

func (self *Emitter) SessionId() string {
	return self.session_id
}

// Builds the record for a process without writing it.
func (self *Emitter) Record(pid process.Pid) (*structpb.Struct, error) {
	proc, pres := self.tree.Get(pid)
	if !pres {
		return nil, utils.Wrap(utils.NotFoundError, "audit: process %v", pid)
	}

	annotations, pres := self.tree.ExportAnnotations(pid)
	if !pres {
		return nil, utils.Wrap(utils.NotFoundError, "audit: process %v", pid)
	}

	return &structpb.Struct{
		Fields: map[string]*structpb.Value{
			"session_id":  structpb.NewStringValue(self.session_id),
			"timestamp":   structpb.NewStringValue(self.clock.Now().UTC().Format(time.RFC3339)),
			"pid":         structpb.NewNumberValue(float64(proc.Pid().Pid)),
			"pidversion":  structpb.NewNumberValue(float64(proc.Pid().PidVersion)),
			"executable":  structpb.NewStringValue(proc.Executable()),
			"uid":         structpb.NewNumberValue(float64(proc.Cred().Uid)),
			"gid":         structpb.NewNumberValue(float64(proc.Cred().Gid)),
			"annotations": structpb.NewStructValue(annotations),
		},
	}, nil
}

// Writes one protojson line for the process.
func (self *Emitter) Emit(pid process.Pid) error {
	record, err := self.Record(pid)
	if err != nil {
		return err
	}

	serialized, err := protojson.MarshalOptions{UseProtoNames: true}.Marshal(record)
	if err != nil {
		return errors.Wrap(err, "audit")
	}

	self.mu.Lock()
	defer self.mu.Unlock()

	_, err = self.writer.Write(append(serialized, '\n'))
	return err
}
