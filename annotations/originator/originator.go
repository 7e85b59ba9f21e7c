// Package originator tags every process with the kind of session it
// descends from (an interactive login, an ssh session, a cron job).
// The tag is attached when a trigger executable is exec'ed and is
// inherited by all descendants until another trigger overrides it.
package originator

import (
	"strings"

	"github.com/pkg/errors"
	"google.golang.org/protobuf/types/known/structpb"
	"www.velocidex.com/golang/proctree/config"
	"www.velocidex.com/golang/proctree/process"
	"www.velocidex.com/golang/proctree/utils"
)

type Kind int

const (
	UNKNOWN Kind = iota
	LOGIN
	SSHD
	CRON
	LAUNCHD
	CONTAINER
)

var kind_names = map[Kind]string{
	UNKNOWN:   "UNKNOWN",
	LOGIN:     "LOGIN",
	SSHD:      "SSHD",
	CRON:      "CRON",
	LAUNCHD:   "LAUNCHD",
	CONTAINER: "CONTAINER",
}

func (self Kind) String() string {
	name, pres := kind_names[self]
	if !pres {
		return "UNKNOWN"
	}
	return name
}

func ParseKind(name string) (Kind, error) {
	name = strings.ToUpper(strings.TrimSpace(name))
	for k, v := range kind_names {
		if v == name {
			return k, nil
		}
	}
	return UNKNOWN, utils.Wrap(utils.InvalidArgError,
		"Unknown originator kind %q", name)
}

func DefaultTriggers() map[string]Kind {
	return map[string]Kind{
		"/usr/bin/login":                   LOGIN,
		"/bin/login":                       LOGIN,
		"/usr/sbin/sshd":                   SSHD,
		"/usr/sbin/cron":                   CRON,
		"/usr/sbin/crond":                  CRON,
		"/sbin/launchd":                    LAUNCHD,
		"/usr/bin/containerd-shim":         CONTAINER,
		"/usr/bin/containerd-shim-runc-v2": CONTAINER,
	}
}

// Originator is both the annotator registered with the tree and the
// annotation value stored on nodes. The registered instance carries
// the trigger table; stored instances carry the kind.
type Originator struct {
	kind     Kind
	triggers map[string]Kind
}

// Builds the annotator. A nil or empty table uses DefaultTriggers().
func New(triggers map[string]Kind) *Originator {
	if len(triggers) == 0 {
		triggers = DefaultTriggers()
	}
	return &Originator{triggers: triggers}
}

func NewFromConfig(config_obj *config.Config) (*Originator, error) {
	if config_obj == nil || config_obj.Originator == nil ||
		len(config_obj.Originator.Triggers) == 0 {
		return New(nil), nil
	}

	triggers := make(map[string]Kind)
	for executable, name := range config_obj.Originator.Triggers {
		kind, err := ParseKind(name)
		if err != nil {
			return nil, errors.Wrapf(err, "originator trigger %v", executable)
		}
		triggers[executable] = kind
	}
	return New(triggers), nil
}

func NewAnnotation(kind Kind) *Originator {
	return &Originator{kind: kind}
}

func (self *Originator) Kind() Kind {
	return self.kind
}

func (self *Originator) trigger(proc *process.Process) (Kind, bool) {
	kind, pres := self.triggers[proc.Executable()]
	return kind, pres
}

// Base case: children inherit the parent's originator.
func (self *Originator) AnnotateFork(
	store process.AnnotationStore, parent, child *process.Process) error {
	annotation, pres := process.GetAnnotation[*Originator](store, parent)
	if pres {
		store.AnnotateProcess(child, annotation)
	}
	return nil
}

// A trigger executable starts a new session and overrides anything
// inherited; otherwise the original's annotation carries over.
func (self *Originator) AnnotateExec(
	store process.AnnotationStore, orig_process, new_process *process.Process) error {
	kind, pres := self.trigger(new_process)
	if pres {
		store.AnnotateProcess(new_process, NewAnnotation(kind))
		return nil
	}

	annotation, pres := process.GetAnnotation[*Originator](store, orig_process)
	if pres {
		store.AnnotateProcess(new_process, annotation)
	}
	return nil
}

func (self *Originator) AnnotateBackfill(
	store process.AnnotationStore, parent, proc *process.Process) error {
	kind, pres := self.trigger(proc)
	if pres {
		store.AnnotateProcess(proc, NewAnnotation(kind))
		return nil
	}

	if parent != nil {
		return self.AnnotateFork(store, parent, proc)
	}
	return nil
}

func (self *Originator) Proto() *structpb.Struct {
	if self.kind == UNKNOWN {
		return nil
	}

	return &structpb.Struct{
		Fields: map[string]*structpb.Value{
			"originator": structpb.NewStringValue(self.kind.String()),
		},
	}
}
