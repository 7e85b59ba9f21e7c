package originator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"www.velocidex.com/golang/proctree/config"
	"www.velocidex.com/golang/proctree/process"
	"www.velocidex.com/golang/proctree/utils"
)

type OriginatorTestSuite struct {
	suite.Suite

	tree      *process.ProcessTree
	init_proc *process.Process
	event_id  uint64
}

func (self *OriginatorTestSuite) SetupTest() {
	self.tree = process.NewProcessTree(process.Options{}, New(nil))
	self.init_proc = self.tree.InsertRoot(process.Pid{Pid: 1, PidVersion: 1},
		process.Cred{}, process.NewProgram("/sbin/init"))
	self.event_id = 0
}

// Forks parent and execs the child into executable.
func (self *OriginatorTestSuite) spawn(
	parent *process.Process, pid int32, executable string) *process.Process {
	self.event_id++
	fork_pid := self.tree.NewPid(pid)
	self.tree.HandleFork(self.event_id, parent, fork_pid)
	child, pres := self.tree.Get(fork_pid)
	require.True(self.T(), pres)

	self.event_id++
	exec_pid := self.tree.NewPid(pid)
	self.tree.HandleExec(self.event_id, child, exec_pid,
		process.NewProgram(executable), child.Cred())
	execed, pres := self.tree.Get(exec_pid)
	require.True(self.T(), pres)
	return execed
}

func (self *OriginatorTestSuite) kindOf(proc *process.Process) Kind {
	annotation, pres := process.GetAnnotation[*Originator](self.tree, proc)
	if !pres {
		return UNKNOWN
	}
	return annotation.Kind()
}

func (self *OriginatorTestSuite) TestLoginSession() {
	login := self.spawn(self.init_proc, 2, "/usr/bin/login")
	shell := self.spawn(login, 3, "/bin/zsh")
	tool := self.spawn(shell, 4, "/usr/bin/vim")

	assert.Equal(self.T(), LOGIN, self.kindOf(login))
	assert.Equal(self.T(), LOGIN, self.kindOf(shell))
	assert.Equal(self.T(), LOGIN, self.kindOf(tool))
	assert.Equal(self.T(), UNKNOWN, self.kindOf(self.init_proc))
}

func (self *OriginatorTestSuite) TestTriggerOverridesInherited() {
	cron := self.spawn(self.init_proc, 2, "/usr/sbin/cron")
	job := self.spawn(cron, 3, "/bin/sh")
	sshd := self.spawn(job, 4, "/usr/sbin/sshd")
	shell := self.spawn(sshd, 5, "/bin/bash")

	assert.Equal(self.T(), CRON, self.kindOf(job))
	assert.Equal(self.T(), SSHD, self.kindOf(sshd))
	assert.Equal(self.T(), SSHD, self.kindOf(shell))
}

func (self *OriginatorTestSuite) TestExport() {
	login := self.spawn(self.init_proc, 2, "/bin/login")

	exported, pres := self.tree.ExportAnnotations(login.Pid())
	require.True(self.T(), pres)
	assert.Equal(self.T(), "LOGIN", exported.Fields["originator"].GetStringValue())

	exported, pres = self.tree.ExportAnnotations(self.init_proc.Pid())
	require.True(self.T(), pres)
	assert.Empty(self.T(), exported.Fields)
}

type staticLoader []process.LoadedProcess

func (self staticLoader) LoadProcesses(ctx context.Context) ([]process.LoadedProcess, error) {
	return self, nil
}

func (self *OriginatorTestSuite) TestBackfill() {
	tree := process.NewProcessTree(process.Options{}, New(nil))
	err := tree.Backfill(context.Background(), staticLoader{
		{Pid: 1, Program: process.NewProgram("/sbin/init")},
		{Pid: 20, PPid: 1, Program: process.NewProgram("/usr/sbin/crond")},
		{Pid: 21, PPid: 20, Program: process.NewProgram("/bin/backup.sh")},
	})
	require.NoError(self.T(), err)

	kinds := make(map[int32]Kind)
	for _, proc := range tree.Processes() {
		annotation, pres := process.GetAnnotation[*Originator](tree, proc)
		if pres {
			kinds[proc.Pid().Pid] = annotation.Kind()
		}
	}
	assert.Equal(self.T(), map[int32]Kind{20: CRON, 21: CRON}, kinds)
}

func TestOriginator(t *testing.T) {
	suite.Run(t, &OriginatorTestSuite{})
}

func TestParseKind(t *testing.T) {
	kind, err := ParseKind(" sshd ")
	assert.NoError(t, err)
	assert.Equal(t, SSHD, kind)

	_, err = ParseKind("telnet")
	assert.ErrorIs(t, err, utils.InvalidArgError)

	assert.Equal(t, "CONTAINER", CONTAINER.String())
	assert.Equal(t, "UNKNOWN", Kind(42).String())
}

func TestNewFromConfig(t *testing.T) {
	config_obj := config.GetDefaultConfig()
	config_obj.Originator.Triggers = map[string]string{
		"/opt/bin/portal": "login",
	}

	annotator, err := NewFromConfig(config_obj)
	require.NoError(t, err)
	assert.Equal(t, map[string]Kind{"/opt/bin/portal": LOGIN}, annotator.triggers)

	config_obj.Originator.Triggers["/opt/bin/other"] = "bogus"
	_, err = NewFromConfig(config_obj)
	assert.ErrorContains(t, err, "/opt/bin/other")

	annotator, err = NewFromConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultTriggers(), annotator.triggers)
}

func TestProtoUnknown(t *testing.T) {
	assert.Nil(t, NewAnnotation(UNKNOWN).Proto())
}
