package audit

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"www.velocidex.com/golang/proctree/annotations/originator"
	"www.velocidex.com/golang/proctree/json"
	"www.velocidex.com/golang/proctree/process"
	"www.velocidex.com/golang/proctree/utils"
)

func buildTree(t *testing.T) (*process.ProcessTree, process.Pid) {
	tree := process.NewProcessTree(process.Options{}, originator.New(nil))
	root := tree.InsertRoot(process.Pid{Pid: 1, PidVersion: 1},
		process.Cred{}, process.NewProgram("/sbin/init"))

	tree.HandleFork(1, root, process.Pid{Pid: 2, PidVersion: 2})
	child, pres := tree.Get(process.Pid{Pid: 2, PidVersion: 2})
	require.True(t, pres)

	sshd := process.Pid{Pid: 2, PidVersion: 3}
	tree.HandleExec(2, child, sshd, process.NewProgram("/usr/sbin/sshd"),
		process.Cred{Uid: 22, Gid: 22})
	return tree, sshd
}

func TestEmit(t *testing.T) {
	tree, sshd := buildTree(t)

	buf := &bytes.Buffer{}
	emitter := NewEmitter(tree, buf).
		WithSessionId("session-1").
		WithClock(utils.MockClock{MockNow: time.Unix(1700000000, 0)})

	require.NoError(t, emitter.Emit(sshd))
	require.NoError(t, emitter.Emit(process.Pid{Pid: 1, PidVersion: 1}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Equal(t, 2, len(lines))

	record := make(map[string]interface{})
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &record))

	assert.Equal(t, "session-1", record["session_id"])
	assert.Equal(t, "2023-11-14T22:13:20Z", record["timestamp"])
	assert.Equal(t, "/usr/sbin/sshd", record["executable"])
	assert.Equal(t, float64(3), record["pidversion"])
	assert.Equal(t, float64(22), record["uid"])
	assert.Equal(t, map[string]interface{}{"originator": "SSHD"},
		record["annotations"])

	record = make(map[string]interface{})
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &record))
	assert.Equal(t, map[string]interface{}{}, record["annotations"])
}

func TestEmitUnknown(t *testing.T) {
	tree, _ := buildTree(t)

	buf := &bytes.Buffer{}
	err := NewEmitter(tree, buf).Emit(process.Pid{Pid: 77, PidVersion: 1})
	assert.True(t, utils.IsNotFound(err))
	assert.Equal(t, 0, buf.Len())
}

func TestSessionId(t *testing.T) {
	tree, _ := buildTree(t)

	first := NewEmitter(tree, &bytes.Buffer{}).SessionId()
	second := NewEmitter(tree, &bytes.Buffer{}).SessionId()
	assert.NotEmpty(t, first)
	assert.NotEqual(t, first, second)
}
