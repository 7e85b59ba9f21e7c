package events

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"www.velocidex.com/golang/proctree/process"
	"www.velocidex.com/golang/proctree/utils"
)

func TestDecoder(t *testing.T) {
	decoder := NewDecoder(strings.NewReader(`
{"type":"fork","event_id":1,"pid":1,"pidversion":1,"child_pid":2}

{"type":"exec","pid":2,"executable":"/bin/ls","arguments":["ls","-l"],"uid":1000,"gid":50}
{"type":"exit","pid":2}
`))

	event, err := decoder.Next()
	require.NoError(t, err)
	assert.Equal(t, &Event{
		Type: ForkEvent, EventId: 1, Pid: 1, PidVersion: 1, ChildPid: 2,
	}, event)

	event, err = decoder.Next()
	require.NoError(t, err)
	assert.Equal(t, ExecEvent, event.Type)
	assert.True(t, process.NewProgram("/bin/ls", "ls", "-l").Equal(event.Program()))
	assert.Equal(t, process.Cred{Uid: 1000, Gid: 50}, event.Cred())

	event, err = decoder.Next()
	require.NoError(t, err)
	assert.Equal(t, ExitEvent, event.Type)

	_, err = decoder.Next()
	assert.Equal(t, io.EOF, err)
}

func TestDecoderErrors(t *testing.T) {
	decoder := NewDecoder(strings.NewReader(
		"{\"type\":\"exit\",\"pid\":2}\n{not json}\n"))
	_, err := decoder.Next()
	require.NoError(t, err)

	_, err = decoder.Next()
	assert.ErrorContains(t, err, "line 2")

	decoder = NewDecoder(strings.NewReader(`{"type":"fork","pid":2}`))
	_, err = decoder.Next()
	assert.ErrorIs(t, err, utils.InvalidArgError)
}

func TestValidate(t *testing.T) {
	for _, event := range []*Event{
		{Type: ForkEvent, Pid: 1},
		{Type: ExecEvent, Pid: 1},
		{Type: "kill", Pid: 1},
	} {
		assert.ErrorIs(t, event.Validate(), utils.InvalidArgError, event.Type)
	}

	assert.NoError(t, (&Event{Type: ExitEvent, Pid: 1}).Validate())
}
