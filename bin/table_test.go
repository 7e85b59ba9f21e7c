package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"www.velocidex.com/golang/proctree/process"
)

func TestRenderTable(t *testing.T) {
	tree := makeTree(nil)
	root := tree.InsertRoot(process.Pid{Pid: 1, PidVersion: 1}, process.Cred{},
		process.NewProgram("/sbin/init", "/sbin/init", "splash"))
	tree.HandleFork(1, root, process.Pid{Pid: 2, PidVersion: 2})
	child, _ := tree.Get(process.Pid{Pid: 2, PidVersion: 2})

	buf := &bytes.Buffer{}
	renderTable(describeAll(tree, []*process.Process{root, child}), buf)

	output := buf.String()
	assert.Contains(t, output, "Executable")
	assert.Contains(t, output, "/sbin/init")
	assert.Contains(t, output, `["/sbin/init","splash"]`)
	assert.Contains(t, output, "1.1")
}

func TestStringify(t *testing.T) {
	assert.Equal(t, "", stringify(nil, true))
	assert.Equal(t, "", stringify("x", false))
	assert.Equal(t, "abc", stringify("abc", true))
	assert.Equal(t, "12", stringify(uint32(12), true))
	assert.Equal(t, "true", stringify(true, true))
}
