package main

import (
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"www.velocidex.com/golang/proctree/vtesting"
)

func TestMetricsServer(t *testing.T) {
	addr, err := startMetricsServer("127.0.0.1:0")
	require.NoError(t, err)

	// Building a tree touches the tree size gauge.
	makeTree(nil)

	vtesting.WaitUntil(5*time.Second, t, func() bool {
		resp, err := http.Get("http://" + addr.String() + "/metrics")
		if err != nil {
			return false
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		return err == nil && strings.Contains(string(body), "proctree_processes")
	})
}
