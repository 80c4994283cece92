package profiling

import (
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartServesPprof(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	s, err := Start("127.0.0.1:0", logrus.NewEntry(logger))
	require.NoError(t, err)

	defer s.Stop(context.Background())

	resp, err := http.Get("http://" + s.Addr() + "/debug/pprof/cmdline")
	require.NoError(t, err)

	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestStopNil(t *testing.T) {
	var s *Server

	assert.NotPanics(t, func() { s.Stop(context.Background()) })
}
