package drmrga

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liyigang86/drm-rga-demo/display"
	"github.com/liyigang86/drm-rga-demo/internal/consts"
	"github.com/liyigang86/drm-rga-demo/internal/environ"
	"github.com/liyigang86/drm-rga-demo/internal/errors"
	"github.com/liyigang86/drm-rga-demo/internal/testutil/fakekms"
	"github.com/liyigang86/drm-rga-demo/kms"
)

func TestLifecycle(t *testing.T) {
	env = environ.FromList(nil)
	dev := fakekms.NewStandard()
	dev.Connectors[10].Modes = []kms.Mode{fakekms.Mode(64, 32)}

	Deinit()
	assert.True(t, errors.Is(Render(nil, 32, 64, 32, 256), consts.ErrNotInitialized))

	require.NoError(t, Init(2, 32, 64, 32, display.SetDevice(dev), display.SetRenderer(display.RendererCopy)))
	assert.True(t, errors.Is(Init(2, 32, 64, 32, display.SetDevice(fakekms.NewStandard())), consts.ErrAlreadyInitialized))

	frame := make([]byte, 256*32)
	for k := 0; k < 4; k++ {
		assert.NoError(t, Render(frame, 32, 64, 32, 256))
	}
	assert.Error(t, Render(frame, 32, 32, 32, 256))
	assert.Len(t, dev.PlaneUpdates, 4)

	Deinit()
	assert.True(t, dev.Closed)
	assert.Zero(t, dev.Leaks())
	n := len(dev.Calls)
	Deinit()
	assert.Len(t, dev.Calls, n)
	assert.True(t, errors.Is(Render(frame, 32, 64, 32, 256), consts.ErrNotInitialized))
}

func TestInitFailure(t *testing.T) {
	env = environ.FromList(nil)
	dev := fakekms.NewStandard()
	err := Init(display.MaxBuffers+1, 32, 0, 0, display.SetDevice(dev))
	assert.True(t, errors.Is(err, display.ErrBufferCount))
	assert.Empty(t, dev.Calls)
	// a failed Init leaves nothing to tear down
	Deinit()
}

func captureOutput(t *testing.T, vars ...string) (*bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	var out, errOut bytes.Buffer
	env, stdout, stderr = environ.FromList(vars), &out, &errOut
	t.Cleanup(func() {
		Deinit()
		env, stdout, stderr = environ.FromList(nil), os.Stdout, os.Stderr
	})
	return &out, &errOut
}

func smallDevice() *fakekms.Device {
	dev := fakekms.NewStandard()
	dev.Connectors[10].Modes = []kms.Mode{fakekms.Mode(64, 32)}
	return dev
}

func TestDebugLogging(t *testing.T) {
	out, errOut := captureOutput(t, consts.DebugEnvVar+`=1`)
	require.NoError(t, Init(2, 32, 64, 32, display.SetDevice(smallDevice()), display.SetRenderer(display.RendererCopy)))
	require.NoError(t, Render(make([]byte, 256*32), 32, 64, 32, 256))

	assert.Contains(t, out.String(), `level=DEBUG`)
	assert.Contains(t, out.String(), `display initialized`)
	assert.Empty(t, errOut.String())
}

func TestErrorLogging(t *testing.T) {
	out, errOut := captureOutput(t)
	require.NoError(t, Init(2, 32, 64, 32, display.SetDevice(smallDevice()), display.SetRenderer(display.RendererCopy)))
	require.NoError(t, Render(make([]byte, 256*32), 32, 64, 32, 256))
	assert.Empty(t, errOut.String(), `successful frames are silent`)

	assert.Error(t, Render(make([]byte, 256*32), 32, 32, 32, 256))
	assert.Contains(t, errOut.String(), `level=ERROR`)
	assert.NotContains(t, errOut.String(), `level=DEBUG`)
	assert.NotContains(t, errOut.String(), `level=INFO`)
	assert.Empty(t, out.String())
}
