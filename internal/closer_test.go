package internal_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/liyigang86/drm-rga-demo/internal"
	"github.com/liyigang86/drm-rga-demo/internal/errors"
)

func TestCloserOrder(t *testing.T) {
	var order []int
	errA := errors.New(`a`)
	errC := errors.New(`c`)
	c := internal.NewCloser()
	c.OnClose(func() error { order = append(order, 1); return errA })
	c.OnClose(nil)
	c.OnClose(func() error { order = append(order, 2); return nil })
	c.OnClose(func() error { order = append(order, 3); return errC })

	err := c.Close()
	assert.Equal(t, []int{3, 2, 1}, order)
	assert.True(t, errors.Is(err, errA))
	assert.True(t, errors.Is(err, errC))

	// funcs run once
	assert.NoError(t, c.Close())
	assert.Equal(t, []int{3, 2, 1}, order)
}
