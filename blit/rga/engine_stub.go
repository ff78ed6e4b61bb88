//go:build !(linux && cgo && rga)

package rga

import (
	"github.com/liyigang86/drm-rga-demo/blit"
	"github.com/liyigang86/drm-rga-demo/internal/errors"
)

func engineInit() error {
	return errors.WrapPrefix(blit.ErrUnavailable, `built without librga (tag rga)`, 0)
}

func engineBlit(_ []byte, _ rect, _ []byte, _ rect) error {
	return errors.New(blit.ErrUnavailable)
}
