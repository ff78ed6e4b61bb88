//go:build !linux

package card

import (
	"github.com/liyigang86/drm-rga-demo/internal/consts"
	"github.com/liyigang86/drm-rga-demo/internal/errors"
	"github.com/liyigang86/drm-rga-demo/kms"
)

func Open(path string) (kms.Device, error) {
	return nil, errors.New(consts.ErrPlatformNotSupported)
}

func Discover() (kms.Device, error) {
	return nil, errors.New(consts.ErrPlatformNotSupported)
}
