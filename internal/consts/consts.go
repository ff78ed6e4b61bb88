package consts

import (
	"errors"
)

var (
	ErrNilParam             = errors.New(`nil parameter`)
	ErrPlatformNotSupported = errors.New(`platform not supported`)
	ErrNotInitialized       = errors.New(`display not initialized`)
	ErrAlreadyInitialized   = errors.New(`display already initialized`)
)

const (
	// DebugEnvVar enables verbose diagnostics on stdout when set.
	DebugEnvVar = `DRM_DEBUG`

	DefaultDevicePath = `/dev/dri/card0`
	MaxCardIndex      = 16
)
