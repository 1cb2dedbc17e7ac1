package core

import (
	"errors"
)

var (
	ErrInvalidConfig       = errors.New("invalid engine configuration")
	ErrDeviceLost          = errors.New("gpu device lost")
	ErrFenceTimeout        = errors.New("timed out waiting for in-flight frames")
	ErrOutOfBounds         = errors.New("write outside of buffer bounds")
	ErrBufferDestroyed     = errors.New("buffer already destroyed")
	ErrFrameNotStarted     = errors.New("frame was not started")
	ErrScriptMissingUpdate = errors.New("script does not define an update function")
	ErrUnsupportedFormat   = errors.New("unsupported asset format")
	ErrUnknown             = errors.New("unknown")
)
