package common

import (
	"errors"
	"fmt"
)

// Error kinds. Failures are reported wrapped with context, so callers
// should compare with errors.Is.
var (
	ErrInvalidLayout       = errors.New("invalid superblock layout")
	ErrDevice              = errors.New("device failure")
	ErrIndexOutOfBounds    = errors.New("index out of bounds")
	ErrAllocationExhausted = errors.New("allocation exhausted")
	ErrDoubleFree          = errors.New("already free")
	ErrInodeNotFreeable    = errors.New("inode not freeable")
	ErrNotADirectory       = errors.New("not a directory")
	ErrInvalidName         = errors.New("invalid name")
	ErrEntryNotFound       = errors.New("directory entry not found")
	ErrRange               = errors.New("offset or length out of range")
	ErrNotMounted          = errors.New("file system not mounted")
	ErrExists              = errors.New("name already exists")
)

// DeviceError reports a failed device access as ErrDevice, keeping the
// underlying error in the chain.
func DeviceError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrDevice, err)
}
