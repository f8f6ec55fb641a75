// Package disk provides block devices: a fixed number of equally sized
// blocks, read and written whole by index.
package disk

import "errors"

// Block is a BlockSize()-byte buffer
type Block = []byte

var (
	ErrOutOfBounds = errors.New("block address out of bounds")
	ErrBlockSize   = errors.New("buffer is not block-sized")
	ErrClosed      = errors.New("disk is closed")
	ErrTooLarge    = errors.New("disk size does not fit in a file offset")
)

// Disk provides access to a logical block-based disk
type Disk interface {
	// Read reads a disk block by address
	//
	// Expects a < Size().
	Read(a uint64) (Block, error)

	// ReadTo reads the disk block at a and stores the result in b
	//
	// Expects a < Size() and len(b) == BlockSize().
	ReadTo(a uint64, b Block) error

	// Write updates a disk block by address
	//
	// Expects a < Size() and len(v) == BlockSize().
	Write(a uint64, v Block) error

	// Size reports how big the disk is, in blocks
	Size() uint64

	// BlockSize reports the size of every block, in bytes
	BlockSize() uint64

	// Barrier ensures data is persisted.
	//
	// When it returns, all outstanding writes are guaranteed to be durably on
	// disk
	Barrier() error

	// Close releases any resources used by the disk and makes it unusable.
	Close() error
}

func checkAccess(d Disk, a uint64, b Block) error {
	if a >= d.Size() {
		return ErrOutOfBounds
	}
	if uint64(len(b)) != d.BlockSize() {
		return ErrBlockSize
	}
	return nil
}
