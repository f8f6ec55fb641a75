package disk

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/mit-pdos/go-blockfs/util"
)

var ErrLocked = errors.New("disk image is in use")

var _ Disk = (*FileDisk)(nil)

// FileDisk is a disk backed by a regular file (or block device). The file
// is locked exclusively for as long as the disk is open.
type FileDisk struct {
	fd        int
	blockSize uint64
	numBlocks uint64
}

func openLocked(path string, flags int) (int, error) {
	fd, err := unix.Open(path, flags, 0666)
	if err != nil {
		return -1, fmt.Errorf("open %s: %w", path, err)
	}
	err = unix.Flock(fd, unix.LOCK_EX|unix.LOCK_NB)
	if err != nil {
		unix.Close(fd)
		if err == unix.EWOULDBLOCK {
			return -1, fmt.Errorf("%s: %w", path, ErrLocked)
		}
		return -1, fmt.Errorf("lock %s: %w", path, err)
	}
	return fd, nil
}

// NewFileDisk creates (or resizes) the file at path to hold numBlocks
// blocks of blockSize bytes.
func NewFileDisk(path string, blockSize uint64, numBlocks uint64) (*FileDisk, error) {
	if blockSize == 0 {
		return nil, fmt.Errorf("new file disk: %w", ErrBlockSize)
	}
	if numBlocks > math.MaxInt64/blockSize {
		return nil, fmt.Errorf("new file disk: %d blocks of %d bytes: %w", numBlocks, blockSize, ErrTooLarge)
	}
	fd, err := openLocked(path, unix.O_RDWR|unix.O_CREAT)
	if err != nil {
		return nil, err
	}
	var stat unix.Stat_t
	err = unix.Fstat(fd, &stat)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	sz := int64(numBlocks * blockSize)
	if (stat.Mode&unix.S_IFMT) == unix.S_IFREG && stat.Size != sz {
		err = unix.Ftruncate(fd, sz)
		if err != nil {
			unix.Close(fd)
			return nil, fmt.Errorf("truncate %s: %w", path, err)
		}
	}
	util.DPrintf(1, "NewFileDisk: %s %d blocks of %d bytes\n", path, numBlocks, blockSize)
	return &FileDisk{fd: fd, blockSize: blockSize, numBlocks: numBlocks}, nil
}

// OpenFileDisk opens an existing image without resizing it; the number of
// blocks is derived from the file size.
func OpenFileDisk(path string, blockSize uint64) (*FileDisk, error) {
	if blockSize == 0 {
		return nil, fmt.Errorf("open file disk: %w", ErrBlockSize)
	}
	fd, err := openLocked(path, unix.O_RDWR)
	if err != nil {
		return nil, err
	}
	var stat unix.Stat_t
	err = unix.Fstat(fd, &stat)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if uint64(stat.Size)%blockSize != 0 {
		unix.Close(fd)
		return nil, fmt.Errorf("%s: size %d is not a multiple of %d: %w",
			path, stat.Size, blockSize, ErrBlockSize)
	}
	return &FileDisk{fd: fd, blockSize: blockSize, numBlocks: uint64(stat.Size) / blockSize}, nil
}

func (d *FileDisk) ReadTo(a uint64, buf Block) error {
	if d.fd < 0 {
		return ErrClosed
	}
	if err := checkAccess(d, a, buf); err != nil {
		return fmt.Errorf("read at %d: %w", a, err)
	}
	n, err := unix.Pread(d.fd, buf, int64(a*d.blockSize))
	if err != nil {
		return fmt.Errorf("read at %d: %w", a, err)
	}
	if uint64(n) != d.blockSize {
		return fmt.Errorf("read at %d: short read (%d bytes)", a, n)
	}
	util.DPrintf(10, "read: %d\n", a)
	return nil
}

func (d *FileDisk) Read(a uint64) (Block, error) {
	buf := make(Block, d.blockSize)
	err := d.ReadTo(a, buf)
	if err != nil {
		return nil, err
	}
	return buf, nil
}

func (d *FileDisk) Write(a uint64, v Block) error {
	if d.fd < 0 {
		return ErrClosed
	}
	if err := checkAccess(d, a, v); err != nil {
		return fmt.Errorf("write at %d: %w", a, err)
	}
	n, err := unix.Pwrite(d.fd, v, int64(a*d.blockSize))
	if err != nil {
		return fmt.Errorf("write at %d: %w", a, err)
	}
	if uint64(n) != d.blockSize {
		return fmt.Errorf("write at %d: short write (%d bytes)", a, n)
	}
	util.DPrintf(10, "write: %d\n", a)
	return nil
}

func (d *FileDisk) Size() uint64 {
	return d.numBlocks
}

func (d *FileDisk) BlockSize() uint64 {
	return d.blockSize
}

func (d *FileDisk) Barrier() error {
	if d.fd < 0 {
		return ErrClosed
	}
	// NOTE: on macOS, this flushes to the drive but doesn't actually issue a
	// disk barrier; the correct replacement is fcntl with F_FULLFSYNC.
	err := unix.Fsync(d.fd)
	if err != nil {
		return fmt.Errorf("file sync failed: %w", err)
	}
	return nil
}

// Close drops the lock and closes the file. Closing twice is an error.
func (d *FileDisk) Close() error {
	if d.fd < 0 {
		return ErrClosed
	}
	err := unix.Close(d.fd)
	d.fd = -1
	return err
}

/////////////////////////
/////////////////////////

var _ Disk = (*MemDisk)(nil)

// MemDisk keeps every block in memory; contents are lost on Close.
type MemDisk struct {
	l         *sync.RWMutex
	blockSize uint64
	blocks    [][]byte
}

func NewMemDisk(blockSize uint64, numBlocks uint64) *MemDisk {
	blocks := make([][]byte, numBlocks)
	for i := range blocks {
		blocks[i] = make([]byte, blockSize)
	}
	return &MemDisk{l: new(sync.RWMutex), blockSize: blockSize, blocks: blocks}
}

func (d *MemDisk) ReadTo(a uint64, buf Block) error {
	d.l.RLock()
	defer d.l.RUnlock()
	if d.blocks == nil {
		return ErrClosed
	}
	if err := checkAccess(d, a, buf); err != nil {
		return fmt.Errorf("read at %d: %w", a, err)
	}
	copy(buf, d.blocks[a])
	return nil
}

func (d *MemDisk) Read(a uint64) (Block, error) {
	buf := make(Block, d.blockSize)
	err := d.ReadTo(a, buf)
	if err != nil {
		return nil, err
	}
	return buf, nil
}

func (d *MemDisk) Write(a uint64, v Block) error {
	d.l.Lock()
	defer d.l.Unlock()
	if d.blocks == nil {
		return ErrClosed
	}
	if err := checkAccess(d, a, v); err != nil {
		return fmt.Errorf("write at %d: %w", a, err)
	}
	copy(d.blocks[a], v)
	return nil
}

func (d *MemDisk) Size() uint64 {
	// numBlocks never changes, except to 0 after Close
	return uint64(len(d.blocks))
}

func (d *MemDisk) BlockSize() uint64 {
	return d.blockSize
}

func (d *MemDisk) Barrier() error { return nil }

func (d *MemDisk) Close() error {
	d.l.Lock()
	defer d.l.Unlock()
	if d.blocks == nil {
		return ErrClosed
	}
	d.blocks = nil
	return nil
}
