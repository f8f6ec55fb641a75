package fs

import (
	"github.com/mit-pdos/go-blockfs/buf"
	"github.com/mit-pdos/go-blockfs/common"
	"github.com/mit-pdos/go-blockfs/disk"
	"github.com/mit-pdos/go-blockfs/inode"
	"github.com/mit-pdos/go-blockfs/super"
)

// The capability layers of a file system, each extending the one before.
// FileSystem implements all of them.

// FileSysSupport is a mounted volume that owns its device.
type FileSysSupport interface {
	// Super returns the layout the volume was mounted with.
	Super() super.SuperBlock
	// Unmount hands the device back; the file system is unusable after.
	Unmount() (disk.Disk, error)
}

// BlockSupport adds raw block access and data block allocation. Block
// numbers passed to BlockGet are absolute; the i of BlockZero, BlockAlloc
// and BlockFree is relative to the start of the data region.
type BlockSupport interface {
	FileSysSupport
	BlockGet(blkno common.Bnum) (*buf.Buf, error)
	BlockPut(b *buf.Buf) error
	BlockZero(i uint64) error
	BlockAlloc() (uint64, error)
	BlockFree(i uint64) error
	SupGet() (*super.SuperBlock, error)
	SupPut(sb *super.SuperBlock) error
}

// InodeSupport adds the inode table.
type InodeSupport interface {
	BlockSupport
	IGet(inum common.Inum) (*inode.Inode, error)
	IPut(ip *inode.Inode) error
	IAlloc(kind inode.Kind) (common.Inum, error)
	IFree(inum common.Inum) error
	ITrunc(ip *inode.Inode) error
}

// DirectorySupport adds directories stored as inode data.
type DirectorySupport interface {
	InodeSupport
	DirLookup(dip *inode.Inode, name string) (*inode.Inode, uint64, error)
	DirLink(dip *inode.Inode, name string, inum common.Inum) (uint64, error)
}

// InodeRWSupport adds byte-range reads and writes of inode data.
type InodeRWSupport interface {
	InodeSupport
	IRead(ip *inode.Inode, dst []byte, off uint64, n uint64) (uint64, error)
	IWrite(ip *inode.Inode, src []byte, off uint64, n uint64) error
}

var (
	_ DirectorySupport = (*FileSystem)(nil)
	_ InodeRWSupport   = (*FileSystem)(nil)
)
