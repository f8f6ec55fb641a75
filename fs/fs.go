// Package fs is a small file system over a block device: a superblock, a
// table of inodes with direct block pointers, a free-block bitmap and
// directories stored as inode data.
//
// A FileSystem is obtained from Mkfs, Format or Mount and exclusively owns
// its device until Unmount. It is not safe for concurrent use. Every
// change is written to the device before the call that made it returns,
// but operations touching several blocks are not atomic.
package fs

import (
	"errors"
	"fmt"
	"os"

	"github.com/mit-pdos/go-blockfs/alloc"
	"github.com/mit-pdos/go-blockfs/buf"
	"github.com/mit-pdos/go-blockfs/common"
	"github.com/mit-pdos/go-blockfs/disk"
	"github.com/mit-pdos/go-blockfs/inode"
	"github.com/mit-pdos/go-blockfs/super"
	"github.com/mit-pdos/go-blockfs/util"
)

type FileSystem struct {
	d     disk.Disk // nil once unmounted
	sb    super.SuperBlock
	alloc *alloc.Alloc
}

func mkFileSystem(d disk.Disk, sb *super.SuperBlock) *FileSystem {
	return &FileSystem{
		d:     d,
		sb:    *sb,
		alloc: alloc.MkAlloc(d, sb.BmapStart, sb.NBitmapBlocks(), sb.NDataBlocks),
	}
}

func checkGeometry(d disk.Disk, sb *super.SuperBlock) error {
	if !super.Validate(sb) {
		return fmt.Errorf("superblock %v: %w", sb, common.ErrInvalidLayout)
	}
	if d.BlockSize() != sb.BlockSize || d.Size() != sb.NBlocks {
		return fmt.Errorf("superblock %v does not match device (%d blocks of %d bytes): %w",
			sb, d.Size(), d.BlockSize(), common.ErrInvalidLayout)
	}
	return nil
}

// Mkfs creates an image file at path with the geometry of sb and formats
// it. An invalid sb is rejected before anything is created.
func Mkfs(path string, sb *super.SuperBlock) (*FileSystem, error) {
	if !super.Validate(sb) {
		return nil, fmt.Errorf("mkfs %s: %v: %w", path, sb, common.ErrInvalidLayout)
	}
	d, err := disk.NewFileDisk(path, sb.BlockSize, sb.NBlocks)
	if err != nil {
		return nil, common.DeviceError("mkfs "+path, err)
	}
	fs, err := Format(d, sb)
	if err != nil {
		return nil, errors.Join(err, d.Close())
	}
	return fs, nil
}

func (fs *FileSystem) zeroRegion(start common.Bnum, n uint64) error {
	for bn := start; bn < start+n; bn++ {
		if err := fs.BlockPut(buf.MkZeroBuf(bn, fs.sb.BlockSize)); err != nil {
			return err
		}
	}
	return nil
}

// Format writes a fresh volume described by sb onto d, which must have
// exactly sb's geometry, and returns it mounted. The inode, bitmap and data
// regions are zeroed block by block, every inode is marked free, and inode
// 1 becomes the empty root directory.
func Format(d disk.Disk, sb *super.SuperBlock) (*FileSystem, error) {
	if err := checkGeometry(d, sb); err != nil {
		return nil, err
	}
	util.DPrintf(1, "Format: %v\n", sb)
	fs := mkFileSystem(d, sb)
	sblk := buf.MkZeroBuf(super.Block, sb.BlockSize)
	if err := sblk.Install(0, sb.Encode()); err != nil {
		return nil, err
	}
	if err := fs.BlockPut(sblk); err != nil {
		return nil, err
	}
	if err := fs.zeroRegion(sb.InodeStart, sb.NInodeBlocks()); err != nil {
		return nil, err
	}
	if err := fs.zeroRegion(sb.BmapStart, sb.NBitmapBlocks()); err != nil {
		return nil, err
	}
	if err := fs.zeroRegion(sb.DataStart, sb.NDataBlocks); err != nil {
		return nil, err
	}
	for i := uint64(0); i < sb.NInodes; i++ {
		if err := fs.IPut(inode.MkInode(common.Inum(i), inode.KindFree)); err != nil {
			return nil, err
		}
	}
	// the volume itself references the root, so it can never be freed
	root := inode.MkInode(common.ROOTINUM, inode.KindDir)
	root.Nlink = 1
	if err := fs.IPut(root); err != nil {
		return nil, err
	}
	if err := d.Barrier(); err != nil {
		return nil, common.DeviceError("format", err)
	}
	return fs, nil
}

// Mount reads the superblock from block 0 of d and checks it against the
// device's actual geometry.
func Mount(d disk.Disk) (*FileSystem, error) {
	blk, err := d.Read(super.Block)
	if err != nil {
		return nil, common.DeviceError("mount: read superblock", err)
	}
	sb, err := super.Decode(blk)
	if err != nil {
		return nil, fmt.Errorf("mount: %w", err)
	}
	if err := checkGeometry(d, sb); err != nil {
		return nil, fmt.Errorf("mount: %w", err)
	}
	util.DPrintf(1, "Mount: %v\n", sb)
	return mkFileSystem(d, sb), nil
}

// MountFile opens the image at path, taking the block size from its
// superblock, and mounts it.
func MountFile(path string) (*FileSystem, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, common.DeviceError("mount "+path, err)
	}
	hdr := make([]byte, super.Size)
	_, err = f.ReadAt(hdr, 0)
	f.Close()
	if err != nil {
		return nil, common.DeviceError("mount "+path+": read superblock", err)
	}
	sb, err := super.Decode(hdr)
	if err != nil {
		return nil, fmt.Errorf("mount %s: %w", path, err)
	}
	if !super.Validate(sb) {
		return nil, fmt.Errorf("mount %s: %v: %w", path, sb, common.ErrInvalidLayout)
	}
	d, err := disk.OpenFileDisk(path, sb.BlockSize)
	if err != nil {
		return nil, common.DeviceError("mount "+path, err)
	}
	fs, err := Mount(d)
	if err != nil {
		return nil, errors.Join(err, d.Close())
	}
	return fs, nil
}

// Unmount flushes the device and releases the file system's hold on it.
// The caller owns the returned disk (and should Close it).
func (fs *FileSystem) Unmount() (disk.Disk, error) {
	if err := fs.checkMounted(); err != nil {
		return nil, err
	}
	d := fs.d
	fs.d = nil
	fs.alloc = nil
	if err := d.Barrier(); err != nil {
		return d, common.DeviceError("unmount", err)
	}
	util.DPrintf(1, "Unmount\n")
	return d, nil
}

func (fs *FileSystem) checkMounted() error {
	if fs.d == nil {
		return common.ErrNotMounted
	}
	return nil
}

func (fs *FileSystem) Super() super.SuperBlock {
	return fs.sb
}

// SupGet reads the superblock back from the device.
func (fs *FileSystem) SupGet() (*super.SuperBlock, error) {
	b, err := fs.BlockGet(super.Block)
	if err != nil {
		return nil, err
	}
	return super.Decode(b.Blk)
}

// SupPut rewrites the superblock. The new layout must be valid and match
// the device.
func (fs *FileSystem) SupPut(sb *super.SuperBlock) error {
	if err := fs.checkMounted(); err != nil {
		return err
	}
	if err := checkGeometry(fs.d, sb); err != nil {
		return err
	}
	b, err := fs.BlockGet(super.Block)
	if err != nil {
		return err
	}
	if err := b.Install(0, sb.Encode()); err != nil {
		return err
	}
	if err := fs.BlockPut(b); err != nil {
		return err
	}
	fs.sb = *sb
	fs.alloc = alloc.MkAlloc(fs.d, sb.BmapStart, sb.NBitmapBlocks(), sb.NDataBlocks)
	return nil
}
