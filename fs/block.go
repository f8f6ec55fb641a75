package fs

import (
	"fmt"

	"github.com/mit-pdos/go-blockfs/buf"
	"github.com/mit-pdos/go-blockfs/common"
)

func (fs *FileSystem) checkBlock(blkno common.Bnum) error {
	if blkno >= fs.sb.NBlocks {
		return fmt.Errorf("block %d of %d: %w", blkno, fs.sb.NBlocks, common.ErrIndexOutOfBounds)
	}
	return nil
}

func (fs *FileSystem) checkData(i uint64) error {
	if i >= fs.sb.NDataBlocks {
		return fmt.Errorf("data block %d of %d: %w", i, fs.sb.NDataBlocks, common.ErrIndexOutOfBounds)
	}
	return nil
}

// BlockGet reads absolute block blkno.
func (fs *FileSystem) BlockGet(blkno common.Bnum) (*buf.Buf, error) {
	if err := fs.checkMounted(); err != nil {
		return nil, err
	}
	if err := fs.checkBlock(blkno); err != nil {
		return nil, err
	}
	b, err := buf.Load(fs.d, blkno)
	if err != nil {
		return nil, common.DeviceError(fmt.Sprintf("read block %d", blkno), err)
	}
	return b, nil
}

// BlockPut writes b to its block.
func (fs *FileSystem) BlockPut(b *buf.Buf) error {
	if err := fs.checkMounted(); err != nil {
		return err
	}
	if err := fs.checkBlock(b.Blkno); err != nil {
		return err
	}
	if err := b.Store(fs.d); err != nil {
		return common.DeviceError(fmt.Sprintf("write block %d", b.Blkno), err)
	}
	return nil
}

// BlockZero overwrites data block i with zeroes.
func (fs *FileSystem) BlockZero(i uint64) error {
	if err := fs.checkData(i); err != nil {
		return err
	}
	return fs.BlockPut(buf.MkZeroBuf(fs.sb.DataStart+i, fs.sb.BlockSize))
}

// BlockAlloc claims the lowest-numbered free data block, zeroes it and
// returns its index within the data region.
func (fs *FileSystem) BlockAlloc() (uint64, error) {
	if err := fs.checkMounted(); err != nil {
		return 0, err
	}
	i, err := fs.alloc.AllocNum()
	if err != nil {
		return 0, err
	}
	if err := fs.BlockZero(i); err != nil {
		return 0, err
	}
	return i, nil
}

// BlockFree releases data block i. It must currently be allocated.
func (fs *FileSystem) BlockFree(i uint64) error {
	if err := fs.checkMounted(); err != nil {
		return err
	}
	if err := fs.checkData(i); err != nil {
		return err
	}
	return fs.alloc.FreeNum(i)
}

// BlockUsage reports how many data blocks are allocated, out of how many.
func (fs *FileSystem) BlockUsage() (used uint64, total uint64, err error) {
	if err := fs.checkMounted(); err != nil {
		return 0, 0, err
	}
	used, err = fs.alloc.NumUsed()
	return used, fs.sb.NDataBlocks, err
}

// dataIndex converts a direct pointer to a data region index.
func (fs *FileSystem) dataIndex(blkno common.Bnum) (uint64, error) {
	if !fs.sb.IsData(blkno) {
		return 0, fmt.Errorf("block %d is not a data block: %w", blkno, common.ErrIndexOutOfBounds)
	}
	return blkno - fs.sb.DataStart, nil
}
