// Package super describes the layout of a volume: block 0 holds the
// superblock, followed by the inode region, the free-block bitmap and the
// data region, in that order.
package super

import (
	"fmt"
	"math"

	"github.com/tchajed/marshal"

	"github.com/mit-pdos/go-blockfs/common"
	"github.com/mit-pdos/go-blockfs/util"
)

const (
	Magic uint64 = 0x626c6f636b667331 // "blockfs1"

	// Size is the encoded size of a superblock, in bytes
	Size uint64 = 8 * 8

	// Block is where the superblock lives
	Block common.Bnum = 0

	// MaxBlockSize bounds BlockSize so that bit counts and byte offsets
	// of a valid volume fit in 64 bits.
	MaxBlockSize uint64 = 1 << 32
)

type SuperBlock struct {
	BlockSize   uint64 // bytes per block
	NBlocks     uint64 // total blocks on the device
	NInodes     uint64
	InodeStart  common.Bnum
	BmapStart   common.Bnum
	DataStart   common.Bnum
	NDataBlocks uint64
}

func (sb *SuperBlock) String() string {
	return fmt.Sprintf("bsize=%d nblocks=%d ninodes=%d inodes@%d bitmap@%d data@%d ndata=%d",
		sb.BlockSize, sb.NBlocks, sb.NInodes, sb.InodeStart, sb.BmapStart,
		sb.DataStart, sb.NDataBlocks)
}

func (sb SuperBlock) InodesPerBlock() uint64 {
	return sb.BlockSize / common.INODESZ
}

func (sb SuperBlock) DirentsPerBlock() uint64 {
	return sb.BlockSize / common.DIRENTSZ
}

// NBitBlock is the number of data blocks tracked by one bitmap block.
func (sb SuperBlock) NBitBlock() uint64 {
	return sb.BlockSize * 8
}

func (sb SuperBlock) NInodeBlocks() uint64 {
	return util.RoundUp(sb.NInodes, sb.InodesPerBlock())
}

func (sb SuperBlock) NBitmapBlocks() uint64 {
	return util.RoundUp(sb.NDataBlocks, sb.NBitBlock())
}

// MaxFileSize is the most bytes an inode's direct blocks can hold.
func (sb SuperBlock) MaxFileSize() uint64 {
	return common.NDIRECT * sb.BlockSize
}

// IsData reports whether blkno is in the data region.
func (sb SuperBlock) IsData(blkno common.Bnum) bool {
	return blkno >= sb.DataStart && blkno-sb.DataStart < sb.NDataBlocks
}

// sumsLE reports whether the sum of xs is at most limit, without
// overflowing.
func sumsLE(limit uint64, xs ...uint64) bool {
	var total uint64
	for _, x := range xs {
		if util.SumOverflows(total, x) {
			return false
		}
		total += x
	}
	return total <= limit
}

// Validate checks that the regions of sb are ordered, disjoint and fit on
// the device.
func Validate(sb *SuperBlock) bool {
	if sb.BlockSize < common.INODESZ || sb.BlockSize < common.DIRENTSZ ||
		sb.BlockSize < Size || sb.BlockSize > MaxBlockSize {
		return false
	}
	// the whole device must be addressable as a file offset
	if sb.NBlocks > math.MaxInt64/sb.BlockSize {
		return false
	}
	// inode 0 is never used and inode 1 is the root
	if sb.NInodes <= uint64(common.ROOTINUM) {
		return false
	}
	if sb.InodeStart != Block+1 {
		return false
	}
	ninodeblocks := sb.NInodeBlocks()
	nbitmapblocks := sb.NBitmapBlocks()
	if !sumsLE(sb.BmapStart, sb.InodeStart, ninodeblocks) {
		return false
	}
	if !sumsLE(sb.DataStart, sb.BmapStart, nbitmapblocks) {
		return false
	}
	// strictly ordered even when a region is empty
	if sb.BmapStart <= sb.InodeStart || sb.DataStart <= sb.BmapStart {
		return false
	}
	// the data region ends strictly before the last block
	if sb.NBlocks == 0 || !sumsLE(sb.NBlocks-1, sb.DataStart, sb.NDataBlocks) {
		return false
	}
	return sumsLE(sb.NBlocks, ninodeblocks, nbitmapblocks, sb.NDataBlocks)
}

func (sb SuperBlock) Encode() []byte {
	enc := marshal.NewEnc(Size)
	enc.PutInt(Magic)
	enc.PutInts([]uint64{
		sb.BlockSize,
		sb.NBlocks,
		sb.NInodes,
		sb.InodeStart,
		sb.BmapStart,
		sb.DataStart,
		sb.NDataBlocks,
	})
	return enc.Finish()
}

// Decode parses a superblock from the first Size bytes of data. It does
// not validate the result.
func Decode(data []byte) (*SuperBlock, error) {
	if uint64(len(data)) < Size {
		return nil, fmt.Errorf("superblock: %d bytes: %w", len(data), common.ErrInvalidLayout)
	}
	dec := marshal.NewDec(data[:Size])
	if m := dec.GetInt(); m != Magic {
		return nil, fmt.Errorf("superblock: bad magic %#x: %w", m, common.ErrInvalidLayout)
	}
	xs := dec.GetInts(7)
	return &SuperBlock{
		BlockSize:   xs[0],
		NBlocks:     xs[1],
		NInodes:     xs[2],
		InodeStart:  xs[3],
		BmapStart:   xs[4],
		DataStart:   xs[5],
		NDataBlocks: xs[6],
	}, nil
}

// MkLayout packs the regions for a device of nblocks blocks of blockSize
// bytes with ninodes inodes. If ndata is 0 the data region takes every
// block that is left.
func MkLayout(blockSize, nblocks, ninodes, ndata uint64) (*SuperBlock, error) {
	sb := &SuperBlock{
		BlockSize:   blockSize,
		NBlocks:     nblocks,
		NInodes:     ninodes,
		InodeStart:  Block + 1,
		NDataBlocks: ndata,
	}
	if blockSize < common.INODESZ || blockSize > MaxBlockSize {
		return nil, fmt.Errorf("block size %d: %w", blockSize, common.ErrInvalidLayout)
	}
	sb.BmapStart = sb.InodeStart + sb.NInodeBlocks()
	if ndata == 0 {
		// shrink until the bitmap needed for the data region fits
		nbitmap := uint64(1)
		for {
			used := sb.BmapStart + nbitmap + 1
			if used >= nblocks {
				return nil, fmt.Errorf("%d blocks leave no room for data: %w",
					nblocks, common.ErrInvalidLayout)
			}
			sb.NDataBlocks = nblocks - used
			if sb.NBitmapBlocks() <= nbitmap {
				break
			}
			nbitmap = sb.NBitmapBlocks()
		}
	}
	sb.DataStart = sb.BmapStart + sb.NBitmapBlocks()
	if !Validate(sb) {
		return nil, fmt.Errorf("layout %v: %w", sb, common.ErrInvalidLayout)
	}
	return sb, nil
}
