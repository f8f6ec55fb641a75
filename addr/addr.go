package addr

import (
	"github.com/mit-pdos/go-blockfs/common"
)

// Addr identifies the start of an on-disk object.
//
// Blkno is the block number containing the object, and Off is the location of
// the object within the block (expressed as a bit offset). The size of the
// object is determined by the context in which Addr is used: a single bit
// in the bitmap, or a fixed-size record in the inode region.
type Addr struct {
	Blkno common.Bnum
	Off   uint64 // offset in bits
}

// Byte is the index of the byte holding the start of the object.
func (a Addr) Byte() uint64 {
	return a.Off / 8
}

// Bit is the position of the object's first bit within its byte, low
// order first.
func (a Addr) Bit() uint64 {
	return a.Off % 8
}

func MkAddr(blkno common.Bnum, off uint64) Addr {
	return Addr{Blkno: blkno, Off: off}
}

// MkBitAddr locates bit n of a bitmap that starts at block start and is
// packed into blocks of blockSize bytes.
func MkBitAddr(start common.Bnum, n uint64, blockSize uint64) Addr {
	nbitblock := blockSize * 8
	bit := n % nbitblock
	i := n / nbitblock
	return MkAddr(start+common.Bnum(i), bit)
}

// MkRecordAddr locates record n of a table of recsz-byte records that
// starts at block start. Records never straddle blocks.
func MkRecordAddr(start common.Bnum, n uint64, recsz uint64, blockSize uint64) Addr {
	perBlock := blockSize / recsz
	return MkAddr(start+common.Bnum(n/perBlock), (n%perBlock)*recsz*8)
}
