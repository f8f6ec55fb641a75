// Package buf holds whole disk blocks in memory, tagged with their block
// number, and packs fixed-size records into them.
package buf

import (
	"fmt"

	"github.com/mit-pdos/go-blockfs/common"
	"github.com/mit-pdos/go-blockfs/disk"
	"github.com/mit-pdos/go-blockfs/util"
)

// A Buf is the in-memory copy of one disk block.
type Buf struct {
	Blkno common.Bnum
	Blk   disk.Block
	dirty bool // has this block been modified since it was loaded?
}

func MkBuf(blkno common.Bnum, blk disk.Block) *Buf {
	b := &Buf{
		Blkno: blkno,
		Blk:   blk,
		dirty: false,
	}
	return b
}

// MkZeroBuf returns an all-zero block destined for blkno.
func MkZeroBuf(blkno common.Bnum, sz uint64) *Buf {
	b := MkBuf(blkno, make(disk.Block, sz))
	b.dirty = true
	return b
}

// Load reads block blkno from d.
func Load(d disk.Disk, blkno common.Bnum) (*Buf, error) {
	blk, err := d.Read(blkno)
	if err != nil {
		return nil, err
	}
	return MkBuf(blkno, blk), nil
}

// Store writes buf back to its block on d if it has been modified.
func (buf *Buf) Store(d disk.Disk) error {
	if !buf.IsDirty() {
		return nil
	}
	util.DPrintf(10, "%d: store\n", buf.Blkno)
	err := d.Write(buf.Blkno, buf.Blk)
	if err != nil {
		return err
	}
	buf.dirty = false
	return nil
}

func (buf *Buf) Len() uint64 {
	return uint64(len(buf.Blk))
}

func (buf *Buf) check(off uint64, n uint64) error {
	if util.SumOverflows(off, n) || off+n > buf.Len() {
		return fmt.Errorf("block %d: %d bytes at %d: %w",
			buf.Blkno, n, off, common.ErrIndexOutOfBounds)
	}
	return nil
}

// Slice returns the n bytes at byte offset off, aliasing the block.
func (buf *Buf) Slice(off uint64, n uint64) ([]byte, error) {
	if err := buf.check(off, n); err != nil {
		return nil, err
	}
	return buf.Blk[off : off+n], nil
}

// Install copies data into the block at byte offset off.
func (buf *Buf) Install(off uint64, data []byte) error {
	if err := buf.check(off, uint64(len(data))); err != nil {
		return err
	}
	copy(buf.Blk[off:], data)
	buf.SetDirty()
	return nil
}

func (buf *Buf) IsDirty() bool {
	return buf.dirty
}

func (buf *Buf) SetDirty() {
	buf.dirty = true
}
