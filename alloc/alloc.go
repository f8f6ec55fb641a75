package alloc

import (
	"fmt"
	"math/bits"

	"github.com/mit-pdos/go-blockfs/addr"
	"github.com/mit-pdos/go-blockfs/buf"
	"github.com/mit-pdos/go-blockfs/common"
	"github.com/mit-pdos/go-blockfs/disk"
	"github.com/mit-pdos/go-blockfs/util"
)

// Alloc uses an on-disk bit map to allocate and free numbers 0 through
// max-1. Bit 0 of byte 0 of the first bitmap block corresponds to number 0,
// bit 1 to 1, and so on; a set bit means the number is in use. Bits at or
// past max exist only to pad out the last bitmap block and are never
// handed out.
type Alloc struct {
	d     disk.Disk
	start common.Bnum // first bitmap block
	len   uint64      // number of bitmap blocks
	max   uint64
}

func MkAlloc(d disk.Disk, start common.Bnum, len uint64, max uint64) *Alloc {
	a := &Alloc{
		d:     d,
		start: start,
		len:   len,
		max:   max,
	}
	return a
}

func (a *Alloc) Max() uint64 {
	return a.max
}

func (a *Alloc) load(blkno common.Bnum) (*buf.Buf, error) {
	b, err := buf.Load(a.d, blkno)
	if err != nil {
		return nil, common.DeviceError(fmt.Sprintf("read bitmap block %d", blkno), err)
	}
	return b, nil
}

func (a *Alloc) store(b *buf.Buf) error {
	if err := b.Store(a.d); err != nil {
		return common.DeviceError(fmt.Sprintf("write bitmap block %d", b.Blkno), err)
	}
	return nil
}

// lockBit loads the bitmap block holding bit n.
func (a *Alloc) lockBit(n uint64) (*buf.Buf, addr.Addr, error) {
	if n >= a.max {
		return nil, addr.Addr{}, fmt.Errorf("bit %d of %d: %w", n, a.max, common.ErrIndexOutOfBounds)
	}
	ad := addr.MkBitAddr(a.start, n, a.d.BlockSize())
	b, err := a.load(ad.Blkno)
	if err != nil {
		return nil, ad, err
	}
	return b, ad, nil
}

// firstZero returns the lowest clear bit of byt, or 8 if it is full.
func firstZero(byt byte) uint64 {
	return uint64(bits.TrailingZeros8(^byt))
}

// AllocNum marks the lowest free number as used and returns it.
func (a *Alloc) AllocNum() (uint64, error) {
	nbitblock := a.d.BlockSize() * 8
	for i := uint64(0); i < a.len; i++ {
		b, err := a.load(a.start + i)
		if err != nil {
			return 0, err
		}
		for j, byt := range b.Blk {
			if byt == 0xFF {
				continue
			}
			num := i*nbitblock + uint64(j)*8 + firstZero(byt)
			if num >= a.max {
				// every later candidate is larger still
				return 0, fmt.Errorf("alloc: all %d in use: %w", a.max, common.ErrAllocationExhausted)
			}
			b.Blk[j] = byt | (1 << firstZero(byt))
			b.SetDirty()
			if err := a.store(b); err != nil {
				return 0, err
			}
			util.DPrintf(5, "AllocNum: %d\n", num)
			return num, nil
		}
	}
	return 0, fmt.Errorf("alloc: all %d in use: %w", a.max, common.ErrAllocationExhausted)
}

// FreeNum marks num as free again. Freeing a number that is not in use is
// an error.
func (a *Alloc) FreeNum(num uint64) error {
	b, ad, err := a.lockBit(num)
	if err != nil {
		return err
	}
	byt := b.Blk[ad.Byte()]
	if byt&(1<<ad.Bit()) == 0 {
		return fmt.Errorf("free %d: %w", num, common.ErrDoubleFree)
	}
	b.Blk[ad.Byte()] = byt & ^(1 << ad.Bit())
	b.SetDirty()
	util.DPrintf(5, "FreeNum: %d\n", num)
	return a.store(b)
}

// IsUsed reports whether num is currently allocated.
func (a *Alloc) IsUsed(num uint64) (bool, error) {
	b, ad, err := a.lockBit(num)
	if err != nil {
		return false, err
	}
	return b.Blk[ad.Byte()]&(1<<ad.Bit()) != 0, nil
}

// NumUsed counts the numbers currently in use.
func (a *Alloc) NumUsed() (uint64, error) {
	var n uint64
	for i := uint64(0); i < a.len; i++ {
		b, err := a.load(a.start + i)
		if err != nil {
			return 0, err
		}
		for _, byt := range b.Blk {
			n += uint64(bits.OnesCount8(byt))
		}
	}
	return n, nil
}
