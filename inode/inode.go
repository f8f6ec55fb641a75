// Package inode defines inode records and their on-disk encoding.
//
// An inode is stored as a fixed common.INODESZ-byte record in the inode
// region. Its data lives in at most common.NDIRECT data blocks, named by
// direct pointers holding absolute block numbers; a zero pointer is an
// unused slot.
package inode

import (
	"fmt"

	"github.com/tchajed/marshal"

	"github.com/mit-pdos/go-blockfs/common"
)

type Kind uint32

const (
	KindFree Kind = 0
	KindFile Kind = 1
	KindDir  Kind = 2
)

func (k Kind) String() string {
	switch k {
	case KindFree:
		return "free"
	case KindFile:
		return "file"
	case KindDir:
		return "dir"
	}
	return fmt.Sprintf("kind(%d)", uint32(k))
}

// encoded size without padding: kind, nlink, size, direct pointers
const encodedSz = 4 + 4 + 8 + 8*common.NDIRECT

// fails to compile if the record outgrows INODESZ
var _ [common.INODESZ - encodedSz]byte

// Inode is an in-memory copy of inode Inum. Changes are local until the
// inode is written back.
type Inode struct {
	Inum   common.Inum
	Kind   Kind
	Nlink  uint32
	Size   uint64
	Direct [common.NDIRECT]common.Bnum
}

func MkInode(inum common.Inum, kind Kind) *Inode {
	return &Inode{Inum: inum, Kind: kind}
}

func (ip *Inode) String() string {
	return fmt.Sprintf("inode %d: %v nlink %d size %d blocks %v",
		ip.Inum, ip.Kind, ip.Nlink, ip.Size, ip.Direct)
}

func (ip *Inode) IsDir() bool {
	return ip.Kind == KindDir
}

// NBlocks is the number of populated direct pointers.
func (ip *Inode) NBlocks() uint64 {
	var n uint64
	for _, bn := range ip.Direct {
		if bn != common.NULLBNUM {
			n++
		}
	}
	return n
}

// Blocks returns the populated direct pointers in slot order.
func (ip *Inode) Blocks() []common.Bnum {
	blks := make([]common.Bnum, 0, common.NDIRECT)
	for _, bn := range ip.Direct {
		if bn != common.NULLBNUM {
			blks = append(blks, bn)
		}
	}
	return blks
}

// FreeSlot returns the first unused direct pointer slot.
func (ip *Inode) FreeSlot() (uint64, bool) {
	for i, bn := range ip.Direct {
		if bn == common.NULLBNUM {
			return uint64(i), true
		}
	}
	return 0, false
}

func (ip *Inode) Encode() []byte {
	enc := marshal.NewEnc(common.INODESZ)
	enc.PutInt32(uint32(ip.Kind))
	enc.PutInt32(ip.Nlink)
	enc.PutInt(ip.Size)
	enc.PutInts(ip.Direct[:])
	return enc.Finish()
}

// Decode parses the record of inode inum from data.
func Decode(inum common.Inum, data []byte) (*Inode, error) {
	if uint64(len(data)) < encodedSz {
		return nil, fmt.Errorf("inode %d: short record (%d bytes): %w",
			inum, len(data), common.ErrIndexOutOfBounds)
	}
	dec := marshal.NewDec(data)
	ip := &Inode{Inum: inum}
	ip.Kind = Kind(dec.GetInt32())
	ip.Nlink = dec.GetInt32()
	ip.Size = dec.GetInt()
	copy(ip.Direct[:], dec.GetInts(common.NDIRECT))
	return ip, nil
}
