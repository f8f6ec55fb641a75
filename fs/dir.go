package fs

import (
	"fmt"

	"github.com/mit-pdos/go-blockfs/common"
	"github.com/mit-pdos/go-blockfs/dirent"
	"github.com/mit-pdos/go-blockfs/inode"
	"github.com/mit-pdos/go-blockfs/util"
)

// A directory is an array of dirent.DirEnt records, DirentsPerBlock() to a
// data block. Entry slots are numbered through the direct pointers in
// order, so slot s lives in pointer s/DirentsPerBlock(); offsets handed to
// callers are s*DIRENTSZ. The directory's size is the offset just past the
// highest slot ever used.

// Entry is a populated directory slot.
type Entry struct {
	Name string
	Inum common.Inum
	Off  uint64
}

func (fs *FileSystem) checkDir(dip *inode.Inode, name string) error {
	if !dip.IsDir() {
		return fmt.Errorf("inode %d is a %v: %w", dip.Inum, dip.Kind, common.ErrNotADirectory)
	}
	if !dirent.ValidName(name) {
		return fmt.Errorf("%q: %w", name, common.ErrInvalidName)
	}
	return nil
}

// scanDir calls f on every slot of dip, used or not, until f returns
// done or an error.
func (fs *FileSystem) scanDir(dip *inode.Inode,
	f func(de *dirent.DirEnt, off uint64) (done bool, err error)) error {
	perBlock := fs.sb.DirentsPerBlock()
	for i, bn := range dip.Direct {
		if bn == common.NULLBNUM {
			continue
		}
		b, err := fs.BlockGet(bn)
		if err != nil {
			return err
		}
		for j := uint64(0); j < perBlock; j++ {
			data, err := b.Slice(j*common.DIRENTSZ, common.DIRENTSZ)
			if err != nil {
				return err
			}
			de, err := dirent.Decode(data)
			if err != nil {
				return err
			}
			off := (uint64(i)*perBlock + j) * common.DIRENTSZ
			done, err := f(de, off)
			if done || err != nil {
				return err
			}
		}
	}
	return nil
}

// DirLookup finds name in directory dip and returns the inode it names and
// the offset of its entry.
func (fs *FileSystem) DirLookup(dip *inode.Inode, name string) (*inode.Inode, uint64, error) {
	if err := fs.checkDir(dip, name); err != nil {
		return nil, 0, err
	}
	var found *dirent.DirEnt
	var foundOff uint64
	err := fs.scanDir(dip, func(de *dirent.DirEnt, off uint64) (bool, error) {
		if de.IsFree() || de.NameString() != name {
			return false, nil
		}
		found, foundOff = de, off
		return true, nil
	})
	if err != nil {
		return nil, 0, err
	}
	if found == nil {
		return nil, 0, fmt.Errorf("lookup %q in %d: %w", name, dip.Inum, common.ErrEntryNotFound)
	}
	ip, err := fs.IGet(found.Inum)
	if err != nil {
		return nil, 0, err
	}
	return ip, foundOff, nil
}

// ReadDir lists the populated entries of dip in slot order.
func (fs *FileSystem) ReadDir(dip *inode.Inode) ([]Entry, error) {
	if !dip.IsDir() {
		return nil, fmt.Errorf("inode %d is a %v: %w", dip.Inum, dip.Kind, common.ErrNotADirectory)
	}
	var ents []Entry
	err := fs.scanDir(dip, func(de *dirent.DirEnt, off uint64) (bool, error) {
		if !de.IsFree() {
			ents = append(ents, Entry{Name: de.NameString(), Inum: de.Inum, Off: off})
		}
		return false, nil
	})
	return ents, err
}

// DirLink adds an entry name -> inum to directory dip and returns the
// entry's offset. The target's link count goes up first, unless the
// directory is linking to itself. dip is reloaded from disk before it is
// changed.
func (fs *FileSystem) DirLink(dip *inode.Inode, name string, inum common.Inum) (uint64, error) {
	if err := fs.refresh(dip); err != nil {
		return 0, err
	}
	if err := fs.checkDir(dip, name); err != nil {
		return 0, err
	}
	if inum != dip.Inum {
		ip, err := fs.IGet(inum)
		if err != nil {
			return 0, err
		}
		if ip.Kind == inode.KindFree {
			return 0, fmt.Errorf("link %q to free inode %d: %w", name, inum, common.ErrNotADirectory)
		}
		ip.Nlink++
		if err := fs.IPut(ip); err != nil {
			return 0, err
		}
	}
	de, err := dirent.New(inum, name)
	if err != nil {
		return 0, err
	}
	return fs.insert(dip, de)
}

// insert writes de into the first unused slot of dip, first growing dip
// by a block if its size leaves no room for another entry.
func (fs *FileSystem) insert(dip *inode.Inode, de *dirent.DirEnt) (uint64, error) {
	capacity := dip.NBlocks() * fs.sb.DirentsPerBlock()
	if dip.Size/common.DIRENTSZ+1 > capacity {
		slot, ok := dip.FreeSlot()
		if !ok {
			return 0, fmt.Errorf("directory %d has %d entries: %w",
				dip.Inum, capacity, common.ErrAllocationExhausted)
		}
		n, err := fs.BlockAlloc()
		if err != nil {
			return 0, err
		}
		dip.Direct[slot] = fs.sb.DataStart + n
		util.DPrintf(5, "dir %d: grow to %d blocks\n", dip.Inum, dip.NBlocks())
	}

	off, ok, err := fs.freeSlot(dip)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("directory %d: no free slot: %w", dip.Inum, common.ErrAllocationExhausted)
	}
	perBlock := fs.sb.DirentsPerBlock()
	slot := off / common.DIRENTSZ
	b, err := fs.BlockGet(dip.Direct[slot/perBlock])
	if err != nil {
		return 0, err
	}
	if err := b.Install((slot%perBlock)*common.DIRENTSZ, de.Encode()); err != nil {
		return 0, err
	}
	if err := fs.BlockPut(b); err != nil {
		return 0, err
	}
	dip.Size = util.Max(dip.Size, off+common.DIRENTSZ)
	if err := fs.IPut(dip); err != nil {
		return 0, err
	}
	return off, nil
}

func (fs *FileSystem) freeSlot(dip *inode.Inode) (uint64, bool, error) {
	var free uint64
	var ok bool
	err := fs.scanDir(dip, func(de *dirent.DirEnt, off uint64) (bool, error) {
		if de.IsFree() {
			free, ok = off, true
		}
		return ok, nil
	})
	return free, ok, err
}
