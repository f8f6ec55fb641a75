package fs

import (
	"fmt"

	"github.com/mit-pdos/go-blockfs/addr"
	"github.com/mit-pdos/go-blockfs/common"
	"github.com/mit-pdos/go-blockfs/inode"
	"github.com/mit-pdos/go-blockfs/util"
)

func (fs *FileSystem) inum2addr(inum common.Inum) (addr.Addr, error) {
	if uint64(inum) >= fs.sb.NInodes {
		return addr.Addr{}, fmt.Errorf("inode %d of %d: %w", inum, fs.sb.NInodes, common.ErrIndexOutOfBounds)
	}
	return addr.MkRecordAddr(fs.sb.InodeStart, uint64(inum), common.INODESZ, fs.sb.BlockSize), nil
}

// IGet reads inode inum from the inode table.
func (fs *FileSystem) IGet(inum common.Inum) (*inode.Inode, error) {
	a, err := fs.inum2addr(inum)
	if err != nil {
		return nil, err
	}
	b, err := fs.BlockGet(a.Blkno)
	if err != nil {
		return nil, err
	}
	data, err := b.Slice(a.Byte(), common.INODESZ)
	if err != nil {
		return nil, err
	}
	return inode.Decode(inum, data)
}

// IPut writes ip back to the inode table.
func (fs *FileSystem) IPut(ip *inode.Inode) error {
	a, err := fs.inum2addr(ip.Inum)
	if err != nil {
		return err
	}
	b, err := fs.BlockGet(a.Blkno)
	if err != nil {
		return err
	}
	if err := b.Install(a.Byte(), ip.Encode()); err != nil {
		return err
	}
	return fs.BlockPut(b)
}

// refresh replaces the cached copy in ip with the inode on disk.
func (fs *FileSystem) refresh(ip *inode.Inode) error {
	cur, err := fs.IGet(ip.Inum)
	if err != nil {
		return err
	}
	*ip = *cur
	return nil
}

// IAlloc claims the lowest-numbered free inode for a new file or
// directory. Inode 0 is never handed out.
func (fs *FileSystem) IAlloc(kind inode.Kind) (common.Inum, error) {
	if kind == inode.KindFree {
		return common.NULLINUM, fmt.Errorf("alloc inode of kind %v: %w", kind, common.ErrRange)
	}
	for i := uint64(common.NULLINUM) + 1; i < fs.sb.NInodes; i++ {
		ip, err := fs.IGet(common.Inum(i))
		if err != nil {
			return common.NULLINUM, err
		}
		if ip.Kind != inode.KindFree {
			continue
		}
		ip = inode.MkInode(ip.Inum, kind)
		if err := fs.IPut(ip); err != nil {
			return common.NULLINUM, err
		}
		util.DPrintf(5, "IAlloc: %d %v\n", ip.Inum, kind)
		return ip.Inum, nil
	}
	return common.NULLINUM, fmt.Errorf("alloc inode: all %d in use: %w", fs.sb.NInodes, common.ErrAllocationExhausted)
}

// IFree releases inode inum and all its data. Only inodes no directory
// refers to (link count 0) can be freed.
func (fs *FileSystem) IFree(inum common.Inum) error {
	if inum == common.NULLINUM {
		return fmt.Errorf("free inode %d: %w", inum, common.ErrInodeNotFreeable)
	}
	ip, err := fs.IGet(inum)
	if err != nil {
		return err
	}
	if ip.Nlink != 0 {
		return fmt.Errorf("free inode %d with %d links: %w", inum, ip.Nlink, common.ErrInodeNotFreeable)
	}
	if err := fs.truncate(ip); err != nil {
		return err
	}
	ip.Kind = inode.KindFree
	util.DPrintf(5, "IFree: %d\n", inum)
	return fs.IPut(ip)
}

// ITrunc releases every data block of ip and sets its size to 0. ip is
// first reloaded from disk; the result is not written back, so callers
// that want to keep it must IPut ip.
func (fs *FileSystem) ITrunc(ip *inode.Inode) error {
	if err := fs.refresh(ip); err != nil {
		return err
	}
	return fs.truncate(ip)
}

func (fs *FileSystem) truncate(ip *inode.Inode) error {
	for i, bn := range ip.Direct {
		if bn == common.NULLBNUM {
			continue
		}
		n, err := fs.dataIndex(bn)
		if err != nil {
			return fmt.Errorf("truncate inode %d: %w", ip.Inum, err)
		}
		if err := fs.BlockFree(n); err != nil {
			return fmt.Errorf("truncate inode %d: %w", ip.Inum, err)
		}
		ip.Direct[i] = common.NULLBNUM
	}
	ip.Size = 0
	return nil
}
