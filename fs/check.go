package fs

import (
	"fmt"

	"github.com/mit-pdos/go-blockfs/common"
	"github.com/mit-pdos/go-blockfs/inode"
)

// Check cross-checks the inode table against the free-block bitmap. It
// reports pointers outside the data region, blocks referenced by more
// than one inode or marked free in the bitmap, and allocated blocks that
// no inode refers to. The returned error is for failures reading the
// volume, not for what Check finds.
func (fs *FileSystem) Check() ([]string, error) {
	if err := fs.checkMounted(); err != nil {
		return nil, err
	}
	var problems []string
	owner := make(map[common.Bnum]common.Inum)
	var referenced uint64
	for i := uint64(common.ROOTINUM); i < fs.sb.NInodes; i++ {
		ip, err := fs.IGet(common.Inum(i))
		if err != nil {
			return nil, err
		}
		if ip.Kind == inode.KindFree {
			continue
		}
		for _, bn := range ip.Blocks() {
			n, err := fs.dataIndex(bn)
			if err != nil {
				problems = append(problems, fmt.Sprintf("inode %d: block %d is not a data block", ip.Inum, bn))
				continue
			}
			if o, ok := owner[bn]; ok {
				problems = append(problems, fmt.Sprintf("block %d is shared by inodes %d and %d", bn, o, ip.Inum))
				continue
			}
			owner[bn] = ip.Inum
			used, err := fs.alloc.IsUsed(n)
			if err != nil {
				return nil, err
			}
			if !used {
				problems = append(problems, fmt.Sprintf("inode %d: block %d is marked free", ip.Inum, bn))
				continue
			}
			referenced++
		}
	}
	used, err := fs.alloc.NumUsed()
	if err != nil {
		return nil, err
	}
	if used > referenced {
		problems = append(problems, fmt.Sprintf("%d allocated blocks belong to no inode", used-referenced))
	}
	return problems, nil
}
