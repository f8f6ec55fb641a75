package fs

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mit-pdos/go-blockfs/disk"
	"github.com/mit-pdos/go-blockfs/inode"
	"github.com/mit-pdos/go-blockfs/super"
)

const blockSize uint64 = 1000

// smallSuper is a 10-block volume with 8 inodes and 4 data blocks.
func smallSuper() *super.SuperBlock {
	return &super.SuperBlock{
		BlockSize:   blockSize,
		NBlocks:     10,
		NInodes:     8,
		InodeStart:  1,
		BmapStart:   3,
		DataStart:   4,
		NDataBlocks: 4,
	}
}

func mkFs(t *testing.T, sb *super.SuperBlock) (*FileSystem, disk.Disk) {
	t.Helper()
	d := disk.NewMemDisk(sb.BlockSize, sb.NBlocks)
	fs, err := Format(d, sb)
	require.NoError(t, err)
	return fs, d
}

// mkBigFs has room for a directory at its maximum size.
func mkBigFs(t *testing.T) *FileSystem {
	t.Helper()
	sb, err := super.MkLayout(blockSize, 40, 16, 0)
	require.NoError(t, err)
	fs, _ := mkFs(t, sb)
	return fs
}

func allocInode(t *testing.T, fs *FileSystem, kind inode.Kind) *inode.Inode {
	t.Helper()
	inum, err := fs.IAlloc(kind)
	require.NoError(t, err)
	ip, err := fs.IGet(inum)
	require.NoError(t, err)
	return ip
}

func pattern(n int, seed byte) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = seed + byte(i%251)
	}
	return data
}
