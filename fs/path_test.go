package fs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mit-pdos/go-blockfs/common"
	"github.com/mit-pdos/go-blockfs/inode"
)

func TestCreate(t *testing.T) {
	fs := mkBigFs(t)
	root, err := fs.Namei("/")
	require.NoError(t, err)
	assert.Equal(t, common.ROOTINUM, root.Inum)

	dir, err := fs.Create(root, "docs", inode.KindDir)
	require.NoError(t, err)
	assert.Equal(t, inode.KindDir, dir.Kind)
	assert.Equal(t, uint32(1), dir.Nlink)
	assert.Equal(t, uint32(2), root.Nlink, "the new directory's .. refers to root")

	ents, err := fs.ReadDir(dir)
	require.NoError(t, err)
	assert.Equal(t, []Entry{
		{Name: ".", Inum: dir.Inum, Off: 0},
		{Name: "..", Inum: common.ROOTINUM, Off: common.DIRENTSZ},
	}, ents)

	f, err := fs.Create(dir, "a.txt", inode.KindFile)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), f.Nlink)
	require.NoError(t, fs.IWrite(f, []byte("data"), 0, 4))

	_, err = fs.Create(dir, "a.txt", inode.KindFile)
	assert.ErrorIs(t, err, common.ErrExists)
	_, err = fs.Create(f, "b", inode.KindFile)
	assert.ErrorIs(t, err, common.ErrNotADirectory)
	_, err = fs.Create(dir, "bad name", inode.KindFile)
	assert.ErrorIs(t, err, common.ErrInvalidName)
}

func TestNamei(t *testing.T) {
	fs := mkBigFs(t)
	root, err := fs.IGet(common.ROOTINUM)
	require.NoError(t, err)
	a, err := fs.Create(root, "a", inode.KindDir)
	require.NoError(t, err)
	b, err := fs.Create(a, "b", inode.KindFile)
	require.NoError(t, err)

	for _, path := range []string{"a/b", "/a/b", "//a//b/", "/a/./b", "/a/../a/b"} {
		ip, err := fs.Namei(path)
		require.NoError(t, err, path)
		assert.Equal(t, b.Inum, ip.Inum, path)
	}
	ip, err := fs.Namei("")
	require.NoError(t, err)
	assert.Equal(t, common.ROOTINUM, ip.Inum)

	_, err = fs.Namei("/a/c")
	assert.ErrorIs(t, err, common.ErrEntryNotFound)
	_, err = fs.Namei("/a/b/c")
	assert.ErrorIs(t, err, common.ErrNotADirectory)

	dip, name, err := fs.NameiParent("/a/new")
	require.NoError(t, err)
	assert.Equal(t, a.Inum, dip.Inum)
	assert.Equal(t, "new", name)

	// only directories made by Create have . and ..
	ip, err = fs.Namei("/a/..")
	require.NoError(t, err)
	assert.Equal(t, common.ROOTINUM, ip.Inum)
	_, err = fs.Namei("/..")
	assert.ErrorIs(t, err, common.ErrEntryNotFound)
	_, err = fs.Namei("/.")
	assert.ErrorIs(t, err, common.ErrEntryNotFound)

	_, _, err = fs.NameiParent("/")
	assert.ErrorIs(t, err, common.ErrInvalidName)
	_, _, err = fs.NameiParent("/x/new")
	assert.ErrorIs(t, err, common.ErrEntryNotFound)
}

func TestCreateReleasesInodeOnFailure(t *testing.T) {
	fs, _ := mkFs(t, smallSuper())
	root, err := fs.IGet(common.ROOTINUM)
	require.NoError(t, err)
	for i := 0; i < 4; i++ {
		_, err := fs.BlockAlloc()
		require.NoError(t, err)
	}

	_, err = fs.Create(root, "a", inode.KindFile)
	assert.ErrorIs(t, err, common.ErrAllocationExhausted, "root has no block for the entry")

	ip, err := fs.IGet(2)
	require.NoError(t, err)
	assert.Equal(t, inode.KindFree, ip.Kind, "inode is returned")
	assert.Equal(t, uint32(0), ip.Nlink)
	inum, err := fs.IAlloc(inode.KindFile)
	require.NoError(t, err)
	assert.Equal(t, common.Inum(2), inum)

	_, _, err = fs.DirLookup(root, "a")
	assert.ErrorIs(t, err, common.ErrEntryNotFound)
}
