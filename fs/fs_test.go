package fs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	goosedisk "github.com/tchajed/goose/machine/disk"

	"github.com/mit-pdos/go-blockfs/common"
	"github.com/mit-pdos/go-blockfs/disk"
	"github.com/mit-pdos/go-blockfs/inode"
	"github.com/mit-pdos/go-blockfs/super"
)

type FsSuite struct {
	suite.Suite
	d  disk.Disk
	fs *FileSystem
}

func (suite *FsSuite) SetupTest() {
	suite.d = disk.NewMemDisk(blockSize, 10)
	fs, err := Format(suite.d, smallSuper())
	suite.Require().NoError(err)
	suite.fs = fs
}

func TestFs(t *testing.T) {
	suite.Run(t, new(FsSuite))
}

func (suite *FsSuite) TestLayoutRoundTrip() {
	d, err := suite.fs.Unmount()
	suite.Require().NoError(err)
	suite.Equal(suite.d, d, "unmount hands back the same device")

	fs, err := Mount(d)
	suite.Require().NoError(err)
	suite.Equal(*smallSuper(), fs.Super())

	sb, err := fs.SupGet()
	suite.Require().NoError(err)
	suite.Equal(smallSuper(), sb)
}

func (suite *FsSuite) TestRootDirectory() {
	root, err := suite.fs.IGet(common.ROOTINUM)
	suite.Require().NoError(err)
	suite.Equal(inode.KindDir, root.Kind)
	suite.Equal(uint64(0), root.Size, "root starts empty")
	suite.Equal(uint64(0), root.NBlocks())

	for i := uint64(2); i < 8; i++ {
		ip, err := suite.fs.IGet(common.Inum(i))
		suite.Require().NoError(err)
		suite.Equal(inode.KindFree, ip.Kind, "inode %d", i)
	}
	ip, err := suite.fs.IGet(common.NULLINUM)
	suite.Require().NoError(err)
	suite.Equal(inode.KindFree, ip.Kind, "inode 0 is never used")

	suite.ErrorIs(suite.fs.IFree(common.ROOTINUM), common.ErrInodeNotFreeable)
}

func (suite *FsSuite) TestUnmountConsumes() {
	_, err := suite.fs.Unmount()
	suite.Require().NoError(err)

	_, err = suite.fs.Unmount()
	suite.ErrorIs(err, common.ErrNotMounted)
	_, err = suite.fs.BlockGet(0)
	suite.ErrorIs(err, common.ErrNotMounted)
	_, err = suite.fs.BlockAlloc()
	suite.ErrorIs(err, common.ErrNotMounted)
	_, err = suite.fs.IGet(common.ROOTINUM)
	suite.ErrorIs(err, common.ErrNotMounted)
	suite.ErrorIs(suite.fs.SupPut(smallSuper()), common.ErrNotMounted)
}

func (suite *FsSuite) TestMountMismatch() {
	d, err := suite.fs.Unmount()
	suite.Require().NoError(err)

	// same contents on a device with more blocks
	bigger := disk.NewMemDisk(blockSize, 11)
	for i := uint64(0); i < d.Size(); i++ {
		b, err := d.Read(i)
		suite.Require().NoError(err)
		suite.Require().NoError(bigger.Write(i, b))
	}
	_, err = Mount(bigger)
	suite.ErrorIs(err, common.ErrInvalidLayout)

	_, err = Mount(disk.NewMemDisk(blockSize, 10))
	suite.ErrorIs(err, common.ErrInvalidLayout, "blank device has no superblock")
}

func (suite *FsSuite) TestSupPut() {
	sb := smallSuper()
	sb.NDataBlocks = 3
	suite.Require().NoError(suite.fs.SupPut(sb))
	got, err := suite.fs.SupGet()
	suite.Require().NoError(err)
	suite.Equal(sb, got)
	suite.Equal(*sb, suite.fs.Super())

	bad := smallSuper()
	bad.InodeStart = 0
	suite.ErrorIs(suite.fs.SupPut(bad), common.ErrInvalidLayout)
	got, err = suite.fs.SupGet()
	suite.Require().NoError(err)
	suite.Equal(sb, got, "rejected superblock is not written")

	other := smallSuper()
	other.BlockSize = 2000
	suite.ErrorIs(suite.fs.SupPut(other), common.ErrInvalidLayout, "geometry must match the device")
}

func TestFormatZeroesEverything(t *testing.T) {
	sb := smallSuper()
	d := disk.NewMemDisk(sb.BlockSize, sb.NBlocks)
	junk := pattern(int(sb.BlockSize), 1)
	for i := uint64(0); i < sb.NBlocks; i++ {
		require.NoError(t, d.Write(i, junk))
	}
	_, err := Format(d, sb)
	require.NoError(t, err)

	zero := make([]byte, sb.BlockSize)
	for bn := sb.BmapStart; bn < sb.DataStart+sb.NDataBlocks; bn++ {
		b, err := d.Read(bn)
		require.NoError(t, err)
		assert.Equal(t, zero, b, "block %d", bn)
	}
	b, err := d.Read(sb.InodeStart + 1)
	require.NoError(t, err)
	assert.Equal(t, zero, b, "second inode block holds only free inodes")
}

func TestFormatInvalid(t *testing.T) {
	sb := smallSuper()
	sb.NDataBlocks = 6
	_, err := Format(disk.NewMemDisk(sb.BlockSize, sb.NBlocks), sb)
	assert.ErrorIs(t, err, common.ErrInvalidLayout)

	_, err = Format(disk.NewMemDisk(sb.BlockSize, 12), smallSuper())
	assert.ErrorIs(t, err, common.ErrInvalidLayout, "device geometry differs")

	path := filepath.Join(t.TempDir(), "img")
	_, err = Mkfs(path, sb)
	assert.ErrorIs(t, err, common.ErrInvalidLayout)
	assert.NoFileExists(t, path, "invalid layout is rejected before creating the image")
}

func TestMountMalformed(t *testing.T) {
	for _, tt := range []struct {
		name string
		sb   super.SuperBlock
	}{
		{"inode region wraps", super.SuperBlock{
			BlockSize: blockSize, NBlocks: 10, NInodes: 1<<64 - 1,
			InodeStart: 1, BmapStart: 1, DataStart: 2, NDataBlocks: 1,
		}},
		{"bits per block overflow", super.SuperBlock{
			BlockSize: 1 << 61, NBlocks: 10, NInodes: 8,
			InodeStart: 1, BmapStart: 2, DataStart: 3, NDataBlocks: 1,
		}},
		{"bitmap after data", super.SuperBlock{
			BlockSize: blockSize, NBlocks: 10, NInodes: 8,
			InodeStart: 1, BmapStart: 5, DataStart: 4, NDataBlocks: 4,
		}},
	} {
		t.Run(tt.name, func(t *testing.T) {
			d := disk.NewMemDisk(blockSize, 10)
			blk := make(disk.Block, blockSize)
			copy(blk, tt.sb.Encode())
			require.NoError(t, d.Write(super.Block, blk))

			_, err := Mount(d)
			assert.ErrorIs(t, err, common.ErrInvalidLayout)

			path := filepath.Join(t.TempDir(), "img")
			require.NoError(t, os.WriteFile(path, blk, 0644))
			_, err = MountFile(path)
			assert.ErrorIs(t, err, common.ErrInvalidLayout)
		})
	}
}

func TestMountFileReleasesImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "img")
	fs, err := Mkfs(path, smallSuper())
	require.NoError(t, err)
	d, err := fs.Unmount()
	require.NoError(t, err)
	require.NoError(t, d.Close())

	// one block longer than the superblock says
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0)
	require.NoError(t, err)
	_, err = f.Write(make([]byte, blockSize))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	_, err = MountFile(path)
	assert.ErrorIs(t, err, common.ErrInvalidLayout)

	fd, err := disk.OpenFileDisk(path, blockSize)
	require.NoError(t, err, "a failed mount closes the image")
	assert.Equal(t, uint64(11), fd.Size())
	require.NoError(t, fd.Close())
}

func TestMkfsMountFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "img")
	fs, err := Mkfs(path, smallSuper())
	require.NoError(t, err)

	n, err := fs.BlockAlloc()
	require.NoError(t, err)
	d, err := fs.Unmount()
	require.NoError(t, err)
	require.NoError(t, d.Close())

	fs, err = MountFile(path)
	require.NoError(t, err)
	assert.Equal(t, *smallSuper(), fs.Super())
	used, total, err := fs.BlockUsage()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), used, "allocation of %d survives remount", n)
	assert.Equal(t, uint64(4), total)

	_, err = MountFile(path)
	assert.ErrorIs(t, err, common.ErrDevice, "image is held exclusively")

	d, err = fs.Unmount()
	require.NoError(t, err)
	require.NoError(t, d.Close())
}

func TestGooseVolume(t *testing.T) {
	sb, err := super.MkLayout(goosedisk.BlockSize, 64, 32, 0)
	require.NoError(t, err)
	fs, err := Format(disk.FromGoose(goosedisk.NewMemDisk(64)), sb)
	require.NoError(t, err)

	root, err := fs.IGet(common.ROOTINUM)
	require.NoError(t, err)
	f, err := fs.Create(root, "hello", inode.KindFile)
	require.NoError(t, err)
	data := pattern(int(goosedisk.BlockSize)+10, 3)
	require.NoError(t, fs.IWrite(f, data, 0, uint64(len(data))))

	ip, err := fs.Namei("/hello")
	require.NoError(t, err)
	got := make([]byte, len(data))
	n, err := fs.IRead(ip, got, 0, uint64(len(data)))
	require.NoError(t, err)
	assert.Equal(t, uint64(len(data)), n)
	assert.Equal(t, data, got)
	assert.Equal(t, uint64(2), ip.NBlocks())
}
