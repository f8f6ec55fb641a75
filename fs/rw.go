package fs

import (
	"fmt"

	"github.com/mit-pdos/go-blockfs/common"
	"github.com/mit-pdos/go-blockfs/inode"
	"github.com/mit-pdos/go-blockfs/util"
)

// IRead copies up to n bytes of ip's data starting at off into dst and
// returns how many it copied. Reading stops at the end of the file and at
// the end of dst; reading at exactly the end of the file returns 0.
func (fs *FileSystem) IRead(ip *inode.Inode, dst []byte, off uint64, n uint64) (uint64, error) {
	if off > ip.Size {
		return 0, fmt.Errorf("read inode %d at %d past size %d: %w", ip.Inum, off, ip.Size, common.ErrRange)
	}
	n = util.Min(n, ip.Size-off)
	n = util.Min(n, uint64(len(dst)))
	bsize := fs.sb.BlockSize
	blks := ip.Blocks()

	var done uint64
	for done < n {
		pos := off + done
		bi := pos / bsize
		if bi >= uint64(len(blks)) {
			break
		}
		b, err := fs.BlockGet(blks[bi])
		if err != nil {
			return done, err
		}
		boff := pos % bsize
		m := util.Min(bsize-boff, n-done)
		copy(dst[done:done+m], b.Blk[boff:boff+m])
		done += m
	}
	return done, nil
}

// IWrite writes the first n bytes of src into ip at offset off, which may
// be at most ip's size. The inode grows one data block at a time as
// needed, up to NDIRECT blocks. ip is reloaded from disk first and written
// back with its new size and block pointers before the data blocks are
// written.
func (fs *FileSystem) IWrite(ip *inode.Inode, src []byte, off uint64, n uint64) error {
	if err := fs.refresh(ip); err != nil {
		return err
	}
	if off > ip.Size {
		return fmt.Errorf("write inode %d at %d past size %d: %w", ip.Inum, off, ip.Size, common.ErrRange)
	}
	if n > uint64(len(src)) {
		return fmt.Errorf("write inode %d: %d bytes from a %d-byte buffer: %w",
			ip.Inum, n, len(src), common.ErrRange)
	}
	if n == 0 {
		return nil
	}
	if util.SumOverflows(off, n) || off+n > fs.sb.MaxFileSize() {
		return fmt.Errorf("write inode %d: %d bytes at %d exceeds %d: inode full: %w",
			ip.Inum, n, off, fs.sb.MaxFileSize(), common.ErrAllocationExhausted)
	}
	end := off + n
	bsize := fs.sb.BlockSize

	for ip.NBlocks()*bsize < end {
		slot, ok := ip.FreeSlot()
		if !ok {
			return fmt.Errorf("write inode %d: inode full: %w", ip.Inum, common.ErrAllocationExhausted)
		}
		i, err := fs.BlockAlloc()
		if err != nil {
			// keep the blocks we did get accounted to the inode
			if perr := fs.IPut(ip); perr != nil {
				return perr
			}
			return err
		}
		ip.Direct[slot] = fs.sb.DataStart + i
	}
	ip.Size = util.Max(ip.Size, end)
	if err := fs.IPut(ip); err != nil {
		return err
	}

	blks := ip.Blocks()
	for pos := off; pos < end; {
		b, err := fs.BlockGet(blks[pos/bsize])
		if err != nil {
			return err
		}
		boff := pos % bsize
		m := util.Min(bsize-boff, end-pos)
		if err := b.Install(boff, src[pos-off:pos-off+m]); err != nil {
			return err
		}
		if err := fs.BlockPut(b); err != nil {
			return err
		}
		pos += m
	}
	return nil
}
