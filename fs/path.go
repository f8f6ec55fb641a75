package fs

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mit-pdos/go-blockfs/common"
	"github.com/mit-pdos/go-blockfs/inode"
)

func splitPath(path string) []string {
	return strings.FieldsFunc(path, func(r rune) bool { return r == '/' })
}

// Namei resolves a /-separated path, relative to the root directory, to
// its inode. Empty components are ignored, so "" and "/" name the root.
// "." and ".." are ordinary entries: directories made by Create have them,
// but the root does not, so "/.." does not resolve.
func (fs *FileSystem) Namei(path string) (*inode.Inode, error) {
	ip, err := fs.IGet(common.ROOTINUM)
	if err != nil {
		return nil, err
	}
	for _, name := range splitPath(path) {
		ip, _, err = fs.DirLookup(ip, name)
		if err != nil {
			return nil, fmt.Errorf("namei %s: %w", path, err)
		}
	}
	return ip, nil
}

// NameiParent resolves everything but the last component of path and
// returns the parent directory and that last name.
func (fs *FileSystem) NameiParent(path string) (*inode.Inode, string, error) {
	names := splitPath(path)
	if len(names) == 0 {
		return nil, "", fmt.Errorf("namei %q: no last component: %w", path, common.ErrInvalidName)
	}
	dip, err := fs.Namei(strings.Join(names[:len(names)-1], "/"))
	if err != nil {
		return nil, "", err
	}
	return dip, names[len(names)-1], nil
}

// Create allocates a new inode of the given kind and links it into dip as
// name. A new directory also gets "." and ".." entries.
func (fs *FileSystem) Create(dip *inode.Inode, name string, kind inode.Kind) (*inode.Inode, error) {
	_, _, err := fs.DirLookup(dip, name)
	if err == nil {
		return nil, fmt.Errorf("create %q in %d: %w", name, dip.Inum, common.ErrExists)
	}
	if !errors.Is(err, common.ErrEntryNotFound) {
		return nil, err
	}
	inum, err := fs.IAlloc(kind)
	if err != nil {
		return nil, err
	}
	if _, err := fs.DirLink(dip, name, inum); err != nil {
		return nil, errors.Join(err, fs.release(inum))
	}
	ip, err := fs.IGet(inum)
	if err != nil {
		return nil, err
	}
	if kind == inode.KindDir {
		if _, err := fs.DirLink(ip, ".", inum); err != nil {
			return nil, err
		}
		if _, err := fs.DirLink(ip, "..", dip.Inum); err != nil {
			return nil, err
		}
		if err := fs.refresh(dip); err != nil {
			return nil, err
		}
	}
	return ip, nil
}

// release frees an inode that Create allocated but could not link. A
// failed DirLink may already have counted the link.
func (fs *FileSystem) release(inum common.Inum) error {
	ip, err := fs.IGet(inum)
	if err != nil {
		return err
	}
	ip.Nlink = 0
	if err := fs.IPut(ip); err != nil {
		return err
	}
	return fs.IFree(inum)
}
