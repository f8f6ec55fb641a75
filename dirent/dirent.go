// Package dirent encodes directory entries: fixed-size (inode number,
// name) records packed into a directory's data blocks.
package dirent

import (
	"bytes"
	"fmt"

	"github.com/tchajed/marshal"

	"github.com/mit-pdos/go-blockfs/common"
)

// MaxNameLen is the longest name that fits in an entry. A full-length name
// is stored without a terminating NUL.
const MaxNameLen = common.DIRNAMESZ

type DirEnt struct {
	Inum common.Inum // NULLINUM marks an unused slot
	Name [common.DIRNAMESZ]byte
}

func validChar(c byte) bool {
	return c == '.' ||
		('a' <= c && c <= 'z') ||
		('A' <= c && c <= 'Z') ||
		('0' <= c && c <= '9')
}

// ValidName reports whether name may be stored in a directory: 1 to
// MaxNameLen ASCII letters, digits and dots.
func ValidName(name string) bool {
	if len(name) == 0 || uint64(len(name)) > MaxNameLen {
		return false
	}
	for i := 0; i < len(name); i++ {
		if !validChar(name[i]) {
			return false
		}
	}
	return true
}

// New builds the entry for name, or fails with ErrInvalidName.
func New(inum common.Inum, name string) (*DirEnt, error) {
	de := &DirEnt{Inum: inum}
	if err := de.SetName(name); err != nil {
		return nil, err
	}
	return de, nil
}

// SetName replaces the entry's name; on error de is unchanged.
func (de *DirEnt) SetName(name string) error {
	if !ValidName(name) {
		return fmt.Errorf("%q: %w", name, common.ErrInvalidName)
	}
	var buf [common.DIRNAMESZ]byte
	copy(buf[:], name)
	de.Name = buf
	return nil
}

func (de *DirEnt) NameString() string {
	n := bytes.IndexByte(de.Name[:], 0)
	if n < 0 {
		n = len(de.Name)
	}
	return string(de.Name[:n])
}

func (de *DirEnt) IsFree() bool {
	return de.Inum == common.NULLINUM
}

func (de *DirEnt) Encode() []byte {
	enc := marshal.NewEnc(8)
	enc.PutInt(uint64(de.Inum))
	data := make([]byte, common.DIRENTSZ)
	copy(data, enc.Finish())
	copy(data[8:], de.Name[:])
	return data
}

func Decode(data []byte) (*DirEnt, error) {
	if uint64(len(data)) < common.DIRENTSZ {
		return nil, fmt.Errorf("dirent: short record (%d bytes): %w",
			len(data), common.ErrIndexOutOfBounds)
	}
	dec := marshal.NewDec(data[:8])
	de := &DirEnt{Inum: common.Inum(dec.GetInt())}
	copy(de.Name[:], data[8:common.DIRENTSZ])
	return de, nil
}
