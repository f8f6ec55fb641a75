package common

const (
	INODESZ uint64 = 128 // on-disk size
	NDIRECT uint64 = 12  // direct block pointers per inode

	DIRNAMESZ uint64 = 24
	DIRENTSZ  uint64 = 8 + DIRNAMESZ // inum + name
)

type Inum uint64
type Bnum = uint64

const (
	NULLINUM Inum = 0
	ROOTINUM Inum = 1
	NULLBNUM Bnum = 0
)
