package addr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBitAddr(t *testing.T) {
	assert := assert.New(t)

	a := MkBitAddr(4, 0, 1000)
	assert.Equal(MkAddr(4, 0), a)

	a = MkBitAddr(4, 13, 1000)
	assert.Equal(uint64(4), a.Blkno)
	assert.Equal(uint64(1), a.Byte())
	assert.Equal(uint64(5), a.Bit())

	// last bit of the first block, then the first bit of the second
	a = MkBitAddr(4, 7999, 1000)
	assert.Equal(MkAddr(4, 7999), a)
	a = MkBitAddr(4, 8000, 1000)
	assert.Equal(MkAddr(5, 0), a)
}

func TestRecordAddr(t *testing.T) {
	assert := assert.New(t)

	// 7 records of 128 bytes fit in a 1000-byte block
	a := MkRecordAddr(1, 6, 128, 1000)
	assert.Equal(uint64(1), a.Blkno)
	assert.Equal(uint64(6*128), a.Byte())
	assert.Equal(uint64(0), a.Bit())

	a = MkRecordAddr(1, 7, 128, 1000)
	assert.Equal(uint64(2), a.Blkno)
	assert.Equal(uint64(0), a.Byte())
}
