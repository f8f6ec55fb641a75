package disk

import (
	"fmt"

	goosedisk "github.com/tchajed/goose/machine/disk"
)

var _ Disk = gooseDisk{}

// gooseDisk adapts a goose disk, whose blocks are always
// goosedisk.BlockSize bytes and which panics on bad addresses.
type gooseDisk struct {
	d goosedisk.Disk
}

// FromGoose wraps a goose disk (for example goosedisk.NewMemDisk) so it can
// hold a volume with goosedisk.BlockSize-byte blocks.
func FromGoose(d goosedisk.Disk) Disk {
	return gooseDisk{d: d}
}

func (g gooseDisk) ReadTo(a uint64, b Block) error {
	if err := checkAccess(g, a, b); err != nil {
		return fmt.Errorf("read at %d: %w", a, err)
	}
	copy(b, g.d.Read(a))
	return nil
}

func (g gooseDisk) Read(a uint64) (Block, error) {
	b := make(Block, goosedisk.BlockSize)
	if err := g.ReadTo(a, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (g gooseDisk) Write(a uint64, v Block) error {
	if err := checkAccess(g, a, v); err != nil {
		return fmt.Errorf("write at %d: %w", a, err)
	}
	g.d.Write(a, v)
	return nil
}

func (g gooseDisk) Size() uint64 {
	return g.d.Size()
}

func (g gooseDisk) BlockSize() uint64 {
	return goosedisk.BlockSize
}

func (g gooseDisk) Barrier() error {
	g.d.Barrier()
	return nil
}

func (g gooseDisk) Close() error {
	g.d.Close()
	return nil
}
