//go:build rp2040 || rp2350

package rpdrivers

// storeSize covers the largest address the settings layout writes to; see
// standalone/settings/layout.go.
const storeSize = 1024

// Store implements core.StoreDriver as a RAM-backed byte array. Settings
// therefore do not survive a power cycle on these targets; wiring a flash
// page for wear-leveled persistence is a followup, not attempted here.
type Store struct {
	mem [storeSize]byte
}

// NewStore builds an empty settings store.
func NewStore() *Store { return &Store{} }

func (d *Store) Init() error { return nil }

func (d *Store) ReadByte(addr uint32) (byte, error) {
	if addr >= storeSize {
		return 0, nil
	}
	return d.mem[addr], nil
}

func (d *Store) WriteByte(addr uint32, val byte) error {
	if addr >= storeSize {
		return nil
	}
	d.mem[addr] = val
	return nil
}
