// Package settings persists the machine's runtime-tunable parameters,
// work coordinate offsets, and startup gcode lines to the byte-addressable
// store behind core.StoreDriver (§6), mirroring the layout grbl keeps in
// EEPROM: a version byte, a global settings record, a bank of coordinate
// offsets, two startup lines, and a trailing build-info string, each
// guarded by its own checksum.
package settings

import (
	"gogrbl/core"
	"gogrbl/protocol"
)

// Store layout addresses (§6, §9 "persistent byte-store layout").
const (
	AddrVersion = 0
	AddrGlobal  = 1

	AddrCoordOffsets = 512
	NumCoordSystems  = 9 // G54..G59 (0-5), G59.1..G59.3 (6-8)

	AddrStartupLines = 768
	NumStartupLines  = 2

	AddrBuildInfo   = 942
	BuildInfoMaxLen = 80
)

// CurrentVersion is written to AddrVersion; Load rejects a mismatched
// version rather than risk misinterpreting a stale layout.
const CurrentVersion = 1

// numAxis mirrors standalone.NumAxis without importing the standalone
// package's heavier MachineConfig, keeping this package's on-disk record
// self-contained and stable across unrelated MachineConfig changes.
const numAxis = 3

// checksum implements the rotate-left-by-1-then-add 8-bit checksum chosen
// to resolve spec.md's open question on checksum algorithm: each byte
// rotates the running accumulator left one bit before being added in,
// cheaper than a CRC and sufficient to catch the single torn-write failure
// mode a byte-at-a-time EEPROM store exhibits.
func checksum(data []byte) byte {
	var c byte
	for _, b := range data {
		c = (c<<1 | c>>7) + b
	}
	return c
}

// readBytes pulls n bytes starting at addr from the store.
func readBytes(addr uint32, n int) ([]byte, error) {
	store := core.MustStore()
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		b, err := store.ReadByte(addr + uint32(i))
		if err != nil {
			return nil, err
		}
		out[i] = b
	}
	return out, nil
}

// writeBytes pushes data to the store starting at addr.
func writeBytes(addr uint32, data []byte) error {
	store := core.MustStore()
	for i, b := range data {
		if err := store.WriteByte(addr+uint32(i), b); err != nil {
			return err
		}
	}
	return nil
}

// protocolLineMax re-exports protocol.LineMax for startup-line sizing, so
// a persisted startup line can never exceed what the line buffer accepts.
const protocolLineMax = protocol.LineMax
