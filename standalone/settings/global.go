package settings

import (
	"encoding/binary"
	"errors"
	"math"

	"gogrbl/standalone"
)

// globalRecordLen is the serialized size of the global settings record
// (numAxis axis sub-records + the machine-wide scalars), plus one trailing
// checksum byte.
const axisRecordLen = 8 * 8 // 8 float64 fields per axis
const globalScalarsLen = 8 * 7 // 7 machine-wide float64 scalars
const globalFlagsLen = 5        // PulseMicroseconds(2) + StepperIdleLockTime(2) + HomingLocateCycles/flags(1)
const globalRecordLen = numAxis*axisRecordLen + globalScalarsLen + globalFlagsLen + 1

// SaveGlobal persists cfg's runtime-tunable parameters to AddrGlobal.
// Coordinate offsets, kinematics choice, and pin assignments are not
// part of this record: pin wiring is a build-time concern and kinematics
// selection is read back from the JSON config, matching how grbl itself
// never persists pin maps to EEPROM.
func SaveGlobal(cfg *standalone.MachineConfig) error {
	buf := make([]byte, 0, globalRecordLen)

	for i := 0; i < standalone.NumAxis; i++ {
		ax := cfg.Axes[i]
		buf = appendFloat64(buf, ax.StepsPerMM)
		buf = appendFloat64(buf, ax.MaxRate)
		buf = appendFloat64(buf, ax.MaxAccel)
		buf = appendFloat64(buf, ax.MaxTravel)
		buf = appendFloat64(buf, ax.HomingSeekRate)
		buf = appendFloat64(buf, ax.HomingFeedRate)
		buf = appendFloat64(buf, ax.HomingPulloff)
		buf = appendFloat64(buf, float64(ax.HomingDir))
	}

	buf = appendFloat64(buf, cfg.JunctionDeviation)
	buf = appendFloat64(buf, cfg.ArcTolerance)
	buf = appendFloat64(buf, cfg.DefaultFeedRate)
	buf = appendFloat64(buf, cfg.MinFeedRate)
	buf = appendFloat64(buf, cfg.Spindle.MinRPM)
	buf = appendFloat64(buf, cfg.Spindle.MaxRPM)
	buf = appendFloat64(buf, float64(cfg.Spindle.PWMOffValue))

	var u16 [2]byte
	binary.LittleEndian.PutUint16(u16[:], cfg.PulseMicroseconds)
	buf = append(buf, u16[:]...)
	binary.LittleEndian.PutUint16(u16[:], cfg.StepperIdleLockTime)
	buf = append(buf, u16[:]...)

	var flags byte
	flags = cfg.HomingLocateCycles & 0x0F
	if cfg.HomingForceSetOrigin {
		flags |= 0x80
	}
	if cfg.Spindle.LaserMode {
		flags |= 0x40
	}
	buf = append(buf, flags)

	buf = append(buf, checksum(buf))
	return writeBytes(AddrGlobal, buf)
}

// LoadGlobal overlays the persisted record onto cfg (already populated with
// JSON-config defaults for pin maps and kinematics selection). It returns
// an error if the stored checksum doesn't match, leaving cfg untouched.
func LoadGlobal(cfg *standalone.MachineConfig) error {
	data, err := readBytes(AddrGlobal, globalRecordLen)
	if err != nil {
		return err
	}
	payload := data[:len(data)-1]
	if checksum(payload) != data[len(data)-1] {
		return errors.New("settings: global record checksum mismatch")
	}

	pos := 0
	readF := func() float64 {
		v := math.Float64frombits(binary.LittleEndian.Uint64(payload[pos:]))
		pos += 8
		return v
	}

	for i := 0; i < standalone.NumAxis; i++ {
		ax := &cfg.Axes[i]
		ax.StepsPerMM = readF()
		ax.MaxRate = readF()
		ax.MaxAccel = readF()
		ax.MaxTravel = readF()
		ax.HomingSeekRate = readF()
		ax.HomingFeedRate = readF()
		ax.HomingPulloff = readF()
		ax.HomingDir = int8(readF())
	}

	cfg.JunctionDeviation = readF()
	cfg.ArcTolerance = readF()
	cfg.DefaultFeedRate = readF()
	cfg.MinFeedRate = readF()
	cfg.Spindle.MinRPM = readF()
	cfg.Spindle.MaxRPM = readF()
	cfg.Spindle.PWMOffValue = uint8(readF())

	cfg.PulseMicroseconds = binary.LittleEndian.Uint16(payload[pos:])
	pos += 2
	cfg.StepperIdleLockTime = binary.LittleEndian.Uint16(payload[pos:])
	pos += 2

	flags := payload[pos]
	cfg.HomingLocateCycles = flags & 0x0F
	cfg.HomingForceSetOrigin = flags&0x80 != 0
	cfg.Spindle.LaserMode = flags&0x40 != 0

	return nil
}

func appendFloat64(buf []byte, v float64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], math.Float64bits(v))
	return append(buf, b[:]...)
}
