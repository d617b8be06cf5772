package settings

import "gogrbl/standalone"

// LoadOrDefault overlays the persisted global record onto cfg when the
// store carries CurrentVersion; otherwise it leaves cfg at whatever
// defaults the caller already populated it with (from standalone/config)
// and persists a fresh copy so the next boot finds a valid record.
func LoadOrDefault(cfg *standalone.MachineConfig) error {
	v, err := LoadVersion()
	if err != nil {
		return err
	}
	if v != CurrentVersion {
		return SaveAll(cfg)
	}
	if err := LoadGlobal(cfg); err != nil {
		// A version match with a corrupt record still falls back to the
		// caller's defaults rather than failing machine startup.
		return SaveAll(cfg)
	}
	return nil
}

// SaveAll writes the version byte and the global settings record,
// establishing a valid store from the given configuration.
func SaveAll(cfg *standalone.MachineConfig) error {
	if err := SaveGlobal(cfg); err != nil {
		return err
	}
	return SaveVersion()
}
