package settings

// SaveVersion writes CurrentVersion to AddrVersion, called once after a
// fresh store is initialized to its built-in defaults.
func SaveVersion() error {
	return writeBytes(AddrVersion, []byte{CurrentVersion})
}

// LoadVersion reads the store's layout version. Load callers should treat
// any version other than CurrentVersion as an uninitialized or
// incompatible store and fall back to defaults rather than parse it.
func LoadVersion() (byte, error) {
	data, err := readBytes(AddrVersion, 1)
	if err != nil {
		return 0, err
	}
	return data[0], nil
}
