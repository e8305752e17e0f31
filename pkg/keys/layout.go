package keys

// Layout maps matrix positions to keys.
type Layout [Rows][Cols]Key

// Lookup returns the key at addr, KeyNone outside the matrix.
func (l *Layout) Lookup(addr Addr) Key {
	if int(addr.Row) >= Rows || int(addr.Col) >= Cols {
		return KeyNone
	}
	return l[addr.Row][addr.Col]
}

// DefaultLayout is the base layer of the number and top letter rows.
func DefaultLayout() *Layout {
	var l Layout
	l[0] = [Cols]Key{
		KeyEscape, Key1, Key1 + 1, Key1 + 2, Key1 + 3, Key1 + 4, KeyNone, KeyNone,
		KeyNone, KeyBackspace, Key1 + 5, Key1 + 6, Key1 + 7, Key1 + 8, Key0, KeyNone,
	}
	l[1] = [Cols]Key{
		KeyNone, KeyQ, KeyW, KeyE, KeyR, KeyT, KeyNone, KeyNone,
		KeyNone, KeyNone, KeyY, KeyU, KeyI, KeyO, KeyP, KeyNone,
	}
	l[4][6] = BluetoothPairing
	l[4][9] = BatteryLevel
	return &l
}
