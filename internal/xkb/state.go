// Package xkb tracks keyboard modifier state against a small built-in keymap
// and maps characters back to the key codes that produce them.
package xkb

// Direction of a key transition. The values match wl_keyboard.key_state.
type Direction uint32

const (
	Up Direction = iota
	Down
)

func (d Direction) String() string {
	if d == Down {
		return "down"
	}
	return "up"
}

// ModMask is a bitfield of the eight real modifiers.
type ModMask uint32

const (
	ModShift ModMask = 1 << iota
	ModLock
	ModControl
	ModMod1
	ModMod2
	ModMod3
	ModMod4
	ModMod5

	ModAlt     = ModMod1
	ModNumLock = ModMod2
	ModSuper   = ModMod4
	ModAltGr   = ModMod5
)

// Mods is the serialized modifier state sent in a modifiers request.
type Mods struct {
	Depressed uint32
	Latched   uint32
	Locked    uint32
	Group     uint32
}

// modifier reports which modifier a level 1 keysym drives and whether it locks.
func modifier(sym Keysym) (ModMask, bool) {
	switch sym {
	case XK_Shift_L, XK_Shift_R:
		return ModShift, false
	case XK_Control_L, XK_Control_R:
		return ModControl, false
	case XK_Alt_L, XK_Alt_R, XK_Meta_L:
		return ModAlt, false
	case XK_Super_L, XK_Super_R:
		return ModSuper, false
	case XK_ISO_Level3_Shift:
		return ModAltGr, false
	case XK_Caps_Lock:
		return ModLock, true
	case XK_Num_Lock:
		return ModNumLock, true
	}
	return 0, false
}

// State tracks the modifier state of one keyboard against its keymap.
// It is not safe for concurrent use.
type State struct {
	keymap *Keymap

	depressed ModMask
	latched   ModMask
	locked    ModMask
	group     uint32

	pressed [MaxKeycode + 1]bool
	// keys currently holding each modifier bit, so two Shift keys overlap correctly
	holds [8]int
	// whether a locking key found its modifier already locked when pressed
	wasLocked [MaxKeycode + 1]bool
}

// NewState returns a state with no modifiers active.
func NewState(km *Keymap) *State {
	return &State{keymap: km}
}

// Keymap returns the keymap the state was built on.
func (s *State) Keymap() *Keymap {
	return s.keymap
}

// Apply feeds a key transition for a logical (evdev) key code and returns the
// resulting modifier state. Repeated presses of a held key and releases of a
// key that is not held leave the state untouched.
func (s *State) Apply(code uint32, dir Direction) Mods {
	xc := code + Offset
	if code > MaxKeycode-Offset {
		return s.Mods()
	}

	mod, locking := modifier(s.keymap.Symbol(xc, Level1))

	switch dir {
	case Down:
		if s.pressed[xc] {
			return s.Mods()
		}
		s.pressed[xc] = true
		if mod == 0 {
			break
		}
		s.hold(mod)
		if locking {
			s.wasLocked[xc] = s.locked&mod != 0
			s.locked |= mod
		}
	case Up:
		if !s.pressed[xc] {
			return s.Mods()
		}
		s.pressed[xc] = false
		if mod == 0 {
			break
		}
		s.release(mod)
		if locking && s.wasLocked[xc] {
			s.locked &^= mod
		}
	}

	return s.Mods()
}

func (s *State) hold(mod ModMask) {
	for bit := 0; bit < len(s.holds); bit++ {
		if mod&(1<<bit) != 0 {
			s.holds[bit]++
		}
	}
	s.depressed |= mod
}

func (s *State) release(mod ModMask) {
	for bit := 0; bit < len(s.holds); bit++ {
		if mod&(1<<bit) == 0 || s.holds[bit] == 0 {
			continue
		}
		s.holds[bit]--
		if s.holds[bit] == 0 {
			s.depressed &^= 1 << bit
		}
	}
}

// Mods serializes the current modifier state.
func (s *State) Mods() Mods {
	return Mods{
		Depressed: uint32(s.depressed),
		Latched:   uint32(s.latched),
		Locked:    uint32(s.locked),
		Group:     s.group,
	}
}

// Effective returns the union of depressed, latched and locked modifiers.
func (s *State) Effective() ModMask {
	return s.depressed | s.latched | s.locked
}

// Active reports whether any of the given modifiers is in effect.
func (s *State) Active(mod ModMask) bool {
	return s.Effective()&mod != 0
}

func (s *State) level(kd keyDef) int {
	eff := s.Effective()
	shift := eff&ModShift != 0

	switch kd.kind {
	case typeOneLevel:
		return Level1
	case typeKeypad:
		if (eff&ModNumLock != 0) != shift {
			return Level2
		}
		return Level1
	}

	if kd.alpha && eff&ModLock != 0 {
		shift = !shift
	}
	lvl := Level1
	if shift {
		lvl = Level2
	}
	if kd.kind == typeFourLevel && eff&ModAltGr != 0 {
		lvl += 2
	}
	return lvl
}

func (s *State) symbol(xc uint32) Keysym {
	return s.keymap.Symbol(xc, s.level(s.keymap.keys[xc]))
}

// KeySym returns the symbol a logical key code produces in the current state.
func (s *State) KeySym(code uint32) Keysym {
	if code > MaxKeycode-Offset {
		return NoSymbol
	}
	return s.symbol(code + Offset)
}

// ReverseLookup finds the lowest logical key code producing r, trying each
// code without modifiers and then with Shift. The modifier state is the same
// on return as on entry.
func (s *State) ReverseLookup(r rune) (code uint32, needsShift bool, ok bool) {
	target := KeysymFromRune(r)
	if target == NoSymbol {
		return 0, false, false
	}

	depressed, latched, locked, group := s.depressed, s.latched, s.locked, s.group
	defer func() {
		s.depressed, s.latched, s.locked, s.group = depressed, latched, locked, group
	}()

	for xc := uint32(MinKeycode); xc <= MaxKeycode; xc++ {
		s.depressed, s.latched, s.locked, s.group = 0, 0, 0, 0
		if s.symbol(xc) == target {
			return xc - Offset, false, true
		}

		s.depressed = ModShift
		if s.symbol(xc) == target {
			return xc - Offset, true, true
		}
	}

	return 0, false, false
}
