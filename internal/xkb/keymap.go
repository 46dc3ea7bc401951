package xkb

import (
	"fmt"
	"sort"
	"strings"

	evdev "github.com/holoplot/go-evdev"
)

// Key codes on the wire are Linux evdev codes (github.com/holoplot/go-evdev);
// the keymap itself is indexed by code+Offset.
const (
	// Offset between evdev key codes and xkb key codes.
	Offset = 8

	MinKeycode = 8
	MaxKeycode = 255
)

// Shift levels. Level3 is reached through AltGr (ISO_Level3_Shift).
const (
	Level1 = iota
	Level2
	Level3
	Level4
	numLevels
)

type keyType uint8

const (
	typeOneLevel keyType = iota
	typeTwoLevel
	typeKeypad
	typeFourLevel
)

type keyDef struct {
	kind keyType
	// alpha keys have a lower/upper case pair on levels 1 and 2
	alpha bool
	syms  [numLevels]Keysym
}

// Keymap is an immutable symbol table indexed by xkb key code.
type Keymap struct {
	layout string
	keys   [MaxKeycode + 1]keyDef
}

func one(s Keysym) keyDef         { return keyDef{kind: typeOneLevel, syms: [numLevels]Keysym{s}} }
func two(a, b Keysym) keyDef      { return keyDef{kind: typeTwoLevel, syms: [numLevels]Keysym{a, b}} }
func kp(nav, digit Keysym) keyDef { return keyDef{kind: typeKeypad, syms: [numLevels]Keysym{nav, digit}} }

func four(a, b, c, d Keysym) keyDef {
	return keyDef{kind: typeFourLevel, syms: [numLevels]Keysym{a, b, c, d}}
}

func ch(c rune) Keysym { return KeysymFromRune(c) }

// keys every layout shares
var commonKeys = map[evdev.EvCode]keyDef{
	evdev.KEY_ESC:        one(XK_Escape),
	evdev.KEY_BACKSPACE:  one(XK_BackSpace),
	evdev.KEY_TAB:        one(XK_Tab),
	evdev.KEY_ENTER:      one(XK_Return),
	evdev.KEY_LEFTCTRL:   one(XK_Control_L),
	evdev.KEY_LEFTSHIFT:  one(XK_Shift_L),
	evdev.KEY_RIGHTSHIFT: one(XK_Shift_R),
	evdev.KEY_LEFTALT:    one(XK_Alt_L),
	evdev.KEY_SPACE:      one(ch(' ')),
	evdev.KEY_CAPSLOCK:   one(XK_Caps_Lock),
	evdev.KEY_NUMLOCK:    one(XK_Num_Lock),
	evdev.KEY_SCROLLLOCK: one(XK_Scroll_Lock),
	evdev.KEY_KPASTERISK: one(XK_KP_Multiply),
	evdev.KEY_KPMINUS:    one(XK_KP_Subtract),
	evdev.KEY_KPPLUS:     one(XK_KP_Add),
	evdev.KEY_KPSLASH:    one(XK_KP_Divide),
	evdev.KEY_KPENTER:    one(XK_KP_Enter),
	evdev.KEY_KP7:        kp(XK_KP_Home, XK_KP_0+7),
	evdev.KEY_KP8:        kp(XK_KP_Up, XK_KP_0+8),
	evdev.KEY_KP9:        kp(XK_KP_Page_Up, XK_KP_0+9),
	evdev.KEY_KP4:        kp(XK_KP_Left, XK_KP_0+4),
	evdev.KEY_KP5:        kp(XK_KP_Begin, XK_KP_0+5),
	evdev.KEY_KP6:        kp(XK_KP_Right, XK_KP_0+6),
	evdev.KEY_KP1:        kp(XK_KP_End, XK_KP_0+1),
	evdev.KEY_KP2:        kp(XK_KP_Down, XK_KP_0+2),
	evdev.KEY_KP3:        kp(XK_KP_Page_Down, XK_KP_0+3),
	evdev.KEY_KP0:        kp(XK_KP_Insert, XK_KP_0),
	evdev.KEY_KPDOT:      kp(XK_KP_Delete, XK_KP_Decimal),
	evdev.KEY_102ND:      two(ch('<'), ch('>')),
	evdev.KEY_RIGHTCTRL:  one(XK_Control_R),
	evdev.KEY_SYSRQ:      one(XK_Sys_Req),
	evdev.KEY_LINEFEED:   one(XK_Linefeed),
	evdev.KEY_HOME:       one(XK_Home),
	evdev.KEY_UP:         one(XK_Up),
	evdev.KEY_PAGEUP:     one(XK_Page_Up),
	evdev.KEY_LEFT:       one(XK_Left),
	evdev.KEY_RIGHT:      one(XK_Right),
	evdev.KEY_END:        one(XK_End),
	evdev.KEY_DOWN:       one(XK_Down),
	evdev.KEY_PAGEDOWN:   one(XK_Page_Down),
	evdev.KEY_INSERT:     one(XK_Insert),
	evdev.KEY_DELETE:     one(XK_Delete),
	evdev.KEY_PAUSE:      one(XK_Pause),
	evdev.KEY_LEFTMETA:   one(XK_Super_L),
	evdev.KEY_RIGHTMETA:  one(XK_Super_R),
	evdev.KEY_COMPOSE:    one(XK_Menu),
}

type layoutDef struct {
	aliases string
	// printable keys as pairs of runes, level 1 then level 2
	pairs map[evdev.EvCode]string
	// AltGr symbols, level 3
	altgr map[evdev.EvCode]Keysym
	ralt  Keysym
}

var layouts = map[string]layoutDef{
	"us": {
		aliases: "qwerty",
		ralt:    XK_Alt_R,
		pairs: map[evdev.EvCode]string{
			evdev.KEY_GRAVE: "`~", evdev.KEY_1: "1!", evdev.KEY_2: "2@", evdev.KEY_3: "3#", evdev.KEY_4: "4$", evdev.KEY_5: "5%",
			evdev.KEY_6: "6^", evdev.KEY_7: "7&", evdev.KEY_8: "8*", evdev.KEY_9: "9(", evdev.KEY_0: "0)", evdev.KEY_MINUS: "-_", evdev.KEY_EQUAL: "=+",
			evdev.KEY_Q: "qQ", evdev.KEY_W: "wW", evdev.KEY_E: "eE", evdev.KEY_R: "rR", evdev.KEY_T: "tT", evdev.KEY_Y: "yY", evdev.KEY_U: "uU",
			evdev.KEY_I: "iI", evdev.KEY_O: "oO", evdev.KEY_P: "pP", evdev.KEY_LEFTBRACE: "[{", evdev.KEY_RIGHTBRACE: "]}",
			evdev.KEY_A: "aA", evdev.KEY_S: "sS", evdev.KEY_D: "dD", evdev.KEY_F: "fF", evdev.KEY_G: "gG", evdev.KEY_H: "hH", evdev.KEY_J: "jJ",
			evdev.KEY_K: "kK", evdev.KEY_L: "lL", evdev.KEY_SEMICOLON: ";:", evdev.KEY_APOSTROPHE: "'\"", evdev.KEY_BACKSLASH: "\\|",
			evdev.KEY_Z: "zZ", evdev.KEY_X: "xX", evdev.KEY_C: "cC", evdev.KEY_V: "vV", evdev.KEY_B: "bB", evdev.KEY_N: "nN", evdev.KEY_M: "mM",
			evdev.KEY_COMMA: ",<", evdev.KEY_DOT: ".>", evdev.KEY_SLASH: "/?",
		},
	},
	"fr": {
		aliases: "azerty",
		ralt:    XK_ISO_Level3_Shift,
		pairs: map[evdev.EvCode]string{
			evdev.KEY_GRAVE: "²²", evdev.KEY_1: "&1", evdev.KEY_2: "é2", evdev.KEY_3: "\"3", evdev.KEY_4: "'4", evdev.KEY_5: "(5",
			evdev.KEY_6: "-6", evdev.KEY_7: "è7", evdev.KEY_8: "_8", evdev.KEY_9: "ç9", evdev.KEY_0: "à0", evdev.KEY_MINUS: ")°", evdev.KEY_EQUAL: "=+",
			evdev.KEY_Q: "aA", evdev.KEY_W: "zZ", evdev.KEY_E: "eE", evdev.KEY_R: "rR", evdev.KEY_T: "tT", evdev.KEY_Y: "yY", evdev.KEY_U: "uU",
			evdev.KEY_I: "iI", evdev.KEY_O: "oO", evdev.KEY_P: "pP", evdev.KEY_RIGHTBRACE: "$£",
			evdev.KEY_A: "qQ", evdev.KEY_S: "sS", evdev.KEY_D: "dD", evdev.KEY_F: "fF", evdev.KEY_G: "gG", evdev.KEY_H: "hH", evdev.KEY_J: "jJ",
			evdev.KEY_K: "kK", evdev.KEY_L: "lL", evdev.KEY_SEMICOLON: "mM", evdev.KEY_APOSTROPHE: "ù%", evdev.KEY_BACKSLASH: "*µ",
			evdev.KEY_Z: "wW", evdev.KEY_X: "xX", evdev.KEY_C: "cC", evdev.KEY_V: "vV", evdev.KEY_B: "bB", evdev.KEY_N: "nN", evdev.KEY_M: ",?",
			evdev.KEY_COMMA: ";.", evdev.KEY_DOT: ":/", evdev.KEY_SLASH: "!§",
		},
		altgr: map[evdev.EvCode]Keysym{
			evdev.KEY_2: ch('~'), evdev.KEY_3: ch('#'), evdev.KEY_4: ch('{'), evdev.KEY_5: ch('['), evdev.KEY_6: ch('|'), evdev.KEY_7: ch('`'),
			evdev.KEY_8: ch('\\'), evdev.KEY_9: ch('^'), evdev.KEY_0: ch('@'), evdev.KEY_MINUS: ch(']'), evdev.KEY_EQUAL: ch('}'),
			evdev.KEY_E: XK_EuroSign,
		},
	},
}

// Layouts lists the built-in layout names.
func Layouts() []string {
	names := make([]string, 0, len(layouts))
	for name := range layouts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewKeymap builds the keymap for a built-in layout.
func NewKeymap(layout string) (*Keymap, error) {
	def, ok := layouts[layout]
	if !ok {
		return nil, fmt.Errorf("unknown keyboard layout %q (available: %s)", layout, strings.Join(Layouts(), ", "))
	}

	km := &Keymap{layout: layout}
	for code, kd := range commonKeys {
		km.keys[uint32(code)+Offset] = kd
	}
	for i := uint32(0); i < 12; i++ {
		fcode := uint32(evdev.KEY_F1) + i
		if i >= 10 {
			fcode = uint32(evdev.KEY_F11) + i - 10
		}
		km.keys[fcode+Offset] = one(XK_F1 + Keysym(i))
	}
	km.keys[uint32(evdev.KEY_RIGHTALT)+Offset] = one(def.ralt)

	for code, pair := range def.pairs {
		runes := []rune(pair)
		lower, upper := ch(runes[0]), ch(runes[1])
		kd := two(lower, upper)
		if lower == upper {
			kd = one(lower)
		}
		if sym, ok := def.altgr[code]; ok {
			kd = four(lower, upper, sym, NoSymbol)
		}
		kd.alpha = isAlpha(lower, upper)
		km.keys[uint32(code)+Offset] = kd
	}

	return km, nil
}

// Layout returns the layout name.
func (k *Keymap) Layout() string {
	return k.layout
}

// Symbol returns the keysym bound to an xkb key code at a level, falling back
// to level 1 for keys with fewer levels.
func (k *Keymap) Symbol(code uint32, level int) Keysym {
	if code < MinKeycode || code > MaxKeycode || level < 0 || level >= numLevels {
		return NoSymbol
	}
	kd := k.keys[code]
	if sym := kd.syms[level]; sym != NoSymbol {
		return sym
	}
	if kd.kind == typeOneLevel {
		return kd.syms[Level1]
	}
	return NoSymbol
}

// Text renders the keymap in the textual XKB format the compositor compiles.
func (k *Keymap) Text() string {
	def := layouts[k.layout]
	return fmt.Sprintf(`xkb_keymap {
	xkb_keycodes  { include "evdev+aliases(%s)"	};
	xkb_types     { include "complete"	};
	xkb_compat    { include "complete"	};
	xkb_symbols   { include "pc+%s+inet(evdev)"	};
	xkb_geometry  { include "pc(pc105)"	};
};
`, def.aliases, k.layout)
}
