package xkb

import "unicode"

// Keysym is an X11/xkbcommon key symbol.
type Keysym uint32

// NoSymbol is what an unmapped level or an unrepresentable rune yields.
const NoSymbol Keysym = 0

// X11/keysymdef.h
const (
	XK_BackSpace    Keysym = 0xff08
	XK_Tab          Keysym = 0xff09
	XK_Linefeed     Keysym = 0xff0a
	XK_Clear        Keysym = 0xff0b
	XK_Return       Keysym = 0xff0d
	XK_Pause        Keysym = 0xff13
	XK_Scroll_Lock  Keysym = 0xff14
	XK_Sys_Req      Keysym = 0xff15
	XK_Escape       Keysym = 0xff1b
	XK_Home         Keysym = 0xff50
	XK_Left         Keysym = 0xff51
	XK_Up           Keysym = 0xff52
	XK_Right        Keysym = 0xff53
	XK_Down         Keysym = 0xff54
	XK_Page_Up      Keysym = 0xff55
	XK_Page_Down    Keysym = 0xff56
	XK_End          Keysym = 0xff57
	XK_Insert       Keysym = 0xff63
	XK_Menu         Keysym = 0xff67
	XK_Num_Lock     Keysym = 0xff7f
	XK_KP_Enter     Keysym = 0xff8d
	XK_KP_Home      Keysym = 0xff95
	XK_KP_Left      Keysym = 0xff96
	XK_KP_Up        Keysym = 0xff97
	XK_KP_Right     Keysym = 0xff98
	XK_KP_Down      Keysym = 0xff99
	XK_KP_Page_Up   Keysym = 0xff9a
	XK_KP_Page_Down Keysym = 0xff9b
	XK_KP_End       Keysym = 0xff9c
	XK_KP_Begin     Keysym = 0xff9d
	XK_KP_Insert    Keysym = 0xff9e
	XK_KP_Delete    Keysym = 0xff9f
	XK_KP_Multiply  Keysym = 0xffaa
	XK_KP_Add       Keysym = 0xffab
	XK_KP_Subtract  Keysym = 0xffad
	XK_KP_Decimal   Keysym = 0xffae
	XK_KP_Divide    Keysym = 0xffaf
	XK_KP_0         Keysym = 0xffb0
	XK_F1           Keysym = 0xffbe
	XK_Shift_L      Keysym = 0xffe1
	XK_Shift_R      Keysym = 0xffe2
	XK_Control_L    Keysym = 0xffe3
	XK_Control_R    Keysym = 0xffe4
	XK_Caps_Lock    Keysym = 0xffe5
	XK_Meta_L       Keysym = 0xffe7
	XK_Alt_L        Keysym = 0xffe9
	XK_Alt_R        Keysym = 0xffea
	XK_Super_L      Keysym = 0xffeb
	XK_Super_R      Keysym = 0xffec
	XK_Delete       Keysym = 0xffff

	XK_ISO_Level3_Shift Keysym = 0xfe03
	XK_dead_grave       Keysym = 0xfe50
	XK_dead_circumflex  Keysym = 0xfe52
	XK_dead_tilde       Keysym = 0xfe53
	XK_dead_diaeresis   Keysym = 0xfe57

	XK_EuroSign Keysym = 0x20ac
)

// legacy keysyms that xkbcommon prefers over the 0x01000000 Unicode range
var legacyKeysyms = map[rune]Keysym{
	'€': XK_EuroSign,
}

// KeysymFromRune maps a code point to a keysym: Latin-1 and the control
// characters with dedicated keysyms map directly, everything else goes to the
// 0x01000000 Unicode range.
func KeysymFromRune(r rune) Keysym {
	switch {
	case (r >= 0x20 && r <= 0x7e) || (r >= 0xa0 && r <= 0xff):
		return Keysym(r)
	case r == 0x08 || r == 0x09 || r == 0x0a || r == 0x0b || r == 0x0d || r == 0x1b:
		return Keysym(0xff00 | r)
	case r == 0x7f:
		return XK_Delete
	case r < 0x20, r >= 0x80 && r < 0xa0:
		return NoSymbol
	case r >= 0xd800 && r <= 0xdfff, r > 0x10ffff, r < 0:
		return NoSymbol
	}
	if ks, ok := legacyKeysyms[r]; ok {
		return ks
	}
	return Keysym(0x01000000 | uint32(r))
}

// Rune is the inverse of KeysymFromRune for printable symbols. Function and
// modifier keysyms report false.
func (k Keysym) Rune() (rune, bool) {
	switch {
	case (k >= 0x20 && k <= 0x7e) || (k >= 0xa0 && k <= 0xff):
		return rune(k), true
	case k >= 0x01000100 && k <= 0x0110ffff:
		return rune(k & 0x00ffffff), true
	}
	for r, ks := range legacyKeysyms {
		if ks == k {
			return r, true
		}
	}
	return 0, false
}

// isAlpha reports whether the two levels of a key are a lower/upper case pair,
// which is what Caps Lock acts on.
func isAlpha(lower, upper Keysym) bool {
	l, ok1 := lower.Rune()
	u, ok2 := upper.Rune()
	if !ok1 || !ok2 || l == u {
		return false
	}
	return unicode.ToUpper(l) == u
}
