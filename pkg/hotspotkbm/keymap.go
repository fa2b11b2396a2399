package hotspotkbm

// Evdev key codes, from the Linux kernel's linux/input-event-codes.h. These
// are the values github.com/bendahl/uinput's Keyboard.KeyDown/KeyUp expect;
// this table is the wire-protocol surface a handheld client's KEY_* names
// must resolve to. Unknown names are silently dropped by the caller.
const (
	keyEsc        = 1
	key1          = 2
	key2          = 3
	key3          = 4
	key4          = 5
	key5          = 6
	key6          = 7
	key7          = 8
	key8          = 9
	key9          = 10
	key0          = 11
	keyMinus      = 12
	keyEqual      = 13
	keyBackspace  = 14
	keyTab        = 15
	keyQ          = 16
	keyW          = 17
	keyE          = 18
	keyR          = 19
	keyT          = 20
	keyY          = 21
	keyU          = 22
	keyI          = 23
	keyO          = 24
	keyP          = 25
	keyLeftBrace  = 26
	keyRightBrace = 27
	keyEnter      = 28
	keyLeftCtrl   = 29
	keyA          = 30
	keyS          = 31
	keyD          = 32
	keyF          = 33
	keyG          = 34
	keyH          = 35
	keyJ          = 36
	keyK          = 37
	keyL          = 38
	keySemicolon  = 39
	keyApostrophe = 40
	keyGrave      = 41
	keyLeftShift  = 42
	keyBackslash  = 43
	keyZ          = 44
	keyX          = 45
	keyC          = 46
	keyV          = 47
	keyB          = 48
	keyN          = 49
	keyM          = 50
	keyComma      = 51
	keyDot        = 52
	keySlash      = 53
	keyRightShift = 54
	keyKPAsterisk = 55
	keyLeftAlt    = 56
	keySpace      = 57
	keyCapsLock   = 58
	keyF1         = 59
	keyF2         = 60
	keyF3         = 61
	keyF4         = 62
	keyF5         = 63
	keyF6         = 64
	keyF7         = 65
	keyF8         = 66
	keyF9         = 67
	keyF10        = 68
	keyNumLock    = 69
	keyScrollLock = 70
	keyKP7        = 71
	keyKP8        = 72
	keyKP9        = 73
	keyKPMinus    = 74
	keyKP4        = 75
	keyKP5        = 76
	keyKP6        = 77
	keyKPPlus     = 78
	keyKP1        = 79
	keyKP2        = 80
	keyKP3        = 81
	keyKP0        = 82
	keyKPDot      = 83
	keyF11        = 87
	keyF12        = 88
	keyKPEnter    = 96
	keyRightCtrl  = 97
	keyKPSlash    = 98
	keyRightAlt   = 100
	keyHome       = 102
	keyUp         = 103
	keyPageUp     = 104
	keyLeft       = 105
	keyRight      = 106
	keyEnd        = 107
	keyDown       = 108
	keyPageDown   = 109
	keyInsert     = 110
	keyDelete     = 111
	keyLeftMeta   = 125
	keyRightMeta  = 126
)

// keymap maps the symbolic KEY_* names a handheld client sends to evdev key
// codes. It is a fixed table used to validate incoming KEY commands and to
// translate them to codes; the virtual keyboard device is created without
// reference to it.
var keymap = map[string]int{
	"KEY_ESC":         keyEsc,
	"KEY_1":           key1,
	"KEY_2":           key2,
	"KEY_3":           key3,
	"KEY_4":           key4,
	"KEY_5":           key5,
	"KEY_6":           key6,
	"KEY_7":           key7,
	"KEY_8":           key8,
	"KEY_9":           key9,
	"KEY_0":           key0,
	"KEY_MINUS":       keyMinus,
	"KEY_EQUAL":       keyEqual,
	"KEY_BACKSPACE":   keyBackspace,
	"KEY_TAB":         keyTab,
	"KEY_Q":           keyQ,
	"KEY_W":           keyW,
	"KEY_E":           keyE,
	"KEY_R":           keyR,
	"KEY_T":           keyT,
	"KEY_Y":           keyY,
	"KEY_U":           keyU,
	"KEY_I":           keyI,
	"KEY_O":           keyO,
	"KEY_P":           keyP,
	"KEY_LEFTBRACE":   keyLeftBrace,
	"KEY_RIGHTBRACE":  keyRightBrace,
	"KEY_ENTER":       keyEnter,
	"KEY_LEFTCTRL":    keyLeftCtrl,
	"KEY_A":           keyA,
	"KEY_S":           keyS,
	"KEY_D":           keyD,
	"KEY_F":           keyF,
	"KEY_G":           keyG,
	"KEY_H":           keyH,
	"KEY_J":           keyJ,
	"KEY_K":           keyK,
	"KEY_L":           keyL,
	"KEY_SEMICOLON":   keySemicolon,
	"KEY_APOSTROPHE":  keyApostrophe,
	"KEY_GRAVE":       keyGrave,
	"KEY_LEFTSHIFT":   keyLeftShift,
	"KEY_BACKSLASH":   keyBackslash,
	"KEY_Z":           keyZ,
	"KEY_X":           keyX,
	"KEY_C":           keyC,
	"KEY_V":           keyV,
	"KEY_B":           keyB,
	"KEY_N":           keyN,
	"KEY_M":           keyM,
	"KEY_COMMA":       keyComma,
	"KEY_DOT":         keyDot,
	"KEY_SLASH":       keySlash,
	"KEY_RIGHTSHIFT":  keyRightShift,
	"KEY_KPASTERISK":  keyKPAsterisk,
	"KEY_LEFTALT":     keyLeftAlt,
	"KEY_SPACE":       keySpace,
	"KEY_CAPSLOCK":    keyCapsLock,
	"KEY_F1":          keyF1,
	"KEY_F2":          keyF2,
	"KEY_F3":          keyF3,
	"KEY_F4":          keyF4,
	"KEY_F5":          keyF5,
	"KEY_F6":          keyF6,
	"KEY_F7":          keyF7,
	"KEY_F8":          keyF8,
	"KEY_F9":          keyF9,
	"KEY_F10":         keyF10,
	"KEY_NUMLOCK":     keyNumLock,
	"KEY_SCROLLLOCK":  keyScrollLock,
	"KEY_KP7":         keyKP7,
	"KEY_KP8":         keyKP8,
	"KEY_KP9":         keyKP9,
	"KEY_KPMINUS":     keyKPMinus,
	"KEY_KP4":         keyKP4,
	"KEY_KP5":         keyKP5,
	"KEY_KP6":         keyKP6,
	"KEY_KPPLUS":      keyKPPlus,
	"KEY_KP1":         keyKP1,
	"KEY_KP2":         keyKP2,
	"KEY_KP3":         keyKP3,
	"KEY_KP0":         keyKP0,
	"KEY_KPDOT":       keyKPDot,
	"KEY_F11":         keyF11,
	"KEY_F12":         keyF12,
	"KEY_KPENTER":     keyKPEnter,
	"KEY_RIGHTCTRL":   keyRightCtrl,
	"KEY_KPSLASH":     keyKPSlash,
	"KEY_RIGHTALT":    keyRightAlt,
	"KEY_HOME":        keyHome,
	"KEY_UP":          keyUp,
	"KEY_PAGEUP":      keyPageUp,
	"KEY_LEFT":        keyLeft,
	"KEY_RIGHT":       keyRight,
	"KEY_END":         keyEnd,
	"KEY_DOWN":        keyDown,
	"KEY_PAGEDOWN":    keyPageDown,
	"KEY_INSERT":      keyInsert,
	"KEY_DELETE":      keyDelete,
	"KEY_LEFTMETA":    keyLeftMeta,
	"KEY_RIGHTMETA":   keyRightMeta,
}

// KeymapSize reports how many symbolic key names the static keymap covers,
// for a one-line startup log.
func KeymapSize() int {
	return len(keymap)
}
