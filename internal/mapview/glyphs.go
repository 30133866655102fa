package mapview

import (
	"os"
	"strings"
)

// Glyphs are the characters the map grid is drawn with.
type Glyphs struct {
	Background rune
	Marker     rune
	Focused    rune
	Selected   rune
	Origin     rune
	Center     rune
}

var (
	unicodeGlyphs = Glyphs{Background: '·', Marker: '●', Focused: '◆', Selected: '◎', Origin: '◉', Center: '+'}
	asciiGlyphs   = Glyphs{Background: '.', Marker: 'o', Focused: '#', Selected: 'O', Origin: '@', Center: '+'}
)

// DetectGlyphs picks unicode glyphs unless the terminal looks like it
// cannot draw them (Linux console, dumb terminals, non UTF-8 locales).
func DetectGlyphs() Glyphs {
	term := os.Getenv("TERM")
	if term == "linux" || term == "dumb" {
		return asciiGlyphs
	}

	locale := os.Getenv("LC_ALL")
	if locale == "" {
		locale = os.Getenv("LC_CTYPE")
	}
	if locale == "" {
		locale = os.Getenv("LANG")
	}
	if locale != "" && !strings.Contains(strings.ToUpper(locale), "UTF") {
		return asciiGlyphs
	}

	return unicodeGlyphs
}

// ASCIIGlyphs returns the plain ASCII glyph set.
func ASCIIGlyphs() Glyphs { return asciiGlyphs }
