package tui

import (
	"os"
	"strings"
	"sync/atomic"
)

// Some terminal fonts render bullets and separators badly, so the UI can fall
// back to plain ASCII.

type glyphSet int32

const (
	glyphSetUnicode glyphSet = iota
	glyphSetASCII
)

type glyphTable struct {
	bullet string
	sep    string
}

var glyphTables = map[glyphSet]glyphTable{
	glyphSetUnicode: {bullet: "•", sep: "·"},
	glyphSetASCII:   {bullet: "*", sep: "|"},
}

var currentGlyphs atomic.Int32

// applyGlyphPreference picks the glyph set from TASKDECK_TUI_GLYPHS, falling
// back to the configured value. Unknown values keep the current set.
func applyGlyphPreference(configured string) {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("TASKDECK_TUI_GLYPHS")))
	if v == "" {
		v = strings.ToLower(strings.TrimSpace(configured))
	}
	switch v {
	case "", "unicode", "utf8":
		setGlyphs(glyphSetUnicode)
	case "ascii":
		setGlyphs(glyphSetASCII)
	}
}

func setGlyphs(gs glyphSet) { currentGlyphs.Store(int32(gs)) }

func glyphs() glyphSet { return glyphSet(currentGlyphs.Load()) }

func glyphBullet() string { return glyphTables[glyphs()].bullet }

// glyphSep separates header segments ("Projects · 3 projects").
func glyphSep() string { return glyphTables[glyphs()].sep }
