package lwmd

import (
	"sort"
	"strings"
)

const ansiReset = "\x1b[0m"

const (
	sgrBold      = "\x1b[1m"
	sgrItalic    = "\x1b[3m"
	sgrUnderline = "\x1b[4m"
	sgrStrike    = "\x1b[9m"
)

// Style describes a terminal style as an ANSI prefix sequence.
type Style struct {
	Prefix string
}

// Styles groups the semantic styles used by the terminal sink, one per
// emitted block kind plus plain text.
type Styles struct {
	Text           Style
	Heading        [6]Style
	Emphasis       Style
	Strong         Style
	StrongEmphasis Style
	Underline      Style
	Strikethrough  Style
	CodeSpan       Style
	CodeBlock      Style
	Rule           Style
}

// Theme provides named styles for terminal rendering.
type Theme interface {
	Name() string
	Styles() Styles
}

type theme struct {
	name   string
	styles Styles
}

func (t theme) Name() string   { return t.name }
func (t theme) Styles() Styles { return t.styles }

// NewTheme returns a Theme from a Styles definition.
func NewTheme(name string, styles Styles) Theme {
	return theme{name: name, styles: styles}
}

func style(prefixes ...string) Style {
	var b strings.Builder
	for _, p := range prefixes {
		if p != "" {
			b.WriteString(p)
		}
	}
	return Style{Prefix: b.String()}
}

func fg256(code string) string {
	return "\x1b[38;5;" + code + "m"
}

var builtinThemes = map[string]Theme{
	"default": theme{name: "default", styles: Styles{
		Text:           style(),
		Heading:        [6]Style{style(sgrBold, fg256("81")), style(sgrBold, fg256("75")), style(sgrBold, fg256("69")), style(sgrBold), style(sgrBold), style(sgrBold)},
		Emphasis:       style(sgrItalic),
		Strong:         style(sgrBold),
		StrongEmphasis: style(sgrBold, sgrItalic),
		Underline:      style(sgrUnderline),
		Strikethrough:  style(sgrStrike),
		CodeSpan:       style(fg256("215")),
		CodeBlock:      style(fg256("150")),
		Rule:           style(fg256("243")),
	}},
	"mono": theme{name: "mono", styles: Styles{
		Heading:        [6]Style{style(sgrBold), style(sgrBold), style(sgrBold), style(sgrBold), style(sgrBold), style(sgrBold)},
		Emphasis:       style(sgrItalic),
		Strong:         style(sgrBold),
		StrongEmphasis: style(sgrBold, sgrItalic),
		Underline:      style(sgrUnderline),
		Strikethrough:  style(sgrStrike),
	}},
	"boring": theme{name: "boring", styles: Styles{}},
}

// DefaultTheme returns the default color theme.
func DefaultTheme() Theme {
	return builtinThemes["default"]
}

// BoringTheme returns a theme with no styling, for plain-text output.
func BoringTheme() Theme {
	return builtinThemes["boring"]
}

// ThemeByName returns a built-in theme by name.
func ThemeByName(name string) (Theme, bool) {
	t, ok := builtinThemes[name]
	return t, ok
}

// AvailableThemes returns the names of built-in themes.
func AvailableThemes() []string {
	names := make([]string, 0, len(builtinThemes))
	for name := range builtinThemes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
