package viewer

import (
	"strconv"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"

	"github.com/kobzarvs/qview/internal/config"
)

type styles struct {
	main      tcell.Style
	status    tcell.Style
	command   tcell.Style
	offset    tcell.Style
	ascii     tcell.Style
	selection tcell.Style
	match     tcell.Style
	err       tcell.Style
}

func newStyles(t config.Theme) styles {
	mainFg := parseColor(t.Foreground, tcell.ColorWhite)
	mainBg := parseColor(t.Background, tcell.ColorBlack)
	statusFg := parseColor(t.StatuslineForeground, tcell.ColorBlack)
	statusBg := parseColor(t.StatuslineBackground, tcell.ColorGray)
	commandFg := parseColor(t.CommandlineForeground, statusFg)
	commandBg := parseColor(t.CommandlineBackground, statusBg)
	return styles{
		main:      tcell.StyleDefault.Foreground(mainFg).Background(mainBg),
		status:    tcell.StyleDefault.Foreground(statusFg).Background(statusBg),
		command:   tcell.StyleDefault.Foreground(commandFg).Background(commandBg),
		offset:    tcell.StyleDefault.Foreground(parseColor(t.OffsetForeground, tcell.ColorGray)).Background(mainBg),
		ascii:     tcell.StyleDefault.Foreground(parseColor(t.AsciiForeground, mainFg)).Background(mainBg),
		selection: tcell.StyleDefault.Foreground(parseColor(t.SelectionForeground, mainFg)).Background(parseColor(t.SelectionBackground, mainBg)),
		match:     tcell.StyleDefault.Foreground(parseColor(t.SearchMatchForeground, tcell.ColorBlack)).Background(parseColor(t.SearchMatchBackground, tcell.ColorYellow)),
		err:       tcell.StyleDefault.Foreground(parseColor(t.ErrorForeground, tcell.ColorRed)).Background(commandBg),
	}
}

func parseColor(name string, fallback tcell.Color) tcell.Color {
	name = strings.TrimSpace(name)
	if name == "" {
		return fallback
	}
	if strings.HasPrefix(name, "#") && len(name) == 7 {
		r, err1 := strconv.ParseInt(name[1:3], 16, 32)
		g, err2 := strconv.ParseInt(name[3:5], 16, 32)
		b, err3 := strconv.ParseInt(name[5:7], 16, 32)
		if err1 == nil && err2 == nil && err3 == nil {
			return tcell.NewRGBColor(int32(r), int32(g), int32(b))
		}
		return fallback
	}
	name = strings.ToLower(name)
	if name == "default" {
		return tcell.ColorDefault
	}
	c := tcell.GetColor(name)
	if c == tcell.ColorDefault {
		return fallback
	}
	return c
}

func clearLine(s tcell.Screen, y, w int, style tcell.Style) {
	for x := 0; x < w; x++ {
		s.SetContent(x, y, ' ', nil, style)
	}
}

// drawString draws str from column x and returns the column after it.
// Drawing stops at maxX.
func drawString(s tcell.Screen, x, y, maxX int, str string, style tcell.Style) int {
	for _, r := range str {
		w := runewidth.RuneWidth(r)
		if w == 0 {
			continue
		}
		if x+w > maxX {
			break
		}
		s.SetContent(x, y, r, nil, style)
		x += w
	}
	return x
}

func composeStatusLine(left, right string, width int) []rune {
	if width <= 0 {
		return nil
	}
	leftRunes := []rune(left)
	rightRunes := []rune(right)
	if len(leftRunes)+len(rightRunes) > width {
		if len(rightRunes) >= width {
			rightRunes = rightRunes[len(rightRunes)-width:]
			leftRunes = nil
		} else {
			leftRunes = leftRunes[:width-len(rightRunes)]
		}
	}
	spaceCount := width - len(leftRunes) - len(rightRunes)
	line := make([]rune, 0, width)
	line = append(line, leftRunes...)
	for i := 0; i < spaceCount; i++ {
		line = append(line, ' ')
	}
	line = append(line, rightRunes...)
	return line
}

func drawStatusLine(s tcell.Screen, y, width int, left, right string, style tcell.Style) {
	clearLine(s, y, width, style)
	for x, r := range composeStatusLine(left, right, width) {
		s.SetContent(x, y, r, nil, style)
	}
}

// printable maps a byte to the rune shown in an ASCII column.
func printable(b byte) rune {
	if b < 0x20 || b >= 0x7f {
		if b == 0x00 || b == '\n' || b == '\r' {
			return ' '
		}
		return '.'
	}
	return rune(b)
}

func percent(pos, total int64) int {
	if total <= 0 {
		return 100
	}
	p := pos * 100 / total
	if p > 100 {
		p = 100
	}
	return int(p)
}
