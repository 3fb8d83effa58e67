// internal/layout/layout.go
package layout

import (
	"iter"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"printer-bridge/internal/escpos"
)

// Width classes in millimetres
const (
	Width58 = 58
	Width80 = 80
)

var hundred = decimal.NewFromInt(100)

// baseColumns returns the character grid width for size level 0
func baseColumns(widthClass int, font escpos.Font) int {
	secondary := font == escpos.FontSecondary
	switch {
	case widthClass >= Width80:
		if secondary {
			return 64
		}
		return 48
	case widthClass >= Width58:
		if secondary {
			return 42
		}
		return 32
	default:
		if secondary {
			return 32
		}
		return 24
	}
}

// SizeMultiplier is the horizontal magnification for a size level
func SizeMultiplier(sizeLevel int) int {
	switch {
	case sizeLevel <= 0:
		return 1
	case sizeLevel <= 7:
		return sizeLevel + 1
	default:
		return int(escpos.Clamp(sizeLevel)>>4) + 1
	}
}

// MaxColumns returns how many characters fit on one printed line
func MaxColumns(widthClass int, font escpos.Font, sizeLevel int) int {
	return baseColumns(widthClass, font) / SizeMultiplier(sizeLevel)
}

// Chunks yields consecutive width-character slices of text. The final chunk
// holds the remainder; empty text yields nothing. The sequence can be ranged
// over more than once.
func Chunks(text string, width int) iter.Seq[string] {
	return func(yield func(string) bool) {
		if text == "" {
			return
		}
		if width <= 0 {
			yield(text)
			return
		}
		rest := text
		for rest != "" {
			cut, n := 0, 0
			for cut < len(rest) && n < width {
				_, size := utf8.DecodeRuneInString(rest[cut:])
				cut += size
				n++
			}
			if !yield(rest[:cut]) {
				return
			}
			rest = rest[cut:]
		}
	}
}

// Wrap collects Chunks into a slice
func Wrap(text string, width int) []string {
	var lines []string
	for chunk := range Chunks(text, width) {
		lines = append(lines, chunk)
	}
	return lines
}

// ColumnWidths converts percentages of maxColumns into character widths.
// Each column is floored; the last column absorbs the rounding remainder.
func ColumnWidths(percents []float64, maxColumns int) []int {
	if len(percents) == 0 {
		return nil
	}
	total := decimal.NewFromInt(int64(maxColumns))
	widths := make([]int, len(percents))
	sum := 0
	for i, p := range percents {
		if p < 0 {
			p = 0
		}
		w := int(decimal.NewFromFloat(p).Mul(total).Div(hundred).Floor().IntPart())
		widths[i] = w
		sum += w
	}
	last := len(widths) - 1
	widths[last] += maxColumns - sum
	if widths[last] < 0 {
		widths[last] = 0
	}
	return widths
}

// Table lays out an optional header and rows as physical lines, one per
// printed line, without terminators.
func Table(header []string, percents []float64, rows [][]string, widthClass int) []string {
	widths := ColumnWidths(percents, MaxColumns(widthClass, escpos.FontPrimary, 0))
	if len(widths) == 0 {
		return nil
	}

	var lines []string
	if len(header) > 0 {
		lines = append(lines, tableRow(header, widths)...)
	}
	for _, row := range rows {
		lines = append(lines, tableRow(row, widths)...)
	}
	return lines
}

func tableRow(cells []string, widths []int) []string {
	wrapped := make([][]string, len(widths))
	height := 1
	for i, w := range widths {
		if i < len(cells) && w > 0 {
			wrapped[i] = Wrap(cells[i], w)
		}
		if len(wrapped[i]) > height {
			height = len(wrapped[i])
		}
	}

	lines := make([]string, 0, height)
	for line := 0; line < height; line++ {
		var sb strings.Builder
		for i, w := range widths {
			var cell string
			if line < len(wrapped[i]) {
				cell = wrapped[i][line]
			}
			sb.WriteString(fit(cell, w))
		}
		lines = append(lines, sb.String())
	}
	return lines
}

// fit right-pads s with spaces to width characters, truncating longer input
func fit(s string, width int) string {
	n := utf8.RuneCountInString(s)
	if n > width {
		return string([]rune(s)[:width])
	}
	return s + strings.Repeat(" ", width-n)
}

// TwoColumns places left flush left and right flush right on one line.
// When they do not fit they are joined by a single space and left to the
// printer to wrap.
func TwoColumns(left, right string, widthClass int, font escpos.Font, sizeLevel int) string {
	maxCols := MaxColumns(widthClass, font, sizeLevel)
	used := utf8.RuneCountInString(left) + utf8.RuneCountInString(right)
	if used >= maxCols {
		return left + " " + right
	}
	return left + strings.Repeat(" ", maxCols-used) + right
}

// Divider repeats the first rune of fillChar across the default grid width.
// An empty fillChar draws dashes.
func Divider(fillChar string, widthClass int) string {
	fill := "-"
	if r, size := utf8.DecodeRuneInString(fillChar); size > 0 && r != utf8.RuneError {
		fill = string(r)
	}
	return strings.Repeat(fill, MaxColumns(widthClass, escpos.FontPrimary, 0))
}
