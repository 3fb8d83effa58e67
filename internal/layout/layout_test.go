package layout

import (
	"strings"
	"testing"
	"unicode/utf8"

	"printer-bridge/internal/escpos"
)

func TestMaxColumns(t *testing.T) {
	tests := []struct {
		width int
		font  escpos.Font
		size  int
		want  int
	}{
		{80, escpos.FontPrimary, 0, 48},
		{58, escpos.FontPrimary, 0, 32},
		{50, escpos.FontPrimary, 0, 24},
		{112, escpos.FontPrimary, 0, 48},
		{80, escpos.FontSecondary, 0, 64},
		{58, escpos.FontSecondary, 0, 42},
		{40, escpos.FontSecondary, 0, 32},
		{80, escpos.FontPrimary, 1, 24},
		{58, escpos.FontPrimary, 2, 10},
		{58, escpos.FontPrimary, 7, 4},
		{80, escpos.FontPrimary, 0x10, 24}, // raw byte, width x2
		{80, escpos.FontPrimary, 0x21, 16}, // raw byte, width x3
	}

	for _, tt := range tests {
		if got := MaxColumns(tt.width, tt.font, tt.size); got != tt.want {
			t.Errorf("MaxColumns(%d, %d, %d) = %d, want %d", tt.width, tt.font, tt.size, got, tt.want)
		}
	}
}

func TestWrapPreservesText(t *testing.T) {
	texts := []string{"a", "abcdef", "abcdefg", "héllo wörld ünïcode", strings.Repeat("x", 100)}
	for _, text := range texts {
		for w := 1; w <= 8; w++ {
			chunks := Wrap(text, w)
			if got := strings.Join(chunks, ""); got != text {
				t.Errorf("Wrap(%q, %d) joined = %q", text, w, got)
			}
			for i, c := range chunks {
				n := utf8.RuneCountInString(c)
				if i < len(chunks)-1 && n != w {
					t.Errorf("Wrap(%q, %d) chunk %d has %d chars", text, w, i, n)
				}
				if i == len(chunks)-1 && (n < 1 || n > w) {
					t.Errorf("Wrap(%q, %d) last chunk has %d chars", text, w, n)
				}
			}
		}
	}
}

func TestWrapEmpty(t *testing.T) {
	if got := Wrap("", 5); len(got) != 0 {
		t.Errorf("Wrap(\"\", 5) = %v, want empty", got)
	}
}

func TestChunksRestartable(t *testing.T) {
	seq := Chunks("abcde", 2)
	var first, second []string
	for c := range seq {
		first = append(first, c)
	}
	for c := range seq {
		second = append(second, c)
	}
	if strings.Join(first, "|") != "ab|cd|e" || strings.Join(second, "|") != "ab|cd|e" {
		t.Errorf("got %v then %v", first, second)
	}
}

func TestColumnWidths(t *testing.T) {
	tests := []struct {
		percents []float64
		max      int
		want     []int
	}{
		{[]float64{50, 30, 20}, 32, []int{16, 9, 7}},
		{[]float64{33.3, 33.3, 33.3}, 32, []int{10, 10, 12}},
		{[]float64{25, 25}, 48, []int{12, 36}},
		{[]float64{100}, 24, []int{24}},
		{[]float64{7, 7, 86}, 48, []int{3, 3, 42}},
	}

	for _, tt := range tests {
		got := ColumnWidths(tt.percents, tt.max)
		sum := 0
		for i := range got {
			sum += got[i]
			if got[i] != tt.want[i] {
				t.Errorf("ColumnWidths(%v, %d) = %v, want %v", tt.percents, tt.max, got, tt.want)
				break
			}
		}
		if sum != tt.max {
			t.Errorf("ColumnWidths(%v, %d) sums to %d", tt.percents, tt.max, sum)
		}
	}
}

func TestTableWrapsCellsIndependently(t *testing.T) {
	lines := Table(
		[]string{"Item", "Qty", "Sum"},
		[]float64{50, 30, 20},
		[][]string{{"Very long product name", "2", "10.00"}},
		58,
	)

	want := []string{
		"Item            Qty      Sum    ",
		"Very long produc2        10.00  ",
		"t name                          ",
	}
	if len(lines) != len(want) {
		t.Fatalf("Table() returned %d lines, want %d: %q", len(lines), len(want), lines)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
		if n := utf8.RuneCountInString(lines[i]); n != 32 {
			t.Errorf("line %d has %d chars, want 32", i, n)
		}
	}
}

func TestTableShortRowPadsMissingCells(t *testing.T) {
	lines := Table(nil, []float64{50, 50}, [][]string{{"a"}}, 80)
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1", len(lines))
	}
	if lines[0] != "a"+strings.Repeat(" ", 47) {
		t.Errorf("line = %q", lines[0])
	}
}

func TestTwoColumns(t *testing.T) {
	got := TwoColumns("A", "B", 58, escpos.FontPrimary, 0)
	if want := "A" + strings.Repeat(" ", 30) + "B"; got != want {
		t.Errorf("TwoColumns = %q, want %q", got, want)
	}

	long := strings.Repeat("L", 20)
	got = TwoColumns(long, strings.Repeat("R", 12), 58, escpos.FontPrimary, 0)
	if want := long + " " + strings.Repeat("R", 12); got != want {
		t.Errorf("overflowing TwoColumns = %q, want %q", got, want)
	}
}

func TestDivider(t *testing.T) {
	if got := Divider("=", 80); got != strings.Repeat("=", 48) {
		t.Errorf("Divider(=, 80) = %q", got)
	}
	if got := Divider("", 58); got != strings.Repeat("-", 32) {
		t.Errorf("Divider(\"\", 58) = %q", got)
	}
	if got := Divider("*#", 40); got != strings.Repeat("*", 24) {
		t.Errorf("Divider(*#, 40) = %q", got)
	}
}
