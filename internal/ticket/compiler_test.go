package ticket

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"printer-bridge/internal/model"
)

func concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

var (
	initSeq      = []byte{0x1B, 0x40}
	codepageUTF8 = []byte{0x1B, 0x74, 0x00}
	spacing30    = []byte{0x1B, 0x33, 30}
	alignLeft    = []byte{0x1B, 0x61, 0x00}
	alignCenter  = []byte{0x1B, 0x61, 0x01}
	boldOn       = []byte{0x1B, 0x45, 0x01}
	boldOff      = []byte{0x1B, 0x45, 0x00}
	size0        = []byte{0x1D, 0x21, 0x00}
	fontPrimary  = []byte{0x1B, 0x4D, 0x00}
	spacingReset = []byte{0x1B, 0x32}
	lf           = []byte{0x0A}
)

func newTestCompiler() *Compiler {
	return NewCompiler(zap.NewNop(), 0)
}

func TestCompileBoldText(t *testing.T) {
	job := Job{
		Items:   []Item{TextItem{Content: "Hi", Style: Style{Bold: true}}},
		Options: DefaultOptions(),
	}

	got, err := newTestCompiler().Compile(job)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	want := concat(
		initSeq, codepageUTF8, spacing30,
		alignLeft, boldOn, size0, fontPrimary, []byte("Hi"), lf,
		boldOff, size0, fontPrimary, alignLeft,
		spacingReset,
	)
	if !bytes.Equal(got, want) {
		t.Fatalf("Compile() =\n% x\nwant\n% x", got, want)
	}
}

func TestCompileEmptyJobWithFeed(t *testing.T) {
	opts := DefaultOptions()
	opts.FeedLines = 4
	opts.Encoding = "CP1252"
	opts.LineSpacing = 24

	got, err := newTestCompiler().Compile(Job{Options: opts})
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	want := concat(initSeq, []byte{0x1B, 0x74, 16}, []byte{0x1B, 0x33, 24}, spacingReset, []byte{0x1B, 0x64, 4})
	if !bytes.Equal(got, want) {
		t.Fatalf("Compile() = % x, want % x", got, want)
	}
}

func TestCompileEncodesTextWithCodepage(t *testing.T) {
	opts := DefaultOptions()
	opts.Encoding = "CP437"

	got, err := newTestCompiler().Compile(Job{Items: []Item{TextItem{Content: "é"}}, Options: opts})
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	if !bytes.Contains(got, []byte{0x82, 0x0A}) {
		t.Errorf("expected CP437 é (0x82) followed by LF in % x", got)
	}
}

func TestCompileSkipsIncompleteItems(t *testing.T) {
	job := Job{
		Items: []Item{
			TableItem{ColumnWidthPercents: []float64{50, 50}, Rows: [][]string{{"a", "b"}}},
			TableItem{Header: []string{"a"}},
			TwoColumnsItem{Columns: []string{"only"}},
			ImageItem{URL: "https://example.invalid/logo.png"},
			ImageItem{Data: []byte("garbage")},
			QRItem{},
		},
		Options: DefaultOptions(),
	}

	got, err := newTestCompiler().Compile(job)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	want := concat(initSeq, codepageUTF8, spacing30, spacingReset)
	if !bytes.Equal(got, want) {
		t.Fatalf("skipped items leaked output: % x", got)
	}
}

func TestCompileWarnsOnUnknownEncoding(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	c := NewCompiler(zap.New(core), 0)

	opts := DefaultOptions()
	opts.Encoding = "klingon"
	got, err := c.Compile(Job{Items: []Item{TextItem{Content: "a"}}, Options: opts})
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	if !bytes.HasPrefix(got, concat(initSeq, codepageUTF8)) {
		t.Errorf("unknown encoding did not fall back to UTF-8: % x", got)
	}
	if n := logs.FilterField(zap.String("encoding", "klingon")).Len(); n != 1 {
		t.Errorf("logged %d encoding warnings, want 1", n)
	}

	opts.Encoding = "cp437"
	if _, err := c.Compile(Job{Options: opts}); err != nil {
		t.Fatal(err)
	}
	if logs.Len() != 1 {
		t.Errorf("known encoding produced a warning: %v", logs.All())
	}
}

func TestCompileUnknownItemFails(t *testing.T) {
	_, err := newTestCompiler().Compile(Job{
		Items:   []Item{TextItem{Content: "a"}, UnknownItem{Name: "barcode"}},
		Options: DefaultOptions(),
	})
	if !errors.Is(err, model.ErrCompile) {
		t.Fatalf("Compile() error = %v, want ErrCompile", err)
	}
	if model.KindOf(err) != model.KindCompileError {
		t.Errorf("KindOf() = %s", model.KindOf(err))
	}
}

func TestCompileDividerWithMargins(t *testing.T) {
	opts := DefaultOptions()
	opts.WidthClass = 80

	got, err := newTestCompiler().Compile(Job{
		Items:   []Item{DividerItem{FillChar: "=", MarginLines: 2}},
		Options: opts,
	})
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	feed2 := []byte{0x1B, 0x64, 2}
	want := concat(
		initSeq, codepageUTF8, spacing30,
		alignLeft, feed2, []byte(strings.Repeat("=", 48)), lf, feed2, alignLeft,
		spacingReset,
	)
	if !bytes.Equal(got, want) {
		t.Fatalf("Compile() =\n% x\nwant\n% x", got, want)
	}
}

func TestCompileTwoColumns(t *testing.T) {
	got, err := newTestCompiler().Compile(Job{
		Items:   []Item{TwoColumnsItem{Columns: []string{"A", "B"}, Style: Style{Align: 1}}},
		Options: DefaultOptions(),
	})
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	want := concat(
		initSeq, codepageUTF8, spacing30,
		alignCenter, boldOff, size0, fontPrimary,
		[]byte("A"+strings.Repeat(" ", 30)+"B"), lf,
		boldOff, size0, fontPrimary, alignLeft,
		spacingReset,
	)
	if !bytes.Equal(got, want) {
		t.Fatalf("Compile() =\n% x\nwant\n% x", got, want)
	}
}

func TestCompileTable(t *testing.T) {
	got, err := newTestCompiler().Compile(Job{
		Items: []Item{TableItem{
			Header:              []string{"Item", "Qty", "Sum"},
			ColumnWidthPercents: []float64{50, 30, 20},
			Rows:                [][]string{{"Tea", "1", "2.50"}},
		}},
		Options: DefaultOptions(),
	})
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	body := "Item            Qty      Sum    \nTea             1        2.50   \n"
	want := concat(initSeq, codepageUTF8, spacing30, alignLeft, []byte(body), alignLeft, spacingReset)
	if !bytes.Equal(got, want) {
		t.Fatalf("Compile() =\n%q\nwant\n%q", got, want)
	}
}

func TestCompileQR(t *testing.T) {
	got, err := newTestCompiler().Compile(Job{
		Items:   []Item{QRItem{Content: "https://example.com", ModuleSize: 4, Align: 1}},
		Options: DefaultOptions(),
	})
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	if !bytes.Contains(got, []byte{0x1D, 0x28, 0x6B, 0x03, 0x00, 0x31, 0x43, 0x04}) {
		t.Error("missing module size frame")
	}
	if !bytes.Contains(got, append([]byte{0x1D, 0x28, 0x6B, 22, 0x00, 0x31, 0x50, 0x30}, "https://example.com"...)) {
		t.Error("missing store frame")
	}
	if !bytes.Contains(got, concat(alignCenter, []byte{0x1D, 0x28, 0x6B})) {
		t.Error("QR not centred")
	}
}

func TestCompileQRTooLongIsSkipped(t *testing.T) {
	got, err := newTestCompiler().Compile(Job{
		Items:   []Item{QRItem{Content: strings.Repeat("x", 4000)}},
		Options: DefaultOptions(),
	})
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	if bytes.Contains(got, []byte{0x1D, 0x28, 0x6B}) {
		t.Error("oversized QR should be skipped")
	}
}

func TestCompileImage(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 16, 2))
	for x := 0; x < 16; x++ {
		img.Set(x, 0, color.Black)
		img.Set(x, 1, color.White)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}

	got, err := newTestCompiler().Compile(Job{
		Items:   []Item{ImageItem{Data: buf.Bytes()}},
		Options: DefaultOptions(),
	})
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	raster := []byte{0x1D, 0x76, 0x30, 0x00, 2, 0, 2, 0, 0xFF, 0xFF, 0x00, 0x00, 0x0A}
	want := concat(initSeq, codepageUTF8, spacing30, alignLeft, raster, alignLeft, spacingReset)
	if !bytes.Equal(got, want) {
		t.Fatalf("Compile() =\n% x\nwant\n% x", got, want)
	}
}

func TestCompileSkipsOversizedImage(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, 16, 16))); err != nil {
		t.Fatal(err)
	}

	got, err := NewCompiler(zap.NewNop(), 1<<20).Compile(Job{
		Items: []Item{
			ImageItem{Data: buf.Bytes(), Width: 200000},
			ImageItem{Data: buf.Bytes(), Width: 2048, Height: 2048},
		},
		Options: DefaultOptions(),
	})
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	want := concat(initSeq, codepageUTF8, spacing30, spacingReset)
	if !bytes.Equal(got, want) {
		t.Fatalf("oversized images leaked output: % x", got)
	}
}

func TestCompileDoesNotMutateJob(t *testing.T) {
	items := []Item{TextItem{Content: "a"}, DividerItem{}}
	job := Job{Items: items, Options: DefaultOptions()}

	first, err := newTestCompiler().Compile(job)
	if err != nil {
		t.Fatal(err)
	}
	second, err := newTestCompiler().Compile(job)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(first, second) {
		t.Error("compiling the same job twice produced different output")
	}
}
