// internal/ticket/compiler.go
package ticket

import (
	"bytes"

	qrcode "github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"printer-bridge/internal/escpos"
	"printer-bridge/internal/layout"
	"printer-bridge/internal/model"
	"printer-bridge/internal/raster"
)

// Compiler turns jobs into ESC/POS byte streams. It holds no mutable state
// and may be shared between goroutines.
type Compiler struct {
	logger    *zap.Logger
	maxPixels int
}

// NewCompiler creates a compiler that reports skipped items to logger.
// maxPixels bounds image sources and targets; zero selects the raster default.
func NewCompiler(logger *zap.Logger, maxPixels int) *Compiler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Compiler{
		logger:    logger.With(zap.String("component", "compiler")),
		maxPixels: maxPixels,
	}
}

// Compile renders the whole job into one buffer. Items that cannot be
// rendered are skipped; only an unrecognised item type fails the job.
func (c *Compiler) Compile(job Job) ([]byte, error) {
	opts := job.Options
	if opts.Encoding != "" && !escpos.IsKnownEncoding(opts.Encoding) {
		c.logger.Warn("Unknown encoding, falling back to UTF-8", zap.String("encoding", opts.Encoding))
	}
	enc, selector := escpos.Resolve(opts.Encoding)

	var buf bytes.Buffer
	buf.Write(escpos.Initialize())
	buf.Write(escpos.SetCodepage(selector))
	buf.Write(escpos.SetLineSpacing(opts.LineSpacing))

	for i, item := range job.Items {
		body, err := c.compileItem(i, item, opts, enc)
		if err != nil {
			return nil, err
		}
		if body == nil {
			continue
		}
		buf.Write(escpos.Align(item.Alignment()))
		buf.Write(body)
		buf.Write(escpos.Align(escpos.AlignLeft))
	}

	buf.Write(escpos.ResetLineSpacing())
	if opts.FeedLines > 0 {
		buf.Write(escpos.Feed(opts.FeedLines))
	}
	return buf.Bytes(), nil
}

// compileItem returns the item body, or nil when the item is skipped
func (c *Compiler) compileItem(index int, item Item, opts Options, enc escpos.ByteEncoder) ([]byte, error) {
	if item == nil {
		return nil, model.Errorf(model.ErrCompile, "compile", "item %d is empty", index)
	}

	var buf bytes.Buffer

	switch it := item.(type) {
	case TextItem:
		writeStyle(&buf, it.Style)
		buf.Write(enc.Encode(it.Content))
		buf.WriteByte(escpos.LineFeed)
		writeStyleReset(&buf)

	case QRItem:
		if it.Content == "" {
			c.skip(index, item, "empty QR content")
			return nil, nil
		}
		if _, err := qrcode.New(it.Content, qrcode.Medium); err != nil {
			c.skip(index, item, "QR content exceeds capacity", zap.Error(err))
			return nil, nil
		}
		buf.Write(escpos.QRCode([]byte(it.Content), it.ModuleSize))
		buf.WriteByte(escpos.LineFeed)

	case ImageItem:
		if len(it.Data) == 0 {
			c.skip(index, item, "image source unavailable", zap.String("url", it.URL))
			return nil, nil
		}
		img, err := raster.Decode(it.Data, c.maxPixels)
		if err != nil {
			c.skip(index, item, "image decode failed", zap.Error(err))
			return nil, nil
		}
		bm, err := raster.Rasterize(img, raster.DotWidth(opts.WidthClass), it.Width, it.Height, c.maxPixels)
		if err != nil {
			c.skip(index, item, "image rasterize failed", zap.Error(err))
			return nil, nil
		}
		buf.Write(bm.Encode())
		buf.WriteByte(escpos.LineFeed)

	case TableItem:
		if len(it.Header) == 0 || len(it.ColumnWidthPercents) == 0 {
			c.skip(index, item, "table requires header and column widths")
			return nil, nil
		}
		for _, line := range layout.Table(it.Header, it.ColumnWidthPercents, it.Rows, opts.WidthClass) {
			buf.Write(enc.Encode(line))
			buf.WriteByte(escpos.LineFeed)
		}

	case DividerItem:
		if it.MarginLines > 0 {
			buf.Write(escpos.Feed(it.MarginLines))
		}
		buf.Write(enc.Encode(layout.Divider(it.FillChar, opts.WidthClass)))
		buf.WriteByte(escpos.LineFeed)
		if it.MarginLines > 0 {
			buf.Write(escpos.Feed(it.MarginLines))
		}

	case TwoColumnsItem:
		if len(it.Columns) < 2 {
			c.skip(index, item, "two columns requires two strings")
			return nil, nil
		}
		writeStyle(&buf, it.Style)
		line := layout.TwoColumns(it.Columns[0], it.Columns[1], opts.WidthClass, it.Style.Font, it.Style.SizeLevel)
		buf.Write(enc.Encode(line))
		buf.WriteByte(escpos.LineFeed)
		writeStyleReset(&buf)

	default:
		return nil, model.Errorf(model.ErrCompile, "compile", "item %d: unsupported type %q", index, item.Type())
	}

	return buf.Bytes(), nil
}

func (c *Compiler) skip(index int, item Item, reason string, fields ...zap.Field) {
	c.logger.Warn("Skipping print item",
		append([]zap.Field{
			zap.Int("index", index),
			zap.String("type", string(item.Type())),
			zap.String("reason", reason),
		}, fields...)...,
	)
}

func writeStyle(buf *bytes.Buffer, st Style) {
	buf.Write(escpos.Bold(st.Bold))
	buf.Write(escpos.PointSize(st.SizeLevel))
	buf.Write(escpos.SelectFont(st.Font))
}

func writeStyleReset(buf *bytes.Buffer) {
	buf.Write(escpos.Bold(false))
	buf.Write(escpos.PointSize(0))
	buf.Write(escpos.SelectFont(escpos.FontPrimary))
}
