// internal/ticket/item.go
package ticket

import "printer-bridge/internal/escpos"

// ItemType tags the variant of a print item
type ItemType string

const (
	ItemText       ItemType = "text"
	ItemQR         ItemType = "qr"
	ItemImage      ItemType = "image"
	ItemTable      ItemType = "table"
	ItemDivider    ItemType = "divider"
	ItemTwoColumns ItemType = "twoColumns"
)

// Style controls text appearance for a single item
type Style struct {
	Align     escpos.Alignment `json:"align"`
	Bold      bool             `json:"bold"`
	SizeLevel int              `json:"size"`
	Font      escpos.Font      `json:"font"`
}

// Item is one entry of a print job
type Item interface {
	Type() ItemType
	Alignment() escpos.Alignment
}

// TextItem prints one or more lines of text
type TextItem struct {
	Content string
	Style   Style
}

// QRItem prints a QR code rendered by the printer
type QRItem struct {
	Content    string
	ModuleSize int
	Align      escpos.Alignment
}

// ImageItem prints a bitmap. Data wins over URL once resolved.
type ImageItem struct {
	Data   []byte
	URL    string
	Width  int
	Height int
	Align  escpos.Alignment
}

// TableItem prints a character grid with percentage column widths
type TableItem struct {
	Header              []string
	ColumnWidthPercents []float64
	Rows                [][]string
}

// DividerItem prints a full-width rule
type DividerItem struct {
	FillChar    string
	MarginLines int
}

// TwoColumnsItem prints Columns[0] flush left and Columns[1] flush right
type TwoColumnsItem struct {
	Columns []string
	Style   Style
}

// UnknownItem is produced for entries whose type is not recognised
type UnknownItem struct {
	Name string
}

func (TextItem) Type() ItemType       { return ItemText }
func (QRItem) Type() ItemType         { return ItemQR }
func (ImageItem) Type() ItemType      { return ItemImage }
func (TableItem) Type() ItemType      { return ItemTable }
func (DividerItem) Type() ItemType    { return ItemDivider }
func (TwoColumnsItem) Type() ItemType { return ItemTwoColumns }
func (u UnknownItem) Type() ItemType  { return ItemType(u.Name) }

func (i TextItem) Alignment() escpos.Alignment       { return i.Style.Align }
func (i QRItem) Alignment() escpos.Alignment         { return i.Align }
func (i ImageItem) Alignment() escpos.Alignment      { return i.Align }
func (TableItem) Alignment() escpos.Alignment        { return escpos.AlignLeft }
func (DividerItem) Alignment() escpos.Alignment      { return escpos.AlignLeft }
func (i TwoColumnsItem) Alignment() escpos.Alignment { return i.Style.Align }
func (UnknownItem) Alignment() escpos.Alignment      { return escpos.AlignLeft }

// Options are the job-wide settings
type Options struct {
	WidthClass  int    `json:"widthClass"`
	Encoding    string `json:"encoding"`
	LineSpacing int    `json:"lineSpacing"`
	FeedLines   int    `json:"feedLines"`
}

// DefaultOptions returns the settings used when a job does not override them
func DefaultOptions() Options {
	return Options{
		WidthClass:  58,
		Encoding:    "UTF-8",
		LineSpacing: escpos.DefaultLineSpacing,
		FeedLines:   0,
	}
}

// Job is an ordered list of items plus options. It is not modified by compilation.
type Job struct {
	Items   []Item
	Options Options
}
