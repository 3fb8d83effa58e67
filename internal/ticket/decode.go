// internal/ticket/decode.go
package ticket

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"printer-bridge/internal/escpos"
)

// fields is a JSON object with case-insensitive key lookup
type fields map[string]json.RawMessage

func parseFields(raw json.RawMessage) (fields, bool) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		return nil, false
	}
	f := make(fields, len(obj))
	for k, v := range obj {
		f[strings.ToLower(k)] = v
	}
	return f, true
}

// get returns the first present key among names
func (f fields) get(names ...string) (json.RawMessage, bool) {
	for _, name := range names {
		if v, ok := f[strings.ToLower(name)]; ok && !isNull(v) {
			return v, true
		}
	}
	return nil, false
}

func isNull(raw json.RawMessage) bool {
	return len(bytes.TrimSpace(raw)) == 0 || string(bytes.TrimSpace(raw)) == "null"
}

// str decodes a JSON string; any other JSON value degrades to ""
func (f fields) str(names ...string) string {
	raw, ok := f.get(names...)
	if !ok {
		return ""
	}
	return asString(raw)
}

func asString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// num decodes a JSON number or numeric string, else def
func (f fields) num(def float64, names ...string) float64 {
	raw, ok := f.get(names...)
	if !ok {
		return def
	}
	if n, ok := asNumber(raw); ok {
		return n
	}
	return def
}

func asNumber(raw json.RawMessage) (float64, bool) {
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil && !math.IsNaN(n) && !math.IsInf(n, 0) {
		return n, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		var v float64
		if _, err := fmt.Sscanf(strings.TrimSpace(s), "%g", &v); err == nil {
			return v, true
		}
	}
	return 0, false
}

func (f fields) integer(def int, names ...string) int {
	return int(f.num(float64(def), names...))
}

func (f fields) boolean(names ...string) bool {
	raw, ok := f.get(names...)
	if !ok {
		return false
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b
	}
	if n, ok := asNumber(raw); ok {
		return n != 0
	}
	return false
}

// stringList decodes an array whose non-string members degrade to ""
func (f fields) stringList(names ...string) []string {
	raw, ok := f.get(names...)
	if !ok {
		return nil
	}
	return asStrings(raw)
}

func asStrings(raw json.RawMessage) []string {
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil
	}
	out := make([]string, len(elems))
	for i, e := range elems {
		out[i] = asString(e)
	}
	return out
}

func (f fields) numbers(names ...string) []float64 {
	raw, ok := f.get(names...)
	if !ok {
		return nil
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil
	}
	out := make([]float64, len(elems))
	for i, e := range elems {
		out[i], _ = asNumber(e)
	}
	return out
}

func (f fields) rows(names ...string) [][]string {
	raw, ok := f.get(names...)
	if !ok {
		return nil
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil
	}
	out := make([][]string, 0, len(elems))
	for _, e := range elems {
		out = append(out, asStrings(e))
	}
	return out
}

func parseAlign(raw json.RawMessage) escpos.Alignment {
	if n, ok := asNumber(raw); ok {
		switch int(n) {
		case 1:
			return escpos.AlignCenter
		case 2:
			return escpos.AlignRight
		}
		return escpos.AlignLeft
	}
	switch strings.ToLower(asString(raw)) {
	case "center", "centre", "middle":
		return escpos.AlignCenter
	case "right", "end":
		return escpos.AlignRight
	default:
		return escpos.AlignLeft
	}
}

func parseFont(raw json.RawMessage) escpos.Font {
	if n, ok := asNumber(raw); ok && int(n) == 1 {
		return escpos.FontSecondary
	}
	switch strings.ToLower(asString(raw)) {
	case "secondary", "b", "small":
		return escpos.FontSecondary
	default:
		return escpos.FontPrimary
	}
}

func (f fields) align() escpos.Alignment {
	if raw, ok := f.get("align", "alignment"); ok {
		return parseAlign(raw)
	}
	return escpos.AlignLeft
}

// style reads a nested style object. Absent fields keep their defaults.
func (f fields) style() Style {
	raw, ok := f.get("style")
	if !ok {
		return Style{}
	}
	sf, ok := parseFields(raw)
	if !ok {
		return Style{}
	}
	st := Style{
		Align:     sf.align(),
		Bold:      sf.boolean("bold"),
		SizeLevel: sf.integer(0, "size", "sizeLevel", "fontSize"),
	}
	if raw, ok := sf.get("font"); ok {
		st.Font = parseFont(raw)
	}
	if st.SizeLevel < 0 {
		st.SizeLevel = 0
	}
	return st
}

func normalizeType(t string) ItemType {
	switch strings.ToLower(strings.NewReplacer("_", "", "-", "", " ", "").Replace(t)) {
	case "text":
		return ItemText
	case "qr", "qrcode":
		return ItemQR
	case "image", "img", "bitmap":
		return ItemImage
	case "table":
		return ItemTable
	case "divider", "line", "separator":
		return ItemDivider
	case "twocolumns", "twocolumn", "columns":
		return ItemTwoColumns
	default:
		return ItemType(t)
	}
}

// DecodeItem converts one loosely typed JSON entry into an Item.
// Entries that are not objects or carry an unknown type become UnknownItem.
func DecodeItem(raw json.RawMessage) Item {
	f, ok := parseFields(raw)
	if !ok {
		return UnknownItem{}
	}

	switch t := normalizeType(f.str("type")); t {
	case ItemText:
		return TextItem{Content: f.str("content", "text"), Style: f.style()}

	case ItemQR:
		return QRItem{
			Content:    f.str("content", "data"),
			ModuleSize: f.integer(escpos.DefaultQRModuleSize, "size", "moduleSize"),
			Align:      f.align(),
		}

	case ItemImage:
		item := ImageItem{
			URL:    f.str("url", "src"),
			Width:  f.integer(0, "width"),
			Height: f.integer(0, "height"),
			Align:  f.align(),
		}
		if encoded := f.str("base64", "data", "content"); encoded != "" {
			if isRemote(encoded) && item.URL == "" {
				item.URL = encoded
			} else {
				item.Data = decodeBase64(encoded)
			}
		}
		return item

	case ItemTable:
		return TableItem{
			Header:              f.stringList("header", "headers"),
			ColumnWidthPercents: f.numbers("columnWidths", "columnWidthPercents", "widths"),
			Rows:                f.rows("rows", "content"),
		}

	case ItemDivider:
		return DividerItem{
			FillChar:    f.str("char", "fillChar", "content"),
			MarginLines: f.integer(0, "margin", "marginLines"),
		}

	case ItemTwoColumns:
		return TwoColumnsItem{
			Columns: f.stringList("content", "columns"),
			Style:   f.style(),
		}

	default:
		return UnknownItem{Name: string(t)}
	}
}

func isRemote(s string) bool {
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// decodeBase64 accepts plain or data-URI base64, returning nil when invalid
func decodeBase64(s string) []byte {
	if i := strings.Index(s, ";base64,"); strings.HasPrefix(s, "data:") && i >= 0 {
		s = s[i+len(";base64,"):]
	}
	s = strings.TrimSpace(s)
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding, base64.URLEncoding, base64.RawURLEncoding} {
		if b, err := enc.DecodeString(s); err == nil {
			return b
		}
	}
	return nil
}

// DecodeItems decodes every entry in order
func DecodeItems(raws []json.RawMessage) []Item {
	items := make([]Item, 0, len(raws))
	for _, raw := range raws {
		items = append(items, DecodeItem(raw))
	}
	return items
}

// DecodeOptions overlays the keys present in raw onto defaults
func DecodeOptions(raw json.RawMessage, defaults Options) Options {
	opts := defaults
	f, ok := parseFields(raw)
	if !ok {
		return opts
	}
	opts.WidthClass = f.integer(opts.WidthClass, "widthClass", "width", "paperWidth")
	if enc := f.str("encoding", "charset"); enc != "" {
		opts.Encoding = enc
	}
	opts.LineSpacing = int(escpos.Clamp(f.integer(opts.LineSpacing, "lineSpacing")))
	opts.FeedLines = int(escpos.Clamp(f.integer(opts.FeedLines, "feedLines", "feed")))
	return opts
}

// DecodeJob parses {"items": [...], "options": {...}}
func DecodeJob(data []byte, defaults Options) (Job, error) {
	var envelope struct {
		Items   []json.RawMessage `json:"items"`
		Options json.RawMessage   `json:"options"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return Job{}, fmt.Errorf("invalid print job: %w", err)
	}
	return Job{
		Items:   DecodeItems(envelope.Items),
		Options: DecodeOptions(envelope.Options, defaults),
	}, nil
}
