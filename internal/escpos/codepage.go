// internal/escpos/codepage.go
package escpos

import (
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
)

// ByteEncoder turns literal text into printer bytes
type ByteEncoder interface {
	Encode(text string) []byte
}

// utf8Encoder passes Go strings through unchanged
type utf8Encoder struct{}

func (utf8Encoder) Encode(text string) []byte {
	return []byte(text)
}

// textEncoder encodes through an x/text table, replacing unmappable runes
type textEncoder struct {
	enc encoding.Encoding
}

func (t textEncoder) Encode(text string) []byte {
	out, err := encoding.ReplaceUnsupported(t.enc.NewEncoder()).Bytes([]byte(text))
	if err != nil {
		return []byte(text)
	}
	return out
}

type codepage struct {
	encoder  ByteEncoder
	selector byte
}

// Selector values follow the ESC t table of Epson compatible firmware.
// Multi-byte encodings select table 0 and rely on the printer's kanji/hanzi mode.
var codepages = map[string]codepage{
	"UTF8":        {utf8Encoder{}, 0},
	"CP437":       {textEncoder{charmap.CodePage437}, 0},
	"CP850":       {textEncoder{charmap.CodePage850}, 2},
	"CP860":       {textEncoder{charmap.CodePage860}, 3},
	"CP863":       {textEncoder{charmap.CodePage863}, 4},
	"CP865":       {textEncoder{charmap.CodePage865}, 5},
	"ISO88597":    {textEncoder{charmap.ISO8859_7}, 15},
	"CP1252":      {textEncoder{charmap.Windows1252}, 16},
	"CP866":       {textEncoder{charmap.CodePage866}, 17},
	"CP852":       {textEncoder{charmap.CodePage852}, 18},
	"CP858":       {textEncoder{charmap.CodePage858}, 19},
	"ISO885915":   {textEncoder{charmap.ISO8859_15}, 40},
	"CP1250":      {textEncoder{charmap.Windows1250}, 45},
	"CP1251":      {textEncoder{charmap.Windows1251}, 46},
	"CP1253":      {textEncoder{charmap.Windows1253}, 47},
	"CP1254":      {textEncoder{charmap.Windows1254}, 48},
	"CP1255":      {textEncoder{charmap.Windows1255}, 49},
	"CP1256":      {textEncoder{charmap.Windows1256}, 50},
	"CP1257":      {textEncoder{charmap.Windows1257}, 51},
	"CP1258":      {textEncoder{charmap.Windows1258}, 52},
	"GB18030":     {textEncoder{simplifiedchinese.GB18030}, 0},
	"GBK":         {textEncoder{simplifiedchinese.GBK}, 0},
	"SHIFTJIS":    {textEncoder{japanese.ShiftJIS}, 0},
	"EUCJP":       {textEncoder{japanese.EUCJP}, 0},
	"BIG5":        {textEncoder{traditionalchinese.Big5}, 0},
	"EUCKR":       {textEncoder{korean.EUCKR}, 0},
	"ISO88591":    {textEncoder{charmap.ISO8859_1}, 16},
	"ISO88592":    {textEncoder{charmap.ISO8859_2}, 45},
	"ISO88595":    {textEncoder{charmap.ISO8859_5}, 46},
	"KOI8R":       {textEncoder{charmap.KOI8R}, 46},
	"MACINTOSH":   {textEncoder{charmap.Macintosh}, 16},
	"WINDOWS874":  {textEncoder{charmap.Windows874}, 21},
	"TIS620":      {textEncoder{charmap.Windows874}, 21},
	"CP874":       {textEncoder{charmap.Windows874}, 21},
	"IBM437":      {textEncoder{charmap.CodePage437}, 0},
	"PC437":       {textEncoder{charmap.CodePage437}, 0},
	"PC850":       {textEncoder{charmap.CodePage850}, 2},
	"PC852":       {textEncoder{charmap.CodePage852}, 18},
	"PC858":       {textEncoder{charmap.CodePage858}, 19},
	"PC866":       {textEncoder{charmap.CodePage866}, 17},
	"WPC1252":     {textEncoder{charmap.Windows1252}, 16},
	"WINDOWS1250": {textEncoder{charmap.Windows1250}, 45},
	"WINDOWS1251": {textEncoder{charmap.Windows1251}, 46},
	"WINDOWS1252": {textEncoder{charmap.Windows1252}, 16},
	"WINDOWS1253": {textEncoder{charmap.Windows1253}, 47},
	"WINDOWS1254": {textEncoder{charmap.Windows1254}, 48},
	"WINDOWS1255": {textEncoder{charmap.Windows1255}, 49},
	"WINDOWS1256": {textEncoder{charmap.Windows1256}, 50},
	"WINDOWS1257": {textEncoder{charmap.Windows1257}, 51},
	"WINDOWS1258": {textEncoder{charmap.Windows1258}, 52},
	"SJIS":        {textEncoder{japanese.ShiftJIS}, 0},
}

// normalizeEncodingName folds case and drops separators so "utf-8", "UTF_8" and "utf8" agree
func normalizeEncodingName(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '-', '_', ' ', '.':
			return -1
		}
		if r >= 'a' && r <= 'z' {
			return r - 'a' + 'A'
		}
		return r
	}, name)
}

// Resolve maps an encoding name to its text encoder and codepage selector.
// Unknown names fall back to UTF-8 with selector 0.
func Resolve(name string) (ByteEncoder, byte) {
	if cp, ok := codepages[normalizeEncodingName(name)]; ok {
		return cp.encoder, cp.selector
	}
	return utf8Encoder{}, 0
}

// IsKnownEncoding reports whether Resolve has a dedicated entry for name
func IsKnownEncoding(name string) bool {
	_, ok := codepages[normalizeEncodingName(name)]
	return ok
}
