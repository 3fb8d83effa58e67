// internal/escpos/commands.go
package escpos

// Alignment selects the justification applied by the printer
type Alignment byte

const (
	AlignLeft   Alignment = 0
	AlignCenter Alignment = 1
	AlignRight  Alignment = 2
)

// Font selects one of the printer's built-in bitmap fonts
type Font byte

const (
	FontPrimary   Font = 0
	FontSecondary Font = 1
)

// LineFeed terminates every printed line
const LineFeed byte = 0x0A

// DefaultLineSpacing is applied when a job does not set one
const DefaultLineSpacing = 30

// DefaultQRModuleSize is used for QR items without a module size
const DefaultQRModuleSize = 6

// QR error correction level M
const qrErrorCorrectionM = 0x31

// commands holds the fixed prefixes every primitive is built from
var commands = struct {
	Initialize       []byte
	SelectCodepage   []byte // + n
	LineSpacing      []byte // + n
	LineSpacingReset []byte
	FeedLines        []byte // + n
	Align            []byte // + n
	Bold             []byte // + n
	PointSize        []byte // + n
	Font             []byte // + n
	QRFunction       []byte // + pL pH cn fn ...
	Raster           []byte // + xL xH yL yH
}{
	Initialize:       []byte{0x1B, 0x40},             // ESC @
	SelectCodepage:   []byte{0x1B, 0x74},             // ESC t
	LineSpacing:      []byte{0x1B, 0x33},             // ESC 3
	LineSpacingReset: []byte{0x1B, 0x32},             // ESC 2
	FeedLines:        []byte{0x1B, 0x64},             // ESC d
	Align:            []byte{0x1B, 0x61},             // ESC a
	Bold:             []byte{0x1B, 0x45},             // ESC E
	PointSize:        []byte{0x1D, 0x21},             // GS !
	Font:             []byte{0x1B, 0x4D},             // ESC M
	QRFunction:       []byte{0x1D, 0x28, 0x6B},       // GS ( k
	Raster:           []byte{0x1D, 0x76, 0x30, 0x00}, // GS v 0 m=0
}

func with(prefix []byte, args ...byte) []byte {
	out := make([]byte, 0, len(prefix)+len(args))
	out = append(out, prefix...)
	return append(out, args...)
}

// Clamp limits n to a single data byte
func Clamp(n int) byte {
	switch {
	case n < 0:
		return 0
	case n > 255:
		return 255
	default:
		return byte(n)
	}
}

// Initialize resets the printer to its power-on state
func Initialize() []byte {
	return with(commands.Initialize)
}

// SetCodepage selects the printer character table
func SetCodepage(selector byte) []byte {
	return with(commands.SelectCodepage, selector)
}

// SetLineSpacing sets the line spacing in motion units
func SetLineSpacing(n int) []byte {
	return with(commands.LineSpacing, Clamp(n))
}

// ResetLineSpacing restores the printer default line spacing
func ResetLineSpacing() []byte {
	return with(commands.LineSpacingReset)
}

// Feed prints the buffer and feeds n lines
func Feed(n int) []byte {
	return with(commands.FeedLines, Clamp(n))
}

// Align sets justification. Unknown values fall back to left.
func Align(a Alignment) []byte {
	if a > AlignRight {
		a = AlignLeft
	}
	return with(commands.Align, byte(a))
}

// Bold toggles emphasized mode
func Bold(on bool) []byte {
	if on {
		return with(commands.Bold, 1)
	}
	return with(commands.Bold, 0)
}

// PointSizeByte maps a size level to the character size data byte.
// Levels 0..7 scale width and height together; raw values >= 8 pass through.
func PointSizeByte(level int) byte {
	switch {
	case level <= 0:
		return 0
	case level <= 7:
		l := byte(level)
		return l<<4 | l
	default:
		return Clamp(level)
	}
}

// PointSize selects the character size for a level
func PointSize(level int) []byte {
	return with(commands.PointSize, PointSizeByte(level))
}

// SelectFont selects the primary or secondary font
func SelectFont(f Font) []byte {
	if f != FontSecondary {
		f = FontPrimary
	}
	return with(commands.Font, byte(f))
}

// qrFrame builds one GS ( k function frame. The length covers cn, fn and params.
func qrFrame(fn byte, params ...byte) []byte {
	n := len(params) + 2
	frame := with(commands.QRFunction, byte(n), byte(n>>8), 0x31, fn)
	return append(frame, params...)
}

// MaxQRData is the largest payload a store frame can describe
const MaxQRData = 0xFFFF - 3

// QRCode chains the model, module size, error correction, store and print frames.
// moduleSize is clamped to 1..16; zero selects the default.
func QRCode(data []byte, moduleSize int) []byte {
	if moduleSize == 0 {
		moduleSize = DefaultQRModuleSize
	}
	if moduleSize < 1 {
		moduleSize = 1
	}
	if moduleSize > 16 {
		moduleSize = 16
	}
	if len(data) > MaxQRData {
		data = data[:MaxQRData]
	}

	out := make([]byte, 0, len(data)+40)
	out = append(out, qrFrame(0x41, 0x32, 0x00)...)                       // model 2
	out = append(out, qrFrame(0x43, byte(moduleSize))...)                 // module size
	out = append(out, qrFrame(0x45, qrErrorCorrectionM)...)               // error correction
	out = append(out, qrFrame(0x50, append([]byte{0x30}, data...)...)...) // store
	out = append(out, qrFrame(0x51, 0x30)...)                             // print
	return out
}

// RasterHeader frames a packed bitmap of widthBytes x height dots
func RasterHeader(widthBytes, height int) []byte {
	return with(commands.Raster,
		byte(widthBytes), byte(widthBytes>>8),
		byte(height), byte(height>>8),
	)
}
