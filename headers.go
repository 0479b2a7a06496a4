package apng

// ColorType is the PNG color_type byte: the sum of 1 (palette used), 2
// (color used) and 4 (alpha channel present).
type ColorType uint8

const (
	ColorGreyscale      ColorType = 0
	ColorRGB            ColorType = 2
	ColorPalette        ColorType = 3
	ColorGreyscaleAlpha ColorType = 4
	ColorRGBA           ColorType = 6
)

// channels returns the number of samples per pixel this color type
// carries on the wire (before any 8-bit widening for output).
func (c ColorType) channels() int {
	switch c {
	case ColorGreyscale, ColorPalette:
		return 1
	case ColorRGB:
		return 3
	case ColorGreyscaleAlpha:
		return 2
	case ColorRGBA:
		return 4
	}
	return 0
}

func allowedBitDepths(c ColorType) []uint8 {
	switch c {
	case ColorGreyscale:
		return []uint8{1, 2, 4, 8, 16}
	case ColorRGB:
		return []uint8{8, 16}
	case ColorPalette:
		return []uint8{1, 2, 4, 8}
	case ColorGreyscaleAlpha:
		return []uint8{8, 16}
	case ColorRGBA:
		return []uint8{8, 16}
	}
	return nil
}

// IHDR is the decoded image header: dimensions, sample layout and the
// (fixed, for this decoder) compression/filter/interlace methods.
type IHDR struct {
	Width, Height uint32
	BitDepth      uint8
	ColorType     ColorType
	Interlace     uint8
}

func parseIHDR(c *Chunk) (*IHDR, error) {
	if c.TypeString() != "IHDR" || len(c.Data) != 13 {
		return nil, invalidPNG()
	}
	h := &IHDR{
		Width:     be.Uint32(c.Data[0:4]),
		Height:    be.Uint32(c.Data[4:8]),
		BitDepth:  c.Data[8],
		ColorType: ColorType(c.Data[9]),
		Interlace: c.Data[12],
	}
	compression := c.Data[10]
	filter := c.Data[11]

	if h.Width == 0 || h.Width >= 1<<31 || h.Height == 0 || h.Height >= 1<<31 {
		return nil, invalidPNG()
	}
	if compression != 0 || filter != 0 {
		return nil, invalidPNG()
	}
	if h.Interlace != 0 && h.Interlace != 1 {
		return nil, invalidPNG()
	}
	allowed := allowedBitDepths(h.ColorType)
	if allowed == nil {
		return nil, invalidPNG()
	}
	ok := false
	for _, d := range allowed {
		if d == h.BitDepth {
			ok = true
			break
		}
	}
	if !ok {
		return nil, invalidPNG()
	}
	return h, nil
}

// ACTL is the animation-control chunk: the frame count and the number of
// times the animation should repeat (0 meaning infinite).
type ACTL struct {
	NumFrames uint32
	NumPlays  uint32
}

func parseACTL(c *Chunk) (*ACTL, error) {
	if len(c.Data) != 8 {
		return nil, invalidPNG()
	}
	a := &ACTL{
		NumFrames: be.Uint32(c.Data[0:4]),
		NumPlays:  be.Uint32(c.Data[4:8]),
	}
	if a.NumFrames == 0 {
		return nil, invalidPNG()
	}
	return a, nil
}

// DisposeOp says how a frame's canvas must be prepared before the next
// frame is blended onto it.
type DisposeOp uint8

const (
	DisposeNone       DisposeOp = 0
	DisposeBackground DisposeOp = 1
	DisposePrevious   DisposeOp = 2
)

// BlendOp says how a frame's pixels are combined with the canvas they're
// placed onto.
type BlendOp uint8

const (
	BlendSource BlendOp = 0
	BlendOver   BlendOp = 1
)

// FCTL is a frame-control chunk: one animation frame's geometry, timing
// and disposal/blend behavior.
type FCTL struct {
	SequenceNumber     uint32
	Width, Height      uint32
	XOffset, YOffset   uint32
	DelayNum, DelayDen uint16
	Dispose            DisposeOp
	Blend              BlendOp
}

func parseFCTL(c *Chunk) (*FCTL, error) {
	if len(c.Data) != 26 {
		return nil, invalidPNG()
	}
	f := &FCTL{
		SequenceNumber: be.Uint32(c.Data[0:4]),
		Width:          be.Uint32(c.Data[4:8]),
		Height:         be.Uint32(c.Data[8:12]),
		XOffset:        be.Uint32(c.Data[12:16]),
		YOffset:        be.Uint32(c.Data[16:20]),
		DelayNum:       be.Uint16(c.Data[20:22]),
		DelayDen:       be.Uint16(c.Data[22:24]),
		Dispose:        DisposeOp(c.Data[24]),
		Blend:          BlendOp(c.Data[25]),
	}
	if f.Width == 0 || f.Height == 0 {
		return nil, invalidPNG()
	}
	if f.Dispose != DisposeNone && f.Dispose != DisposeBackground && f.Dispose != DisposePrevious {
		return nil, invalidPNG()
	}
	if f.Blend != BlendSource && f.Blend != BlendOver {
		return nil, invalidPNG()
	}
	if f.DelayDen == 0 {
		f.DelayDen = 100
	}
	if f.DelayNum == 0 {
		f.DelayNum = 1
		f.DelayDen = 100
	}
	return f, nil
}

// validateGeometry checks an fcTL's rectangle fits inside the full image
// canvas described by ihdr.
func validateGeometry(f *FCTL, ihdr *IHDR) error {
	if uint64(f.XOffset)+uint64(f.Width) > uint64(ihdr.Width) {
		return invalidPNG()
	}
	if uint64(f.YOffset)+uint64(f.Height) > uint64(ihdr.Height) {
		return invalidPNG()
	}
	return nil
}
