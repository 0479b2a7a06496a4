package apng

import (
	"io"
)

var pngSignature = [8]byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}

// DisplayTime is a frame's display duration expressed as the fcTL
// fraction it was decoded from.
type DisplayTime struct {
	Num, Den uint16
}

// Seconds returns the duration as delay_num / delay_den seconds.
func (d DisplayTime) Seconds() float64 {
	return float64(d.Num) / float64(d.Den)
}

// Frame pairs a fully composited, image-sized canvas with its display
// time.
type Frame struct {
	DisplayTime DisplayTime
	Bitmap      *Bitmap
}

// Decoder holds the result of decoding one APNG stream.
type Decoder struct {
	Width       int
	Height      int
	PixelFormat PixelFormat
	LoopCount   uint32
	// DefaultFrame is the bitmap decoded from the IDAT run, present
	// whenever the stream has one. It may or may not also be animation
	// frame 0 — see Frames().
	DefaultFrame *Bitmap

	frames []Frame
}

// Frames returns the animation frames in display order.
func (d *Decoder) Frames() []Frame { return d.frames }

// Decode reads a complete APNG stream from r.
func Decode(r io.Reader) (*Decoder, error) {
	return decodeSource(NewReaderSource(r))
}

// DecodeBytes decodes an APNG stream already held in memory.
func DecodeBytes(b []byte) (*Decoder, error) {
	return decodeSource(NewMemorySource(b))
}

// DecodeFile opens and decodes an APNG stream from disk.
func DecodeFile(path string) (*Decoder, error) {
	fileSrc, err := NewFileSource(path)
	if err != nil {
		return nil, err
	}
	defer fileSrc.Close()
	return decodeSource(fileSrc)
}

func decodeSource(src Source) (*Decoder, error) {
	sig, err := ReadExact(src, 8)
	if err != nil {
		return nil, err
	}
	if [8]byte(sig) != pngSignature {
		return nil, invalidPNG()
	}

	first, err := readChunk(src)
	if err != nil {
		return nil, err
	}
	if first.TypeString() != "IHDR" {
		return nil, invalidPNG()
	}
	ihdr, err := parseIHDR(first)
	if err != nil {
		return nil, err
	}

	rest, err := readAllChunks(src)
	if err != nil {
		return nil, err
	}
	chunks := append([]*Chunk{first}, rest...)

	if err := validateTail(chunks); err != nil {
		return nil, err
	}

	_, trnsColorType, trns, err := validateAncillary(chunks, ihdr)
	if err != nil {
		return nil, err
	}

	actl, fctls, idats, err := validateAnimation(chunks)
	if err != nil {
		return nil, err
	}

	format := pixelFormatFor(ihdr.ColorType, ihdr.BitDepth)

	d := &Decoder{
		Width:       int(ihdr.Width),
		Height:      int(ihdr.Height),
		PixelFormat: format,
		LoopCount:   actl.NumPlays,
	}

	defaultFrame, err := decodeDefaultFrame(idats, d.Width, d.Height, ihdr.ColorType, ihdr.BitDepth, format)
	if err != nil {
		return nil, err
	}
	d.DefaultFrame = defaultFrame

	f0 := fctls[0]
	f0IsFrameZero := f0.positionBeforeFirstIDAT
	if f0IsFrameZero {
		if err := validateFirstFrameGeometry(f0.fctl, ihdr); err != nil {
			return nil, err
		}
		f0.fctl.Dispose = coerceFirstFrameDispose(f0.fctl.Dispose)
	}

	var history []frameRecord
	var effectiveTRNS *Transparency
	if trnsColorType == ColorGreyscale || trnsColorType == ColorRGB {
		effectiveTRNS = trns
	}

	// appendComposited runs the shared canvas-base-then-blend sequence: pick
	// a canvas base (nil history for the no-predecessor case), blend part
	// into it, then record the result as both compositing history and a
	// display frame. The only thing that varies per call site is which
	// history produces the canvas base and which bitmap supplies the pixels.
	appendComposited := func(base []frameRecord, part *Bitmap, fctl *FCTL) error {
		canvas := canvasBase(base, d.Width, d.Height, format)
		if err := compositeFrame(canvas, part, fctl, effectiveTRNS); err != nil {
			return err
		}
		history = append(history, frameRecord{canvas: canvas, dispose: fctl.Dispose})
		d.frames = append(d.frames, Frame{
			DisplayTime: DisplayTime{Num: fctl.DelayNum, Den: fctl.DelayDen},
			Bitmap:      canvas,
		})
		return nil
	}

	if f0IsFrameZero {
		if err := appendComposited(nil, defaultFrame, f0.fctl); err != nil {
			return nil, err
		}
		fctls = fctls[1:]
	}

	for i, entry := range fctls {
		fctl := entry.fctl
		if i == 0 && !f0IsFrameZero {
			if err := validateFirstFrameGeometry(fctl, ihdr); err != nil {
				return nil, err
			}
			fctl.Dispose = coerceFirstFrameDispose(fctl.Dispose)
		} else {
			if err := validateGeometry(fctl, ihdr); err != nil {
				return nil, err
			}
		}

		stream := NewChunkStream(entry.fdats, ModeSequenced, fctl.SequenceNumber+1)
		partial, err := decodeFramePixels(stream, int(fctl.Width), int(fctl.Height), ihdr.ColorType, ihdr.BitDepth, format)
		if err != nil {
			return nil, err
		}

		if err := appendComposited(history, partial, fctl); err != nil {
			return nil, err
		}
	}

	if int(actl.NumFrames) != len(d.frames) {
		return nil, invalidPNG()
	}

	return d, nil
}

// coerceFirstFrameDispose applies the invariant that the first animation
// frame can never carry dispose_op = Previous, since there is no earlier
// frame to fall back to.
func coerceFirstFrameDispose(op DisposeOp) DisposeOp {
	if op == DisposePrevious {
		return DisposeBackground
	}
	return op
}

func validateFirstFrameGeometry(f *FCTL, ihdr *IHDR) error {
	if f.XOffset != 0 || f.YOffset != 0 || f.Width != ihdr.Width || f.Height != ihdr.Height {
		return invalidPNG()
	}
	return nil
}

// validateTail enforces exactly one empty IEND at the end of the chunk
// list.
func validateTail(chunks []*Chunk) error {
	if len(chunks) == 0 {
		return invalidPNG()
	}
	last := chunks[len(chunks)-1]
	if last.TypeString() != "IEND" || len(last.Data) != 0 {
		return invalidPNG()
	}
	for _, c := range chunks[:len(chunks)-1] {
		if c.TypeString() == "IEND" {
			return invalidPNG()
		}
	}
	return nil
}

// validateAncillary checks PLTE/tRNS cardinality and structure. It
// returns whether PLTE was seen, the color type tRNS was declared
// against (for deciding whether the compositor should use it), and the
// parsed transparency key for Greyscale/RGB images.
func validateAncillary(chunks []*Chunk, ihdr *IHDR) (bool, ColorType, *Transparency, error) {
	var plteSeen, trnsSeen bool
	var trns *Transparency

	for _, c := range chunks {
		switch c.TypeString() {
		case "PLTE":
			if plteSeen {
				return false, 0, nil, invalidPNG()
			}
			plteSeen = true
			if len(c.Data)%3 != 0 || len(c.Data) == 0 {
				return false, 0, nil, invalidPNG()
			}
		case "tRNS":
			if trnsSeen {
				return false, 0, nil, invalidPNG()
			}
			trnsSeen = true
			switch ihdr.ColorType {
			case ColorGreyscale:
				if len(c.Data) != 2 {
					return false, 0, nil, invalidPNG()
				}
				trns = &Transparency{Gray: be.Uint16(c.Data[0:2])}
			case ColorRGB:
				if len(c.Data) != 6 {
					return false, 0, nil, invalidPNG()
				}
				trns = &Transparency{
					Red:   be.Uint16(c.Data[0:2]),
					Green: be.Uint16(c.Data[2:4]),
					Blue:  be.Uint16(c.Data[4:6]),
				}
			case ColorPalette:
				if !plteSeen {
					return false, 0, nil, invalidPNG()
				}
				if len(c.Data) > 256 {
					return false, 0, nil, invalidPNG()
				}
			default:
				return false, 0, nil, invalidPNG()
			}
		}
	}

	if ihdr.ColorType == ColorPalette && !plteSeen {
		return false, 0, nil, invalidPNG()
	}
	if (ihdr.ColorType == ColorGreyscale || ihdr.ColorType == ColorGreyscaleAlpha) && plteSeen {
		return false, 0, nil, invalidPNG()
	}
	return plteSeen, ihdr.ColorType, trns, nil
}

// fctlEntry pairs a parsed fcTL with the run of fdAT chunks that follow
// it (up to, but not including, the next fcTL) and whether it appears
// before the first IDAT chunk.
type fctlEntry struct {
	fctl                    *FCTL
	fdats                   []*Chunk
	positionBeforeFirstIDAT bool
}

// validateAnimation enforces spec §4.8 and collects the acTL record, the
// ordered fcTL entries (each with its fdAT run), and the IDAT chunks.
func validateAnimation(chunks []*Chunk) (*ACTL, []*fctlEntry, []*Chunk, error) {
	var actl *ACTL
	var actlSeen bool
	var firstIDATIdx = -1
	var firstFCTLIdx = -1

	for i, c := range chunks {
		switch c.TypeString() {
		case "acTL":
			if actlSeen {
				return nil, nil, nil, invalidPNG()
			}
			actlSeen = true
			parsed, err := parseACTL(c)
			if err != nil {
				return nil, nil, nil, err
			}
			actl = parsed
		case "IDAT":
			if firstIDATIdx == -1 {
				firstIDATIdx = i
			}
		case "fcTL":
			if firstFCTLIdx == -1 {
				firstFCTLIdx = i
			}
		}
	}
	if actl == nil {
		return nil, nil, nil, invalidPNG()
	}
	if firstIDATIdx == -1 {
		return nil, nil, nil, invalidPNG()
	}
	// acTL must precede the first IDAT.
	actlIdx := -1
	for i, c := range chunks {
		if c.TypeString() == "acTL" {
			actlIdx = i
			break
		}
	}
	if actlIdx > firstIDATIdx {
		return nil, nil, nil, invalidPNG()
	}
	if firstFCTLIdx == -1 {
		return nil, nil, nil, invalidPNG()
	}

	var entries []*fctlEntry
	var idats []*Chunk
	var cur *fctlEntry

	for i, c := range chunks {
		switch c.TypeString() {
		case "IDAT":
			idats = append(idats, c)
		case "fcTL":
			fctl, err := parseFCTL(c)
			if err != nil {
				return nil, nil, nil, err
			}
			cur = &fctlEntry{fctl: fctl, positionBeforeFirstIDAT: i < firstIDATIdx}
			entries = append(entries, cur)
		case "fdAT":
			if cur == nil {
				return nil, nil, nil, invalidPNG()
			}
			cur.fdats = append(cur.fdats, c)
		}
	}

	if actl.NumFrames > 0 && int(actl.NumFrames) != len(entries) {
		return nil, nil, nil, invalidPNG()
	}
	if err := validateSequenceNumbers(chunks); err != nil {
		return nil, nil, nil, err
	}

	return actl, entries, idats, nil
}

// validateSequenceNumbers enforces that fcTL and fdAT sequence numbers,
// taken together in chunk order, form one strictly increasing sequence
// starting at 0 (spec §8).
func validateSequenceNumbers(chunks []*Chunk) error {
	expected := uint32(0)
	for _, c := range chunks {
		switch c.TypeString() {
		case "fcTL":
			if len(c.Data) < 4 {
				return invalidPNG()
			}
			if got := be.Uint32(c.Data[0:4]); got != expected {
				return invalidPNGf("fcTL sequence_number = %d, want %d", got, expected)
			}
			expected++
		case "fdAT":
			if len(c.Data) < 4 {
				return invalidPNG()
			}
			if got := be.Uint32(c.Data[0:4]); got != expected {
				return invalidPNGf("fdAT sequence_number = %d, want %d", got, expected)
			}
			expected++
		}
	}
	return nil
}

func decodeDefaultFrame(idats []*Chunk, width, height int, colorType ColorType, bitDepth uint8, format PixelFormat) (*Bitmap, error) {
	if len(idats) == 0 {
		return nil, invalidPNG()
	}
	stream := NewChunkStream(idats, ModePlain, 0)
	return decodeFramePixels(stream, width, height, colorType, bitDepth, format)
}
