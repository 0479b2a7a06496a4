package apng

// frameRecord pairs a fully composited output canvas with the dispose_op
// that produced it, so later frames can pick their canvas base without
// cyclic references — just an index walk backward through this slice.
type frameRecord struct {
	canvas  *Bitmap
	dispose DisposeOp
}

// canvasBase returns the starting canvas for the frame that follows the
// last entry of history (the most recently produced frame). A nil/empty
// history means there is no predecessor: start from a cleared canvas.
func canvasBase(history []frameRecord, width, height int, format PixelFormat) *Bitmap {
	if len(history) == 0 {
		return NewBitmap(width, height, format)
	}
	prev := history[len(history)-1]
	switch prev.dispose {
	case DisposeNone:
		return prev.canvas.Clone()
	case DisposeBackground:
		return NewBitmap(width, height, format)
	case DisposePrevious:
		for i := len(history) - 2; i >= 0; i-- {
			if history[i].dispose != DisposePrevious {
				return history[i].canvas.Clone()
			}
		}
		return NewBitmap(width, height, format)
	}
	return NewBitmap(width, height, format)
}

// compositeFrame blends partial (decoded at f.XOffset, f.YOffset, sized
// f.Width x f.Height) onto canvas in place, per spec §4.7.
func compositeFrame(canvas, partial *Bitmap, f *FCTL, trns *Transparency) error {
	blend := f.Blend
	if f.Dispose == DisposeBackground {
		blend = BlendSource
	}

	format := canvas.Format
	channels := format.Channels()
	hasAlpha := format.HasAlpha()
	bits := uint(format.BytesPerChannel() * 8)
	max := uint32(1)<<bits - 1

	for y := 0; y < partial.Height; y++ {
		cy := y + int(f.YOffset)
		for x := 0; x < partial.Width; x++ {
			cx := x + int(f.XOffset)

			alpha := max
			if hasAlpha {
				alpha = uint32(partial.channelAt(x, y, channels-1))
			} else if trns != nil {
				if transparencyMatches(partial, x, y, format, trns) {
					alpha = 0
				}
			}

			switch blend {
			case BlendSource:
				for ch := 0; ch < channels; ch++ {
					canvas.setChannelAt(cx, cy, ch, partial.channelAt(x, y, ch))
				}
			case BlendOver:
				for ch := 0; ch < channels; ch++ {
					dst := uint32(canvas.channelAt(cx, cy, ch))
					src := uint32(partial.channelAt(x, y, ch))
					out := ((max-alpha+1)*dst + (alpha+1)*src) >> bits
					canvas.setChannelAt(cx, cy, ch, uint16(out))
				}
			}
		}
	}
	return nil
}

// transparencyMatches reports whether the non-alpha pixel at (x, y)
// equals the image's tRNS color key.
func transparencyMatches(b *Bitmap, x, y int, format PixelFormat, trns *Transparency) bool {
	switch format {
	case FormatGrey8, FormatGrey16:
		return b.channelAt(x, y, 0) == trns.Gray
	case FormatRGB24, FormatRGB48:
		return b.channelAt(x, y, 0) == trns.Red &&
			b.channelAt(x, y, 1) == trns.Green &&
			b.channelAt(x, y, 2) == trns.Blue
	}
	return false
}
