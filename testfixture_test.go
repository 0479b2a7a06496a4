package apng

import (
	"bytes"
	"compress/zlib"
	"os"
)

// writeFile is a small wrapper so decoder_test.go doesn't need its own
// os import just for one fixture write.
func writeFile(path string, data []byte) error {
	return os.WriteFile(path, data, 0o644)
}

// buildChunk assembles one complete, CRC-correct on-wire chunk: length,
// type, data, crc.
func buildChunk(typ string, data []byte) []byte {
	out := make([]byte, 0, 12+len(data))
	var lenBytes, crcBytes [4]byte
	be.PutUint32(lenBytes[:], uint32(len(data)))
	out = append(out, lenBytes[:]...)
	out = append(out, []byte(typ)...)
	out = append(out, data...)

	crcInput := make([]byte, 4+len(data))
	copy(crcInput, typ)
	copy(crcInput[4:], data)
	be.PutUint32(crcBytes[:], CRC32(crcInput))
	out = append(out, crcBytes[:]...)
	return out
}

func ihdrPayload(width, height uint32, bitDepth byte, colorType ColorType, interlace byte) []byte {
	data := make([]byte, 13)
	be.PutUint32(data[0:4], width)
	be.PutUint32(data[4:8], height)
	data[8] = bitDepth
	data[9] = byte(colorType)
	data[10] = 0 // compression
	data[11] = 0 // filter
	data[12] = interlace
	return data
}

func actlPayload(numFrames, numPlays uint32) []byte {
	data := make([]byte, 8)
	be.PutUint32(data[0:4], numFrames)
	be.PutUint32(data[4:8], numPlays)
	return data
}

func fctlPayload(seq, width, height, xoff, yoff uint32, delayNum, delayDen uint16, dispose DisposeOp, blend BlendOp) []byte {
	data := make([]byte, 26)
	be.PutUint32(data[0:4], seq)
	be.PutUint32(data[4:8], width)
	be.PutUint32(data[8:12], height)
	be.PutUint32(data[12:16], xoff)
	be.PutUint32(data[16:20], yoff)
	be.PutUint16(data[20:22], delayNum)
	be.PutUint16(data[22:24], delayDen)
	data[24] = byte(dispose)
	data[25] = byte(blend)
	return data
}

// compressRaw zlib-wraps raw, the way a PNG encoder would before writing
// it into IDAT/fdAT payloads.
func compressRaw(raw []byte) []byte {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	w.Write(raw)
	w.Close()
	return buf.Bytes()
}

// solidRGBScanlines builds height unfiltered (filter type 0) scanlines of
// width pixels, each pixel set to rgb, and returns them zlib-compressed as
// an IDAT/fdAT payload would be.
func solidRGBScanlines(width, height int, rgb [3]byte) []byte {
	rowBytes := width * 3
	raw := make([]byte, 0, (rowBytes+1)*height)
	row := make([]byte, rowBytes)
	for x := 0; x < width; x++ {
		row[x*3], row[x*3+1], row[x*3+2] = rgb[0], rgb[1], rgb[2]
	}
	for y := 0; y < height; y++ {
		raw = append(raw, filterNone)
		raw = append(raw, row...)
	}
	return compressRaw(raw)
}

// apngFixture holds the un-wrapped payloads for a minimal 2-frame RGB8
// APNG, so tests can mutate a single field and re-wrap it.
type apngFixture struct {
	width, height int
	ihdr          []byte
	actl          []byte
	fctl0         []byte
	idat          []byte
	fctl1         []byte
	fdat1Payload  []byte // excludes the leading sequence-number prefix
}

func newAPNGFixture() apngFixture {
	const w, h = 16, 16
	return apngFixture{
		width:  w,
		height: h,
		ihdr:   ihdrPayload(w, h, 8, ColorRGB, 0),
		actl:   actlPayload(2, 0),
		fctl0:  fctlPayload(0, w, h, 0, 0, 1, 10, DisposeNone, BlendSource),
		idat:   solidRGBScanlines(w, h, [3]byte{10, 20, 30}),
		fctl1:  fctlPayload(1, w, h, 0, 0, 1, 10, DisposeNone, BlendSource),
		fdat1Payload: solidRGBScanlines(w, h, [3]byte{40, 50, 60}),
	}
}

// fdat1WithSeq wraps fdat1Payload with seq as its sequence-number prefix.
func (f apngFixture) fdat1WithSeq(seq uint32) []byte {
	out := make([]byte, 4+len(f.fdat1Payload))
	be.PutUint32(out[0:4], seq)
	copy(out[4:], f.fdat1Payload)
	return out
}

// bytes assembles the full byte stream: signature through IEND, using
// fdatSeq as frame 1's fdAT sequence number (the well-formed value is 2,
// one past fctl1's sequence number of 1).
func (f apngFixture) bytes(fdatSeq uint32) []byte {
	var out []byte
	out = append(out, pngSignature[:]...)
	out = append(out, buildChunk("IHDR", f.ihdr)...)
	out = append(out, buildChunk("acTL", f.actl)...)
	out = append(out, buildChunk("fcTL", f.fctl0)...)
	out = append(out, buildChunk("IDAT", f.idat)...)
	out = append(out, buildChunk("fcTL", f.fctl1)...)
	out = append(out, buildChunk("fdAT", f.fdat1WithSeq(fdatSeq))...)
	out = append(out, buildChunk("IEND", nil)...)
	return out
}

func solidRGBPixels(width, height int, rgb [3]byte) []byte {
	out := make([]byte, 0, width*height*3)
	for i := 0; i < width*height; i++ {
		out = append(out, rgb[0], rgb[1], rgb[2])
	}
	return out
}

// solidRGBAScanlines is solidRGBScanlines's 4-channel counterpart.
func solidRGBAScanlines(width, height int, rgba [4]byte) []byte {
	rowBytes := width * 4
	raw := make([]byte, 0, (rowBytes+1)*height)
	row := make([]byte, rowBytes)
	for x := 0; x < width; x++ {
		row[x*4], row[x*4+1], row[x*4+2], row[x*4+3] = rgba[0], rgba[1], rgba[2], rgba[3]
	}
	for y := 0; y < height; y++ {
		raw = append(raw, filterNone)
		raw = append(raw, row...)
	}
	return compressRaw(raw)
}

// singleFrameRGBAFixture builds a minimal one-frame RGBA8 APNG whose only
// fcTL (also the default frame's control) declares blend as given, so
// tests can exercise frame 0's blend behavior directly.
func singleFrameRGBAFixture(width, height int, pixel [4]byte, blend BlendOp) []byte {
	var out []byte
	out = append(out, pngSignature[:]...)
	out = append(out, buildChunk("IHDR", ihdrPayload(uint32(width), uint32(height), 8, ColorRGBA, 0))...)
	out = append(out, buildChunk("acTL", actlPayload(1, 0))...)
	out = append(out, buildChunk("fcTL", fctlPayload(0, uint32(width), uint32(height), 0, 0, 1, 10, DisposeNone, blend))...)
	out = append(out, buildChunk("IDAT", solidRGBAScanlines(width, height, pixel))...)
	out = append(out, buildChunk("IEND", nil)...)
	return out
}
