package apng

// Chunk is a length-prefixed, CRC-protected PNG record: length:u32 |
// type:[4]byte | data:[length]byte | crc:u32. The chunk reader owns Data
// from the moment it is read; downstream stages only ever borrow it.
type Chunk struct {
	Length uint32
	Type   [4]byte
	Data   []byte
	CRC    uint32
}

// TypeString returns the chunk's 4-character type code, e.g. "IHDR".
func (c *Chunk) TypeString() string { return string(c.Type[:]) }

// maxChunkLength is PNG's declared-length ceiling: (2^31)-1, chosen so the
// length always fits a signed 32-bit count even though it's carried on
// the wire as an unsigned one.
const maxChunkLength = 1<<31 - 1

// readChunk reads one chunk from s and verifies its trailing CRC-32 over
// type‖data. A length that can't be fully satisfied, or a CRC mismatch,
// is InvalidPng.
func readChunk(s Source) (*Chunk, error) {
	length, err := ReadU32(s)
	if err != nil {
		return nil, err
	}
	if length > maxChunkLength {
		return nil, invalidPNG()
	}
	typeBytes, err := ReadExact(s, 4)
	if err != nil {
		return nil, err
	}
	data, err := ReadExact(s, int(length))
	if err != nil {
		return nil, err
	}
	crcBytes, err := ReadExact(s, 4)
	if err != nil {
		return nil, err
	}
	crc := be.Uint32(crcBytes)

	check := make([]byte, 4+len(data))
	copy(check, typeBytes)
	copy(check[4:], data)
	if CRC32(check) != crc {
		return nil, invalidPNGf("chunk %q: CRC mismatch", string(typeBytes))
	}

	c := &Chunk{Length: length, Data: data, CRC: crc}
	copy(c.Type[:], typeBytes)
	return c, nil
}

// readAllChunks reads chunks from s until one of type IEND is seen (that
// chunk is included in the returned slice). Bytes after IEND are not read.
// If s runs out of bytes before an IEND, the short read is returned as an
// error and no chunks are returned.
func readAllChunks(s Source) ([]*Chunk, error) {
	var chunks []*Chunk
	for {
		c, err := readChunk(s)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
		if c.TypeString() == "IEND" {
			return chunks, nil
		}
	}
}
