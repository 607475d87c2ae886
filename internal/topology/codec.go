package topology

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
)

// MaxChunkLineCapacity is the largest NDJSON line the decoder accepts (16MB).
// A 250-node chunk encodes to well under 100KB.
const MaxChunkLineCapacity = 16 * 1024 * 1024

// ChunkEncoder writes chunks as newline-delimited JSON.
type ChunkEncoder struct {
	enc *json.Encoder
}

// NewChunkEncoder returns an encoder writing to w.
func NewChunkEncoder(w io.Writer) *ChunkEncoder {
	return &ChunkEncoder{enc: json.NewEncoder(w)}
}

// Encode writes one chunk followed by a newline.
func (e *ChunkEncoder) Encode(c Chunk) error {
	if err := e.enc.Encode(c); err != nil {
		return fmt.Errorf("encoding chunk at %d: %w", c.Start, err)
	}
	return nil
}

// ChunkDecoder reads newline-delimited JSON chunks.
type ChunkDecoder struct {
	scanner *bufio.Scanner
	line    int
}

// NewChunkDecoder returns a decoder reading from r.
func NewChunkDecoder(r io.Reader) *ChunkDecoder {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), MaxChunkLineCapacity)
	return &ChunkDecoder{scanner: scanner}
}

// Next returns the next chunk, or io.EOF when the input is exhausted.
// Empty lines are skipped.
func (d *ChunkDecoder) Next() (Chunk, error) {
	for d.scanner.Scan() {
		d.line++
		line := d.scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var c Chunk
		if err := json.Unmarshal(line, &c); err != nil {
			return Chunk{}, fmt.Errorf("parsing line %d: %w", d.line, err)
		}
		return c, nil
	}

	if err := d.scanner.Err(); err != nil {
		return Chunk{}, fmt.Errorf("reading chunk stream: %w", err)
	}
	return Chunk{}, io.EOF
}
