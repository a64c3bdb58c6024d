package connection

import (
	"encoding/binary"
	"fmt"
	"io"
)

const (
	chunkHeaderSize = 24
	maxChunkLength  = 1 << 30
)

// VSTPreamble is sent by a client directly after opening a VelocyStream connection
const VSTPreamble = "VST/1.1\r\n\r\n"

// Chunk is one frame of a VelocyStream 1.1 message
type Chunk struct {
	MessageID      uint64
	MessageLength  uint64
	Index          uint32
	NumberOfChunks uint32
	First          bool
	Data           []byte
}

// BuildChunks splits a message into frames carrying at most chunkSize bytes of payload each
func BuildChunks(messageID uint64, message []byte, chunkSize int) []Chunk {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	numberOfChunks := (len(message) + chunkSize - 1) / chunkSize
	if numberOfChunks == 0 {
		numberOfChunks = 1
	}

	chunks := make([]Chunk, 0, numberOfChunks)
	for i := 0; i < numberOfChunks; i++ {
		start := i * chunkSize
		end := min(start+chunkSize, len(message))

		chunks = append(chunks, Chunk{
			MessageID:      messageID,
			MessageLength:  uint64(len(message)),
			Index:          uint32(i),
			NumberOfChunks: uint32(numberOfChunks),
			First:          i == 0,
			Data:           message[start:end],
		})
	}

	return chunks
}

func (c Chunk) chunkX() uint32 {
	if c.First {
		return c.NumberOfChunks<<1 | 1
	}
	return c.Index << 1
}

// WriteTo writes the chunk header followed by its payload
func (c Chunk) WriteTo(w io.Writer) (int64, error) {
	buf := make([]byte, chunkHeaderSize+len(c.Data))

	binary.LittleEndian.PutUint32(buf[0:4], uint32(len(buf)))
	binary.LittleEndian.PutUint32(buf[4:8], c.chunkX())
	binary.LittleEndian.PutUint64(buf[8:16], c.MessageID)
	binary.LittleEndian.PutUint64(buf[16:24], c.MessageLength)
	copy(buf[chunkHeaderSize:], c.Data)

	n, err := w.Write(buf)
	return int64(n), err
}

// ReadChunk reads one chunk from r
func ReadChunk(r io.Reader) (Chunk, error) {
	header := make([]byte, chunkHeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return Chunk{}, err
	}

	length := binary.LittleEndian.Uint32(header[0:4])
	if length < chunkHeaderSize || length > maxChunkLength {
		return Chunk{}, fmt.Errorf("invalid chunk length %d", length)
	}

	chunkX := binary.LittleEndian.Uint32(header[4:8])

	c := Chunk{
		MessageID:     binary.LittleEndian.Uint64(header[8:16]),
		MessageLength: binary.LittleEndian.Uint64(header[16:24]),
		First:         chunkX&1 == 1,
		Data:          make([]byte, length-chunkHeaderSize),
	}

	if c.First {
		c.NumberOfChunks = chunkX >> 1
	} else {
		c.Index = chunkX >> 1
	}

	if _, err := io.ReadFull(r, c.Data); err != nil {
		return Chunk{}, err
	}

	return c, nil
}

// MessageAssembler collects the chunks of interleaved messages and reports each message as
// soon as all of its chunks have arrived, in any order
type MessageAssembler struct {
	pending map[uint64]*partialMessage
}

type partialMessage struct {
	numberOfChunks uint32
	haveFirst      bool
	length         uint64
	received       uint64
	chunks         map[uint32][]byte
}

func NewMessageAssembler() *MessageAssembler {
	return &MessageAssembler{pending: map[uint64]*partialMessage{}}
}

// Add registers a chunk and returns the complete message once every chunk is present
func (a *MessageAssembler) Add(c Chunk) ([]byte, bool) {
	if c.First && c.NumberOfChunks <= 1 && uint64(len(c.Data)) == c.MessageLength {
		delete(a.pending, c.MessageID)
		return c.Data, true
	}

	pm, ok := a.pending[c.MessageID]
	if !ok {
		pm = &partialMessage{chunks: map[uint32][]byte{}, length: c.MessageLength}
		a.pending[c.MessageID] = pm
	}

	if c.First {
		pm.haveFirst = true
		pm.numberOfChunks = c.NumberOfChunks
	}

	if _, dup := pm.chunks[c.Index]; !dup {
		pm.chunks[c.Index] = c.Data
		pm.received += uint64(len(c.Data))
	}

	if !pm.haveFirst || uint32(len(pm.chunks)) < pm.numberOfChunks || pm.received < pm.length {
		return nil, false
	}

	message := make([]byte, 0, pm.length)
	for i := uint32(0); i < pm.numberOfChunks; i++ {
		message = append(message, pm.chunks[i]...)
	}

	delete(a.pending, c.MessageID)
	return message, true
}
