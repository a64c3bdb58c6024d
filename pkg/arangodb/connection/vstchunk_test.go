package connection

import (
	"bytes"
	"encoding/binary"
	"net/http"
	"testing"

	"github.com/matryer/is"
)

func TestChunkHeaderLayout(t *testing.T) {
	is := is.New(t)

	chunks := BuildChunks(42, []byte("hello world"), 4)
	is.Equal(len(chunks), 3)

	var buf bytes.Buffer
	_, err := chunks[0].WriteTo(&buf)
	is.NoErr(err)

	b := buf.Bytes()
	is.Equal(len(b), chunkHeaderSize+4)
	is.Equal(binary.LittleEndian.Uint32(b[0:4]), uint32(chunkHeaderSize+4))
	is.Equal(binary.LittleEndian.Uint32(b[4:8]), uint32(3<<1|1)) // first chunk carries the chunk count
	is.Equal(binary.LittleEndian.Uint64(b[8:16]), uint64(42))
	is.Equal(binary.LittleEndian.Uint64(b[16:24]), uint64(11))
	is.Equal(string(b[24:]), "hell")

	buf.Reset()
	_, err = chunks[2].WriteTo(&buf)
	is.NoErr(err)
	is.Equal(binary.LittleEndian.Uint32(buf.Bytes()[4:8]), uint32(2<<1))
}

func TestChunksCanBeReadBack(t *testing.T) {
	is := is.New(t)

	message := bytes.Repeat([]byte("0123456789"), 10)

	var buf bytes.Buffer
	for _, c := range BuildChunks(7, message, 33) {
		_, err := c.WriteTo(&buf)
		is.NoErr(err)
	}

	assembler := NewMessageAssembler()

	var result []byte
	complete := false
	for !complete {
		c, err := ReadChunk(&buf)
		is.NoErr(err)
		result, complete = assembler.Add(c)
	}

	is.Equal(result, message)
}

func TestAssemblerHandlesInterleavedOutOfOrderChunks(t *testing.T) {
	is := is.New(t)

	first := BuildChunks(1, []byte("aaaaaaaaaa"), 3)
	second := BuildChunks(2, []byte("bbbbbbb"), 3)

	assembler := NewMessageAssembler()

	order := []Chunk{second[2], first[1], first[3], second[0], first[0], second[1]}
	for _, c := range order {
		msg, complete := assembler.Add(c)
		if complete {
			is.Equal(c.MessageID, uint64(2))
			is.Equal(string(msg), "bbbbbbb")
		}
	}

	msg, complete := assembler.Add(first[2])
	is.True(complete)
	is.Equal(string(msg), "aaaaaaaaaa")
}

func TestSingleChunkMessage(t *testing.T) {
	is := is.New(t)

	chunks := BuildChunks(3, []byte("tiny"), DefaultChunkSize)
	is.Equal(len(chunks), 1)

	msg, complete := NewMessageAssembler().Add(chunks[0])
	is.True(complete)
	is.Equal(string(msg), "tiny")
}

func TestVSTMessageEncoding(t *testing.T) {
	is := is.New(t)

	body := []byte{0x18} // vpack null
	message, err := EncodeVSTRequest("", http.MethodPatch, "/_api/document/c/k", map[string]string{"keepNull": "false"}, nil, body)
	is.NoErr(err)

	m, err := DecodeVSTMessage(message)
	is.NoErr(err)
	is.Equal(m.Type, vstTypeRequest)
	is.Equal(m.Database, "_system")
	is.Equal(m.Method, http.MethodPatch)
	is.Equal(m.Path, "/_api/document/c/k")
	is.Equal(m.Params["keepNull"], "false")
	is.Equal(m.Body, body)

	response, err := EncodeVSTResponse(http.StatusAccepted, map[string]string{"etag": "\"_rev\""}, nil)
	is.NoErr(err)

	m, err = DecodeVSTMessage(response)
	is.NoErr(err)
	is.Equal(m.Type, vstTypeResponse)
	is.Equal(m.StatusCode, http.StatusAccepted)
	is.Equal(m.Meta["etag"], "\"_rev\"")
	is.Equal(len(m.Body), 0)

	auth, err := encodeVSTAuthentication(JWTAuthentication("token"))
	is.NoErr(err)

	m, err = DecodeVSTMessage(auth)
	is.NoErr(err)
	is.Equal(m.Encryption, "jwt")
	is.Equal(m.Token, "token")
}

func TestUnknownMethodCannotBeSentOverVST(t *testing.T) {
	is := is.New(t)

	_, err := EncodeVSTRequest("_system", "TRACE", "/", nil, nil, nil)
	is.True(err != nil)
}
