package connection

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
)

const acceptEncoding = "gzip, deflate"

func compress(compression Compression, level int, data []byte) ([]byte, error) {
	var buf bytes.Buffer
	var w io.WriteCloser
	var err error

	switch compression {
	case CompressionGzip:
		w, err = gzip.NewWriterLevel(&buf, level)
	case CompressionDeflate:
		w, err = zlib.NewWriterLevel(&buf, level)
	default:
		return data, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create %s writer: %w", compression, err)
	}

	if _, err = w.Write(data); err != nil {
		return nil, err
	}

	if err = w.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Decompress decodes a body according to its Content-Encoding header value. Unknown or empty
// encodings return the data unchanged.
func Decompress(encoding string, data []byte) ([]byte, error) {
	var r io.ReadCloser
	var err error

	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "gzip":
		r, err = gzip.NewReader(bytes.NewReader(data))
	case "deflate":
		r, err = zlib.NewReader(bytes.NewReader(data))
	default:
		return data, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create %s reader: %w", encoding, err)
	}
	defer r.Close()

	return io.ReadAll(r)
}
