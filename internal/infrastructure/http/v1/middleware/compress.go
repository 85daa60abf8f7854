package middleware

import (
	"io"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

type encoder interface {
	io.WriteCloser
	Reset(w io.Writer)
}

var (
	gzipPool = sync.Pool{New: func() any {
		w, _ := gzip.NewWriterLevel(io.Discard, gzip.BestSpeed)
		return w
	}}
	zstdPool = sync.Pool{New: func() any {
		w, _ := zstd.NewWriter(io.Discard, zstd.WithEncoderLevel(zstd.SpeedFastest))
		return w
	}}
)

// Compress encodes response bodies with zstd or gzip, whichever the client
// accepts (zstd preferred). Paths with one of the skipped prefixes pass through.
func Compress(skipPrefixes ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, prefix := range skipPrefixes {
			if strings.HasPrefix(c.Request.URL.Path, prefix) {
				c.Next()
				return
			}
		}

		encoding, pool := negotiate(c.GetHeader("Accept-Encoding"))
		if pool == nil {
			c.Next()
			return
		}

		cw := &compressWriter{ResponseWriter: c.Writer, encoding: encoding, pool: pool}
		c.Writer = cw
		defer cw.finish()

		c.Next()
	}
}

func negotiate(accept string) (string, *sync.Pool) {
	accept = strings.ToLower(accept)
	switch {
	case strings.Contains(accept, "zstd"):
		return "zstd", &zstdPool
	case strings.Contains(accept, "gzip"):
		return "gzip", &gzipPool
	default:
		return "", nil
	}
}

// compressWriter starts encoding on the first body write, so empty responses
// carry no Content-Encoding.
type compressWriter struct {
	gin.ResponseWriter
	encoding string
	pool     *sync.Pool
	enc      encoder
}

func (w *compressWriter) start() {
	if w.enc != nil {
		return
	}
	h := w.Header()
	h.Set("Content-Encoding", w.encoding)
	h.Add("Vary", "Accept-Encoding")
	h.Del("Content-Length")

	w.enc = w.pool.Get().(encoder)
	w.enc.Reset(w.ResponseWriter)
}

func (w *compressWriter) Write(b []byte) (int, error) {
	if len(b) == 0 {
		return 0, nil
	}
	w.start()
	return w.enc.Write(b)
}

func (w *compressWriter) WriteString(s string) (int, error) {
	return w.Write([]byte(s))
}

func (w *compressWriter) finish() {
	if w.enc == nil {
		return
	}
	_ = w.enc.Close()
	w.enc.Reset(io.Discard)
	w.pool.Put(w.enc)
	w.enc = nil
}
