package api

import (
	"compress/gzip"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// ErrBodyTooLarge is returned by request body reads past the limit given to
// DecompressRequests.
var ErrBodyTooLarge = errors.New("request body too large")

// DecompressRequests unwraps gzip request bodies and caps every body at
// limit bytes after decompression. A body that claims gzip but is not gets
// a 400.
func DecompressRequests(limit int64) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			body := &cappedBody{r: req.Body, left: limit, closers: []io.Closer{req.Body}}

			if isGzipped(req.Header.Get(echo.HeaderContentEncoding)) {
				gr, err := gzip.NewReader(req.Body)
				if err != nil {
					_ = req.Body.Close()
					return echo.NewHTTPError(http.StatusBadRequest, "invalid gzip body")
				}
				body.r = gr
				body.closers = []io.Closer{gr, req.Body}
				req.ContentLength = -1
				req.Header.Del(echo.HeaderContentEncoding)
				req.Header.Del(echo.HeaderContentLength)
			}

			req.Body = body
			return next(c)
		}
	}
}

func isGzipped(header string) bool {
	for _, enc := range strings.Split(header, ",") {
		if strings.EqualFold(strings.TrimSpace(enc), "gzip") {
			return true
		}
	}
	return false
}

// cappedBody reads at most left bytes from r. Once the budget is spent a
// further byte in r turns into ErrBodyTooLarge.
type cappedBody struct {
	r       io.Reader
	left    int64
	closers []io.Closer
}

func (b *cappedBody) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if b.left <= 0 {
		var one [1]byte
		n, err := b.r.Read(one[:])
		if n > 0 {
			return 0, ErrBodyTooLarge
		}
		if err == nil {
			return 0, nil
		}
		return 0, err
	}
	if int64(len(p)) > b.left {
		p = p[:b.left]
	}
	n, err := b.r.Read(p)
	b.left -= int64(n)
	return n, err
}

func (b *cappedBody) Close() error {
	var err error
	for _, c := range b.closers {
		if cerr := c.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
