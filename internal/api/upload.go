package api

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/meowtec/LANSend/internal/model"
)

// UploadFile streams body to the server and returns the confirmed file
// object. onProgress receives percentages in [0,100]; intermediate calls
// are rate limited so a fast LAN upload does not flood the store, but a
// successful upload always ends with a call at 100.
func (c *Client) UploadFile(ctx context.Context, filename string, size int64, body io.Reader, onProgress func(percent float64)) (model.FileObject, error) {
	endpoint := c.base + "/api/file/upload?filename=" + url.QueryEscape(filename)

	reader := &progressReader{
		r:     body,
		total: size,
		fn:    onProgress,
		lim:   rate.NewLimiter(rate.Every(100*time.Millisecond), 1),
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, reader)
	if err != nil {
		return model.FileObject{}, err
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	if size > 0 {
		req.ContentLength = size
	}

	res, err := c.hc.Do(req)
	if err != nil {
		return model.FileObject{}, err
	}
	defer res.Body.Close()

	var obj model.FileObject
	if err := decodeEnvelope(res.Body, &obj); err != nil {
		return model.FileObject{}, err
	}
	if onProgress != nil {
		onProgress(100)
	}
	return obj, nil
}

type progressReader struct {
	r     io.Reader
	total int64
	read  int64
	fn    func(float64)
	lim   *rate.Limiter
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.read += int64(n)
	if p.fn != nil && p.total > 0 && p.read < p.total && p.lim.Allow() {
		p.fn(float64(p.read) / float64(p.total) * 100)
	}
	return n, err
}
