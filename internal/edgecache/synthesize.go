package edgecache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"

	"go.uber.org/zap"
)

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// synthesize builds the response returned when the network failed and no
// stored copy exists: 408 for timeouts, 503 otherwise.
func (ic *Interceptor) synthesize(req *http.Request, cause error) *http.Response {
	status := http.StatusServiceUnavailable
	code := "NETWORK_UNAVAILABLE"
	if isTimeout(cause) {
		status = http.StatusRequestTimeout
		code = "NETWORK_TIMEOUT"
	}
	ic.logger.Warn("network failed with no stored response",
		zap.String("url", req.URL.String()),
		zap.Int("status", status),
		zap.Error(cause))

	var body errorBody
	body.Error.Code = code
	body.Error.Message = "the network is unavailable and no cached copy exists"
	buf, _ := json.Marshal(body)

	return &http.Response{
		Status:     fmt.Sprintf("%d %s", status, http.StatusText(status)),
		StatusCode: status,
		Proto:      "HTTP/1.1",
		ProtoMajor: 1,
		ProtoMinor: 1,
		Header: http.Header{
			"Content-Type": {"application/json"},
			HeaderCache:    {CacheSynthesize},
		},
		Body:          io.NopCloser(bytes.NewReader(buf)),
		ContentLength: int64(len(buf)),
		Request:       req,
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
