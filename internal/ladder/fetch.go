package ladder

import (
	"context"
	"io"
	"net/http"
)

const maxBodyBytes = 10 * 1024 * 1024 // 10MB, mirrors the ladder's content cap.

// directFetch performs stage 1: a plain HTTP GET. It returns the observed
// status (a 3-character numeric string, "000" for transport failure, or a
// short symbolic tag for an unexpected in-process error), the body (nil on
// failure) and the response content-type.
func (l *Ladder) directFetch(ctx context.Context, rawURL string) (status string, body []byte, contentType string, err error) {
	req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if reqErr != nil {
		return statusSymbolicError, nil, "", reqErr
	}

	req.Header.Set("User-Agent", l.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, doErr := l.httpClient.Do(req)
	if doErr != nil {
		// DNS, TCP, TLS and timeout failures all collapse into the "000"
		// transport-failure sentinel.
		return statusTransportFailure, nil, "", doErr
	}
	defer resp.Body.Close()

	b, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if readErr != nil {
		return statusSymbolicError, nil, "", readErr
	}

	return httpStatusCode(resp.StatusCode), b, resp.Header.Get("Content-Type"), nil
}

// httpStatusCode formats a numeric HTTP status as the 3-character string
// stored on the Expression row.
func httpStatusCode(code int) string {
	digits := [3]byte{}
	v := code

	for i := 2; i >= 0; i-- {
		digits[i] = byte('0' + v%10)
		v /= 10
	}

	return string(digits[:])
}
