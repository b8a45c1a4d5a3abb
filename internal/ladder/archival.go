package ladder

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
)

const archivalAvailabilityEndpoint = "https://archive.org/wayback/available"

// archivalAvailability mirrors the JSON wire shape of the availability
// endpoint named in the external interfaces: {archived_snapshots: {closest:
// {available, url, status}}}.
type archivalAvailability struct {
	ArchivedSnapshots struct {
		Closest struct {
			Available bool   `json:"available"`
			URL       string `json:"url"`
			Status    string `json:"status"`
		} `json:"closest"`
	} `json:"archived_snapshots"`
}

// tryArchival is stage 4: query the archival availability endpoint; if a
// snapshot is returned, fetch it and re-run the readability/structural
// stages against its body. carry.Status (the direct-fetch status observed
// earlier) is preserved regardless of what the archival lookup finds.
func (l *Ladder) tryArchival(ctx context.Context, base *url.URL, carry Result) Result {
	snapshotURL, ok := l.lookupArchival(ctx, base.String())
	if !ok {
		return carry
	}

	archivalCtx, cancel := context.WithTimeout(ctx, l.cfg.ArchivalTimeout)
	defer cancel()

	_, body, _, err := l.directFetchRaw(archivalCtx, snapshotURL)
	if err != nil || body == nil {
		return carry
	}

	if result, ok := l.readabilityStage(body, base); ok {
		result.Status = carry.Status
		result.Stage = "archival-" + result.Stage
		l.enrichMetadata(&result, string(body), base)
		l.attachRawHTML(&result, body)

		return result
	}

	if result, ok := l.structuralStage(body, base); ok {
		result.Status = carry.Status
		result.Stage = "archival-" + result.Stage
		l.enrichMetadata(&result, string(body), base)
		l.attachRawHTML(&result, body)

		return result
	}

	return carry
}

// lookupArchival queries the availability endpoint for rawURL.
func (l *Ladder) lookupArchival(ctx context.Context, rawURL string) (string, bool) {
	ctx, cancel := context.WithTimeout(ctx, l.cfg.ArchivalTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, archivalAvailabilityEndpoint+"?url="+url.QueryEscape(rawURL), nil)
	if err != nil {
		return "", false
	}

	req.Header.Set("User-Agent", l.cfg.UserAgent)

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return "", false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", false
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", false
	}

	var avail archivalAvailability
	if err := json.Unmarshal(body, &avail); err != nil {
		return "", false
	}

	if !avail.ArchivedSnapshots.Closest.Available || avail.ArchivedSnapshots.Closest.URL == "" {
		return "", false
	}

	return avail.ArchivedSnapshots.Closest.URL, true
}

// directFetchRaw is directFetch without the total-timeout wrapping already
// applied by Run, used when the archival stage needs its own shorter
// timeout for the snapshot fetch.
func (l *Ladder) directFetchRaw(ctx context.Context, rawURL string) (string, []byte, string, error) {
	return l.directFetch(ctx, rawURL)
}
