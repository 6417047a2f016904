// Package gena implements the UPnP General Event Notification Architecture
// subscription protocol: SUBSCRIBE, its renewal form, and UNSUBSCRIBE.
package gena

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jmartin-dev/musiccast-hub-go/internal/apperrors"
)

// Client issues GENA subscription requests against a service's
// eventSubURL.
type Client struct {
	httpClient *http.Client
}

// NewClient creates a GENA client with the given per-call timeout.
func NewClient(timeout time.Duration) *Client {
	return &Client{httpClient: &http.Client{Timeout: timeout}}
}

// Subscribe sends an initial SUBSCRIBE request carrying CALLBACK and NT.
// Passing a target that begins with "uuid:" as the sid to Renew reuses this
// same verb in its renewal form (SID header, no CALLBACK/NT) — Subscribe
// and Renew are two entry points onto one HTTP method.
func (c *Client) Subscribe(ctx context.Context, eventSubURL, callbackURL string, timeoutSec int) (sid string, grantedSec int, err error) {
	req, err := http.NewRequestWithContext(ctx, "SUBSCRIBE", eventSubURL, nil)
	if err != nil {
		return "", 0, apperrors.NewTransport(err)
	}
	req.Header.Set("CALLBACK", fmt.Sprintf("<%s>", callbackURL))
	req.Header.Set("NT", "upnp:event")
	req.Header.Set("TIMEOUT", fmt.Sprintf("Second-%d", timeoutSec))

	return c.do(req)
}

// Renew sends a SUBSCRIBE request in its renewal form: SID identifies the
// existing subscription and CALLBACK/NT are omitted. A 412 response means
// the subscription no longer exists on the device and surfaces as
// apperrors.KindPreconditionFailed. The device is free to issue a new SID
// on renewal; callers must persist the returned newSID even when it
// matches what they sent, since a stale SID answers every subsequent
// NOTIFY with 410 Gone.
func (c *Client) Renew(ctx context.Context, eventSubURL, sid string, timeoutSec int) (newSID string, grantedSec int, err error) {
	if !strings.HasPrefix(sid, "uuid:") {
		sid = "uuid:" + sid
	}

	req, err := http.NewRequestWithContext(ctx, "SUBSCRIBE", eventSubURL, nil)
	if err != nil {
		return "", 0, apperrors.NewTransport(err)
	}
	req.Header.Set("SID", sid)
	req.Header.Set("TIMEOUT", fmt.Sprintf("Second-%d", timeoutSec))

	return c.do(req)
}

// Unsubscribe sends an UNSUBSCRIBE request. A 412 is treated as success:
// the subscription is already gone, which is the desired end state.
func (c *Client) Unsubscribe(ctx context.Context, eventSubURL, sid string) error {
	if !strings.HasPrefix(sid, "uuid:") {
		sid = "uuid:" + sid
	}

	req, err := http.NewRequestWithContext(ctx, "UNSUBSCRIBE", eventSubURL, nil)
	if err != nil {
		return apperrors.NewTransport(err)
	}
	req.Header.Set("SID", sid)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperrors.NewTransport(err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode == http.StatusPreconditionFailed || resp.StatusCode == http.StatusOK {
		return nil
	}
	return apperrors.NewInvalidResponse(fmt.Sprintf("unsubscribe failed: %s", resp.Status))
}

func (c *Client) do(req *http.Request) (sid string, grantedSec int, err error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", 0, apperrors.NewTransport(err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode == http.StatusPreconditionFailed {
		return "", 0, apperrors.NewPreconditionFailed()
	}
	if resp.StatusCode != http.StatusOK {
		return "", 0, apperrors.NewInvalidResponse(fmt.Sprintf("subscribe failed: %s", resp.Status))
	}

	sid = normalizeSID(resp.Header.Get("SID"))
	grantedSec = parseTimeout(resp.Header.Get("TIMEOUT"))
	if sid == "" {
		return "", 0, apperrors.NewInvalidResponse("subscribe response missing SID")
	}
	return sid, grantedSec, nil
}

func normalizeSID(sid string) string {
	sid = strings.TrimSpace(sid)
	if sid == "" || strings.HasPrefix(sid, "uuid:") {
		return sid
	}
	return "uuid:" + sid
}

func parseTimeout(header string) int {
	const prefix = "Second-"
	if !strings.HasPrefix(header, prefix) {
		return 0
	}
	seconds, err := strconv.Atoi(strings.TrimPrefix(header, prefix))
	if err != nil {
		return 0
	}
	return seconds
}

// RenewalDelay computes how long to wait before renewing a subscription
// granted for grantedSec seconds, backing off by bufferSec so the renewal
// request lands before the device's timer actually expires.
func RenewalDelay(grantedSec, bufferSec int) time.Duration {
	delay := grantedSec - bufferSec
	if delay < 0 {
		delay = 0
	}
	return time.Duration(delay) * time.Second
}
