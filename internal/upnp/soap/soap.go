// Package soap invokes UPnP actions over SOAP 1.1 and decodes both
// successful responses and s:Fault error envelopes.
package soap

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/jmartin-dev/musiccast-hub-go/internal/apperrors"
)

// Client invokes SOAP actions against UPnP control URLs, pooling
// connections across calls to the same device.
type Client struct {
	httpClient *http.Client
}

// NewClient creates a SOAP client with the given per-call timeout.
func NewClient(timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				DialContext:         (&net.Dialer{Timeout: timeout}).DialContext,
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// CallAction invokes a SOAP action at controlURL and returns its out
// arguments as a flat map. Faults are decoded into *apperrors.Error with
// Kind KindUpnpError; transport failures into KindTransport.
func (c *Client) CallAction(ctx context.Context, controlURL, serviceType, action string, args map[string]string) (map[string]string, error) {
	body := buildEnvelope(serviceType, action, args)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, controlURL, bytes.NewReader(body))
	if err != nil {
		return nil, apperrors.NewTransport(err)
	}
	req.Header.Set("Content-Type", `text/xml; charset="utf-8"`)
	req.Header.Set("SOAPAction", fmt.Sprintf(`"%s#%s"`, serviceType, action))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, apperrors.New(apperrors.KindTimeout, fmt.Sprintf("action %s timed out", action))
		}
		return nil, apperrors.NewTransport(err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.NewTransport(err)
	}

	if resp.StatusCode >= 400 {
		code, desc, ok := parseFault(payload)
		if ok {
			return nil, apperrors.NewUpnpError(code, desc)
		}
		return nil, apperrors.NewInvalidResponse(fmt.Sprintf("action %s failed: http %d", action, resp.StatusCode))
	}

	return parseResponse(payload, action)
}

func buildEnvelope(serviceType, action string, args map[string]string) []byte {
	var buf strings.Builder
	buf.WriteString(`<?xml version="1.0" encoding="utf-8"?>`)
	buf.WriteString(`<s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/" s:encodingStyle="http://schemas.xmlsoap.org/soap/encoding/">`)
	buf.WriteString("<s:Body>")
	buf.WriteString("<u:")
	buf.WriteString(action)
	buf.WriteString(` xmlns:u="`)
	buf.WriteString(serviceType)
	buf.WriteString(`">`)

	for key, value := range args {
		buf.WriteString("<")
		buf.WriteString(key)
		buf.WriteString(">")
		buf.WriteString(escapeXML(value))
		buf.WriteString("</")
		buf.WriteString(key)
		buf.WriteString(">")
	}

	buf.WriteString("</u:")
	buf.WriteString(action)
	buf.WriteString(">")
	buf.WriteString("</s:Body>")
	buf.WriteString("</s:Envelope>")

	return []byte(buf.String())
}

func escapeXML(input string) string {
	var b strings.Builder
	if err := xml.EscapeText(&b, []byte(input)); err != nil {
		return input
	}
	return b.String()
}

// parseResponse decodes an action's *Response body into a flat map of its
// out arguments. Non-leaf elements (the envelope, body, response wrapper
// itself) are skipped by only recording character data seen directly under
// a leaf start element.
func parseResponse(payload []byte, action string) (map[string]string, error) {
	decoder := xml.NewDecoder(bytes.NewReader(payload))
	out := make(map[string]string)

	var field string
	var depth int
	fieldDepth := -1

	for {
		tok, err := decoder.Token()
		if err != nil {
			break
		}
		switch el := tok.(type) {
		case xml.StartElement:
			depth++
			field = el.Name.Local
			fieldDepth = depth
		case xml.CharData:
			value := strings.TrimSpace(string(el))
			if value == "" || field == "" {
				continue
			}
			out[field] = value
		case xml.EndElement:
			if depth == fieldDepth {
				field = ""
			}
			depth--
		}
	}

	if len(out) == 0 {
		return out, nil
	}
	return out, nil
}

// parseFault extracts the UPnP error code and description from an
// s:Fault/detail/u:UPnPError body. ok is false if the payload has no
// recognizable UPnP fault shape.
func parseFault(payload []byte) (code, desc string, ok bool) {
	decoder := xml.NewDecoder(bytes.NewReader(payload))

	for {
		tok, err := decoder.Token()
		if err != nil {
			break
		}
		se, isStart := tok.(xml.StartElement)
		if !isStart {
			continue
		}
		switch se.Name.Local {
		case "errorCode":
			var value string
			if err := decoder.DecodeElement(&value, &se); err == nil {
				code = strings.TrimSpace(value)
				ok = true
			}
		case "errorDescription":
			var value string
			if err := decoder.DecodeElement(&value, &se); err == nil {
				desc = strings.TrimSpace(value)
			}
		}
	}

	return code, desc, ok
}
