// Package yxc is a client for Yamaha Extended Control, the stateless
// JSON/HTTP REST API MusicCast devices expose for status and control.
package yxc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/jmartin-dev/musiccast-hub-go/internal/apperrors"
)

const basePath = "/YamahaExtendedControl/v1"

// DefaultZone is used by every zone-scoped call unless a caller overrides
// it.
const DefaultZone = "main"

// Client is a pooled HTTP client for one process's worth of YXC traffic
// against any number of devices.
type Client struct {
	httpClient *http.Client
	appName    string
	appPort    int
}

// NewClient creates a YXC client. appName and appPort are sent on
// enrolling calls (getDeviceInfo) as the X-AppName/X-AppPort headers that
// register this process for unicast event delivery.
func NewClient(timeout time.Duration, appName string, appPort int) *Client {
	return &Client{
		appName: appName,
		appPort: appPort,
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

// DeviceInfo is the response shape of getDeviceInfo.
type DeviceInfo struct {
	DeviceID string `json:"device_id"`
}

// NetworkStatus is the response shape of getNetworkStatus.
type NetworkStatus struct {
	NetworkName string `json:"network_name"`
}

// Features is the response shape of getFeatures, narrowed to the fields
// the device agent needs at initialization.
type Features struct {
	System struct {
		InputList []struct {
			ID string `json:"id"`
		} `json:"input_list"`
	} `json:"system"`
}

// InputIDs flattens Features.System.InputList into a plain string slice.
func (f Features) InputIDs() []string {
	ids := make([]string, len(f.System.InputList))
	for i, input := range f.System.InputList {
		ids[i] = input.ID
	}
	return ids
}

// GetDeviceInfo enrolls this process for unicast events (via the
// X-AppName/X-AppPort headers) and returns the device's stable id.
func (c *Client) GetDeviceInfo(ctx context.Context, host string) (DeviceInfo, error) {
	var info DeviceInfo
	err := c.get(ctx, host, "/system/getDeviceInfo", nil, true, &info)
	return info, err
}

// GetNetworkStatus returns the device's user-assigned friendly name.
func (c *Client) GetNetworkStatus(ctx context.Context, host string) (NetworkStatus, error) {
	var status NetworkStatus
	err := c.get(ctx, host, "/system/getNetworkStatus", nil, false, &status)
	return status, err
}

// GetFeatures returns the device's capability table.
func (c *Client) GetFeatures(ctx context.Context, host string) (Features, error) {
	var features Features
	err := c.get(ctx, host, "/system/getFeatures", nil, false, &features)
	return features, err
}

// GetStatus returns a zone's full status document as a generic map — the
// device agent copies it wholesale into its status snapshot.
func (c *Client) GetStatus(ctx context.Context, host, zone string) (map[string]any, error) {
	var status map[string]any
	err := c.get(ctx, host, "/"+zoneOrDefault(zone)+"/getStatus", nil, false, &status)
	return status, err
}

// GetStatusEnrolled is GetStatus with the unicast-event enrollment
// headers attached, used on the periodic YXC renewal tick.
func (c *Client) GetStatusEnrolled(ctx context.Context, host, zone string) (map[string]any, error) {
	var status map[string]any
	err := c.get(ctx, host, "/"+zoneOrDefault(zone)+"/getStatus", nil, true, &status)
	return status, err
}

// GetPlaybackInfo returns a zone's current-track document as a generic
// map.
func (c *Client) GetPlaybackInfo(ctx context.Context, host, zone string) (map[string]any, error) {
	var info map[string]any
	err := c.get(ctx, host, "/"+zoneOrDefault(zone)+"/getPlayInfo", nil, false, &info)
	return info, err
}

// SetPower sets a zone's power state to "on" or "standby".
func (c *Client) SetPower(ctx context.Context, host, zone, power string) error {
	return c.call(ctx, host, "/"+zoneOrDefault(zone)+"/setPower", url.Values{"power": {power}})
}

// SetSleep sets a zone's sleep timer in minutes (0 disables it).
func (c *Client) SetSleep(ctx context.Context, host, zone string, minutes int) error {
	return c.call(ctx, host, "/"+zoneOrDefault(zone)+"/setSleep", url.Values{"sleep": {strconv.Itoa(minutes)}})
}

// SetMute sets a zone's mute state.
func (c *Client) SetMute(ctx context.Context, host, zone string, mute bool) error {
	return c.call(ctx, host, "/"+zoneOrDefault(zone)+"/setMute", url.Values{"enable": {strconv.FormatBool(mute)}})
}

// SetInput switches a zone's active input.
func (c *Client) SetInput(ctx context.Context, host, zone, input string) error {
	return c.call(ctx, host, "/"+zoneOrDefault(zone)+"/setInput", url.Values{"input": {input}})
}

// SetSoundProgram sets a zone's DSP sound program.
func (c *Client) SetSoundProgram(ctx context.Context, host, zone, program string) error {
	return c.call(ctx, host, "/"+zoneOrDefault(zone)+"/setSoundProgram", url.Values{"sound_program": {program}})
}

// PrepareInputChange hints the device that an input switch is imminent, so
// it can pre-warm the source.
func (c *Client) PrepareInputChange(ctx context.Context, host, zone, input string) error {
	return c.call(ctx, host, "/"+zoneOrDefault(zone)+"/prepareInputChange", url.Values{"input": {input}})
}

// SetVolume sets a zone's volume. volume is either a decimal level or the
// literal "up"/"down"; per the enrolled step convention, a step parameter
// is included only for the up/down form.
func (c *Client) SetVolume(ctx context.Context, host, zone, volume string, step int) error {
	q := url.Values{"volume": {volume}}
	if volume == "up" || volume == "down" {
		if step <= 0 {
			step = 1
		}
		q.Set("step", strconv.Itoa(step))
	}
	return c.call(ctx, host, "/"+zoneOrDefault(zone)+"/setVolume", q)
}

// --- Tuner ---

// GetTunerPresetInfo returns the tuner's preset list.
func (c *Client) GetTunerPresetInfo(ctx context.Context, host, band string) (map[string]any, error) {
	var info map[string]any
	err := c.get(ctx, host, "/tuner/getPresetInfo", url.Values{"band": {band}}, false, &info)
	return info, err
}

// GetTunerPlayInfo returns the tuner's current-station document.
func (c *Client) GetTunerPlayInfo(ctx context.Context, host string) (map[string]any, error) {
	var info map[string]any
	err := c.get(ctx, host, "/tuner/getPlayInfo", nil, false, &info)
	return info, err
}

// SetTunerPreset selects a tuner preset by band and number.
func (c *Client) SetTunerPreset(ctx context.Context, host, band string, num int) error {
	return c.call(ctx, host, "/tuner/recallPreset", url.Values{"band": {band}, "num": {strconv.Itoa(num)}})
}

// StoreTunerPreset stores the current station into a preset slot.
func (c *Client) StoreTunerPreset(ctx context.Context, host, band string, num int) error {
	return c.call(ctx, host, "/tuner/storePreset", url.Values{"band": {band}, "num": {strconv.Itoa(num)}})
}

// SwitchTunerPreset steps the tuner to the next or previous preset.
func (c *Client) SwitchTunerPreset(ctx context.Context, host, band, direction string) error {
	return c.call(ctx, host, "/tuner/switchPreset", url.Values{"band": {band}, "dir": {direction}})
}

// SetDABService selects a DAB ensemble/service by direction.
func (c *Client) SetDABService(ctx context.Context, host, direction string) error {
	return c.call(ctx, host, "/tuner/setDabService", url.Values{"dir": {direction}})
}

// --- NetUSB ---

// GetNetUSBPresetInfo returns the netusb preset list.
func (c *Client) GetNetUSBPresetInfo(ctx context.Context, host string) (map[string]any, error) {
	var info map[string]any
	err := c.get(ctx, host, "/netusb/getPresetInfo", nil, false, &info)
	return info, err
}

// GetNetUSBPlayInfo returns the netusb current-track document.
func (c *Client) GetNetUSBPlayInfo(ctx context.Context, host string) (map[string]any, error) {
	var info map[string]any
	err := c.get(ctx, host, "/netusb/getPlayInfo", nil, false, &info)
	return info, err
}

// NetUSBPlayback is the enum of setPlayback actions.
type NetUSBPlayback string

const (
	NetUSBPlay      NetUSBPlayback = "play"
	NetUSBPause     NetUSBPlayback = "pause"
	NetUSBStop      NetUSBPlayback = "stop"
	NetUSBNext      NetUSBPlayback = "next"
	NetUSBPrevious  NetUSBPlayback = "previous"
	NetUSBPlayPause NetUSBPlayback = "play_pause"
)

// SetNetUSBPlayback drives netusb transport controls.
func (c *Client) SetNetUSBPlayback(ctx context.Context, host string, playback NetUSBPlayback) error {
	return c.call(ctx, host, "/netusb/setPlayback", url.Values{"playback": {string(playback)}})
}

// ToggleNetUSBRepeat cycles the netusb repeat mode.
func (c *Client) ToggleNetUSBRepeat(ctx context.Context, host string) error {
	return c.call(ctx, host, "/netusb/toggleRepeat", nil)
}

// ToggleNetUSBShuffle cycles the netusb shuffle mode.
func (c *Client) ToggleNetUSBShuffle(ctx context.Context, host string) error {
	return c.call(ctx, host, "/netusb/toggleShuffle", nil)
}

// GetNetUSBListInfo lists browsable entries starting at index, defaulting
// to index=0, size=8 per the protocol default.
func (c *Client) GetNetUSBListInfo(ctx context.Context, host, listID string, index, size int) (map[string]any, error) {
	if size <= 0 {
		size = 8
	}
	q := url.Values{
		"list_id": {listID},
		"index":   {strconv.Itoa(index)},
		"size":    {strconv.Itoa(size)},
	}
	var info map[string]any
	err := c.get(ctx, host, "/netusb/getListInfo", q, false, &info)
	return info, err
}

// SetNetUSBListControl selects or navigates a browse list entry.
func (c *Client) SetNetUSBListControl(ctx context.Context, host, listID, listType string, index int) error {
	q := url.Values{
		"list_id": {listID},
		"type":    {listType},
		"index":   {strconv.Itoa(index)},
	}
	return c.call(ctx, host, "/netusb/setListControl", q)
}

// SetNetUSBSearchString submits a search query into the current browse
// list. This is the one YXC endpoint the protocol specifies as POST.
func (c *Client) SetNetUSBSearchString(ctx context.Context, host, listID, str string) error {
	body := map[string]string{"list_id": listID, "str": str}
	return c.post(ctx, host, "/netusb/setSearchString", body)
}

// RecallNetUSBPreset recalls a stored netusb preset.
func (c *Client) RecallNetUSBPreset(ctx context.Context, host, zone string, num int) error {
	q := url.Values{"zone": {zoneOrDefault(zone)}, "num": {strconv.Itoa(num)}}
	return c.call(ctx, host, "/netusb/recallPreset", q)
}

// StoreNetUSBPreset stores the current netusb source into a preset slot.
func (c *Client) StoreNetUSBPreset(ctx context.Context, host string, num int) error {
	return c.call(ctx, host, "/netusb/storePreset", url.Values{"num": {strconv.Itoa(num)}})
}

// GetNetUSBAccountStatus returns linked-account status for netusb
// services.
func (c *Client) GetNetUSBAccountStatus(ctx context.Context, host string) (map[string]any, error) {
	var status map[string]any
	err := c.get(ctx, host, "/netusb/getAccountStatus", nil, false, &status)
	return status, err
}

// SwitchNetUSBAccount switches the active account for a netusb service.
func (c *Client) SwitchNetUSBAccount(ctx context.Context, host, input, index string) error {
	q := url.Values{"input": {input}, "index": {index}}
	return c.call(ctx, host, "/netusb/switchAccount", q)
}

// GetNetUSBServiceInfo returns metadata about a netusb streaming service.
func (c *Client) GetNetUSBServiceInfo(ctx context.Context, host, service, serviceType string) (map[string]any, error) {
	q := url.Values{"service": {service}, "type": {serviceType}}
	var info map[string]any
	err := c.get(ctx, host, "/netusb/getServiceInfo", q, false, &info)
	return info, err
}

// --- CD ---

// GetCDPlayInfo returns the CD transport's current-track document.
func (c *Client) GetCDPlayInfo(ctx context.Context, host string) (map[string]any, error) {
	var info map[string]any
	err := c.get(ctx, host, "/cd/getPlayInfo", nil, false, &info)
	return info, err
}

// SetCDPlayback drives CD transport controls.
func (c *Client) SetCDPlayback(ctx context.Context, host string, playback NetUSBPlayback) error {
	return c.call(ctx, host, "/cd/setPlayback", url.Values{"playback": {string(playback)}})
}

// ToggleCDTray opens or closes the CD tray.
func (c *Client) ToggleCDTray(ctx context.Context, host string) error {
	return c.call(ctx, host, "/cd/toggleTray", nil)
}

// ToggleCDRepeat cycles the CD repeat mode.
func (c *Client) ToggleCDRepeat(ctx context.Context, host string) error {
	return c.call(ctx, host, "/cd/toggleRepeat", nil)
}

// ToggleCDShuffle cycles the CD shuffle mode.
func (c *Client) ToggleCDShuffle(ctx context.Context, host string) error {
	return c.call(ctx, host, "/cd/toggleShuffle", nil)
}

// --- misc system passthroughs ---

// GetLocationInfo returns the device's physical location metadata.
func (c *Client) GetLocationInfo(ctx context.Context, host string) (map[string]any, error) {
	var info map[string]any
	err := c.get(ctx, host, "/system/getLocationInfo", nil, false, &info)
	return info, err
}

// GetFuncStatus returns the device's optional-feature availability
// document.
func (c *Client) GetFuncStatus(ctx context.Context, host string) (map[string]any, error) {
	var info map[string]any
	err := c.get(ctx, host, "/system/getFuncStatus", nil, false, &info)
	return info, err
}

// SetAutoPowerStandby toggles automatic standby after inactivity.
func (c *Client) SetAutoPowerStandby(ctx context.Context, host string, enable bool) error {
	return c.call(ctx, host, "/system/setAutoPowerStandby", url.Values{"enable": {strconv.FormatBool(enable)}})
}

// SendIRCode relays a raw infrared code to the device.
func (c *Client) SendIRCode(ctx context.Context, host, code string) error {
	return c.call(ctx, host, "/system/sendIrCode", url.Values{"code": {code}})
}

func zoneOrDefault(zone string) string {
	if zone == "" {
		return DefaultZone
	}
	return zone
}

// call performs a GET expecting only a response_code envelope, discarding
// any other fields — the shape used by every command-style endpoint.
func (c *Client) call(ctx context.Context, host, path string, query url.Values) error {
	var discard map[string]any
	return c.get(ctx, host, path, query, false, &discard)
}

// get performs a GET request and unmarshals the response_code-stripped
// body into out.
func (c *Client) get(ctx context.Context, host, path string, query url.Values, enroll bool, out any) error {
	u := c.buildURL(host, path, query)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return apperrors.NewTransport(err)
	}
	if enroll {
		c.setEnrollmentHeaders(req)
	}

	return c.do(req, out)
}

// post performs the one POST-based YXC endpoint (setSearchString).
func (c *Client) post(ctx context.Context, host, path string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return apperrors.NewTransport(err)
	}

	u := c.buildURL(host, path, nil)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return apperrors.NewTransport(err)
	}
	req.Header.Set("Content-Type", "application/json")

	var discard map[string]any
	return c.do(req, &discard)
}

func (c *Client) buildURL(host, path string, query url.Values) string {
	u := fmt.Sprintf("http://%s%s%s", host, basePath, path)
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func (c *Client) setEnrollmentHeaders(req *http.Request) {
	if c.appName != "" {
		req.Header.Set("X-AppName", c.appName)
	}
	if c.appPort > 0 {
		req.Header.Set("X-AppPort", strconv.Itoa(c.appPort))
	}
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperrors.NewTransport(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperrors.NewTransport(err)
	}

	if resp.StatusCode != http.StatusOK {
		return apperrors.NewInvalidResponse(fmt.Sprintf("yxc request failed: http %d", resp.StatusCode))
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return apperrors.NewInvalidResponse("yxc response is not a JSON object: " + err.Error())
	}

	responseCode := 0
	if raw, ok := envelope["response_code"]; ok {
		if err := json.Unmarshal(raw, &responseCode); err != nil {
			return apperrors.NewInvalidResponse("yxc response_code is not numeric")
		}
		delete(envelope, "response_code")
	}
	if responseCode != 0 {
		return apperrors.NewYXCError(responseCode)
	}

	stripped, err := json.Marshal(envelope)
	if err != nil {
		return apperrors.NewInvalidResponse(err.Error())
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(stripped, out); err != nil {
		return apperrors.NewInvalidResponse("yxc response body decode failed: " + err.Error())
	}
	return nil
}
