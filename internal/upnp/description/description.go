// Package description parses UPnP device-root and service-description
// (SCPD) XML documents and resolves their relative URLs to absolute ones.
package description

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Icon is one entry from a device's iconList.
type Icon struct {
	MimeType string
	Width    int
	Height   int
	Depth    int
	URL      string
}

// Service is one entry from a device's serviceList.
type Service struct {
	ServiceType string
	ServiceID   string
	SCPDURL     string
	ControlURL  string
	EventSubURL string
}

// RootDevice is the parsed contents of a UPnP device description document.
type RootDevice struct {
	DeviceType   string
	FriendlyName string
	Manufacturer string
	ModelName    string
	UDN          string
	IconList     []Icon
	ServiceList  []Service
}

// ServiceByID returns the service whose ServiceID matches id, if any.
func (r *RootDevice) ServiceByID(id string) (Service, bool) {
	for _, svc := range r.ServiceList {
		if svc.ServiceID == id {
			return svc, true
		}
	}
	return Service{}, false
}

// Argument is one entry in an action's argument list.
type Argument struct {
	Name                 string
	Direction            string
	RelatedStateVariable string
}

// Action is one entry from an SCPD actionList.
type Action struct {
	Name      string
	Arguments []Argument
}

// StateVariable is one entry from an SCPD serviceStateTable.
type StateVariable struct {
	Name     string
	DataType string
}

// SCPD is the parsed contents of a service-control-protocol-description
// document: the action table and state-variable table an upnp/soap client
// invokes actions against.
type SCPD struct {
	Actions        []Action
	StateVariables []StateVariable
}

// ActionByName returns the action with the given name, if present.
func (s *SCPD) ActionByName(name string) (Action, bool) {
	for _, a := range s.Actions {
		if a.Name == name {
			return a, true
		}
	}
	return Action{}, false
}

// DataTypeOf returns the declared data type of a state variable, or "" if
// unknown.
func (s *SCPD) DataTypeOf(name string) string {
	for _, v := range s.StateVariables {
		if v.Name == name {
			return v.DataType
		}
	}
	return ""
}

// httpClient is shared across description fetches; devices are LAN-local so
// a short timeout keeps a slow/dead device from blocking discovery.
var httpClient = &http.Client{
	Timeout: 5 * time.Second,
	Transport: &http.Transport{
		DialContext:     (&net.Dialer{Timeout: 3 * time.Second}).DialContext,
		IdleConnTimeout: 30 * time.Second,
	},
}

// Fetch retrieves and parses a device-root description, absolutizing every
// relative URL against the description's own location.
func Fetch(ctx context.Context, location string) (*RootDevice, error) {
	base, err := url.Parse(location)
	if err != nil {
		return nil, fmt.Errorf("parse location: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, err
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	root, err := ParseRoot(body)
	if err != nil {
		return nil, err
	}
	Absolutize(root, base)
	return root, nil
}

// FetchSCPD retrieves and parses an SCPD document at an already-absolute
// URL.
func FetchSCPD(ctx context.Context, scpdURL string) (*SCPD, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, scpdURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return ParseSCPD(body)
}

// ParseRoot parses a device-root description document. URLs are left
// exactly as they appear in the document; call Absolutize to resolve them.
func ParseRoot(xmlPayload []byte) (*RootDevice, error) {
	decoder := xml.NewDecoder(bytes.NewReader(xmlPayload))
	root := &RootDevice{}

	var inDevice bool
	var curIcon *Icon
	var curService *Service
	var field string

	for {
		tok, err := decoder.Token()
		if err != nil {
			break
		}
		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "device":
				inDevice = true
			case "icon":
				root.IconList = append(root.IconList, Icon{})
				curIcon = &root.IconList[len(root.IconList)-1]
			case "service":
				root.ServiceList = append(root.ServiceList, Service{})
				curService = &root.ServiceList[len(root.ServiceList)-1]
			default:
				field = el.Name.Local
			}
		case xml.CharData:
			value := strings.TrimSpace(string(el))
			if value == "" {
				continue
			}
			switch {
			case curIcon != nil && isIconField(field):
				applyIconField(curIcon, field, value)
			case curService != nil && isServiceField(field):
				applyServiceField(curService, field, value)
			case inDevice:
				switch field {
				case "deviceType":
					root.DeviceType = value
				case "friendlyName":
					root.FriendlyName = value
				case "manufacturer":
					root.Manufacturer = value
				case "modelName":
					root.ModelName = value
				case "UDN":
					if root.UDN == "" {
						root.UDN = strings.TrimPrefix(value, "uuid:")
					}
				}
			}
		case xml.EndElement:
			switch el.Name.Local {
			case "icon":
				curIcon = nil
			case "service":
				curService = nil
			}
			field = ""
		}
	}

	return root, nil
}

func isIconField(field string) bool {
	switch field {
	case "mimetype", "width", "height", "depth", "url":
		return true
	}
	return false
}

func applyIconField(icon *Icon, field, value string) {
	switch field {
	case "mimetype":
		icon.MimeType = value
	case "width":
		icon.Width = atoi(value)
	case "height":
		icon.Height = atoi(value)
	case "depth":
		icon.Depth = atoi(value)
	case "url":
		icon.URL = value
	}
}

func isServiceField(field string) bool {
	switch field {
	case "serviceType", "serviceId", "SCPDURL", "controlURL", "eventSubURL":
		return true
	}
	return false
}

func applyServiceField(svc *Service, field, value string) {
	switch field {
	case "serviceType":
		svc.ServiceType = value
	case "serviceId":
		svc.ServiceID = value
	case "SCPDURL":
		svc.SCPDURL = value
	case "controlURL":
		svc.ControlURL = value
	case "eventSubURL":
		svc.EventSubURL = value
	}
}

// Absolutize rewrites every relative URL in root to an absolute URL using
// base's scheme and host.
func Absolutize(root *RootDevice, base *url.URL) {
	origin := &url.URL{Scheme: base.Scheme, Host: base.Host}
	for i := range root.IconList {
		root.IconList[i].URL = resolve(origin, root.IconList[i].URL)
	}
	for i := range root.ServiceList {
		root.ServiceList[i].SCPDURL = resolve(origin, root.ServiceList[i].SCPDURL)
		root.ServiceList[i].ControlURL = resolve(origin, root.ServiceList[i].ControlURL)
		root.ServiceList[i].EventSubURL = resolve(origin, root.ServiceList[i].EventSubURL)
	}
}

func resolve(base *url.URL, ref string) string {
	if ref == "" {
		return ""
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(refURL).String()
}

// ParseSCPD parses a service-control-protocol-description document.
func ParseSCPD(xmlPayload []byte) (*SCPD, error) {
	decoder := xml.NewDecoder(bytes.NewReader(xmlPayload))
	scpd := &SCPD{}

	var curAction *Action
	var curArg *Argument
	var curVar *StateVariable
	var field string

	for {
		tok, err := decoder.Token()
		if err != nil {
			break
		}
		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "action":
				scpd.Actions = append(scpd.Actions, Action{})
				curAction = &scpd.Actions[len(scpd.Actions)-1]
			case "argument":
				if curAction != nil {
					curAction.Arguments = append(curAction.Arguments, Argument{})
					curArg = &curAction.Arguments[len(curAction.Arguments)-1]
				}
			case "stateVariable":
				scpd.StateVariables = append(scpd.StateVariables, StateVariable{})
				curVar = &scpd.StateVariables[len(scpd.StateVariables)-1]
			default:
				field = el.Name.Local
			}
		case xml.CharData:
			value := strings.TrimSpace(string(el))
			if value == "" {
				continue
			}
			switch {
			case curArg != nil && (field == "name" || field == "direction" || field == "relatedStateVariable"):
				switch field {
				case "name":
					curArg.Name = value
				case "direction":
					curArg.Direction = value
				case "relatedStateVariable":
					curArg.RelatedStateVariable = value
				}
			case curVar != nil && field == "dataType":
				curVar.DataType = value
			case curVar != nil && field == "name":
				curVar.Name = value
			case curAction != nil && curArg == nil && field == "name":
				curAction.Name = value
			}
		case xml.EndElement:
			switch el.Name.Local {
			case "action":
				curAction = nil
			case "argument":
				curArg = nil
			case "stateVariable":
				curVar = nil
			}
			field = ""
		}
	}

	return scpd, nil
}

func atoi(s string) int {
	n := 0
	for _, ch := range s {
		if ch < '0' || ch > '9' {
			return 0
		}
		n = n*10 + int(ch-'0')
	}
	return n
}
