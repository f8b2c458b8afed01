package apiclient

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	apitypes "github.com/Alia5/splitkb/apitypes"
)

// Request is one control API call: a route and an optional payload.
type Request struct {
	Path    string
	Payload string
}

// Line returns the request as framed on the wire: the lowercased path, a
// space and the payload when there is one, then NUL. The payload may hold
// newlines; only NUL ends a request.
func (r Request) Line() []byte {
	line := []byte(strings.ToLower(r.Path))
	if r.Payload != "" {
		line = append(line, ' ')
		line = append(line, r.Payload...)
	}
	return append(line, 0)
}

// SwitchAction is the last segment of a switch/{row}/{col} route.
type SwitchAction string

const (
	SwitchPress   SwitchAction = "press"
	SwitchRelease SwitchAction = "release"
	SwitchTap     SwitchAction = "tap"
)

// USBAction is the last segment of a usb route.
type USBAction string

const (
	USBSuspend USBAction = "suspend"
	USBResume  USBAction = "resume"
)

var (
	PingRequest   = Request{Path: "ping"}
	StatusRequest = Request{Path: "status"}
)

// SwitchRequest builds switch/{row}/{col}/{action}. hold is only valid for
// a tap, where it travels as the payload; zero keeps the server default.
func SwitchRequest(row, col int, action SwitchAction, hold time.Duration) (Request, error) {
	if row < 0 || col < 0 {
		return Request{}, fmt.Errorf("switch (%d,%d): negative coordinate", row, col)
	}
	switch action {
	case SwitchPress, SwitchRelease:
		if hold != 0 {
			return Request{}, fmt.Errorf("switch %s takes no hold", action)
		}
	case SwitchTap:
		if hold < 0 {
			return Request{}, fmt.Errorf("negative hold %s", hold)
		}
	default:
		return Request{}, fmt.Errorf("unknown switch action %q", action)
	}
	req := Request{Path: fmt.Sprintf("switch/%d/%d/%s", row, col, action)}
	if hold > 0 {
		req.Payload = hold.String()
	}
	return req, nil
}

// USBRequestFor builds usb/{action}.
func USBRequestFor(action USBAction) (Request, error) {
	switch action {
	case USBSuspend, USBResume:
		return Request{Path: "usb/" + string(action)}, nil
	default:
		return Request{}, fmt.Errorf("unknown usb action %q", action)
	}
}

// Decode parses a reply line. A problem document is returned as
// *apitypes.ApiError; anything else must decode into T with no unknown
// fields.
func Decode[T any](line string) (*T, error) {
	if strings.TrimSpace(line) == "" {
		return nil, errors.New("empty response")
	}
	if problem := asProblem(line); problem != nil {
		return nil, problem
	}
	var out T
	dec := json.NewDecoder(bytes.NewReader([]byte(line)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return &out, nil
}

// asProblem returns the problem document in line, or nil when line is a
// regular reply. No reply type carries a status or title field.
func asProblem(line string) *apitypes.ApiError {
	var probe struct {
		Status *int    `json:"status"`
		Title  *string `json:"title"`
	}
	if json.Unmarshal([]byte(line), &probe) != nil || (probe.Status == nil && probe.Title == nil) {
		return nil
	}
	var problem apitypes.ApiError
	if json.Unmarshal([]byte(line), &problem) != nil {
		return nil
	}
	return &problem
}
