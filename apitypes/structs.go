package apitypes

import "fmt"

// ApiError represents an RFC 7807 (problem+json) error response.
type ApiError struct {
	// Status is the HTTP-style status code (e.g., 400, 404, 500)
	Status int `json:"status"`
	// Title is a short, human-readable summary of the problem type
	Title string `json:"title"`
	// Detail is a human-readable explanation specific to this occurrence
	Detail string `json:"detail"`
}

func (e ApiError) Error() string {
	if e.Status == 0 && e.Title == "" {
		return "unknown error"
	}
	if e.Status == 0 {
		return fmt.Sprintf("%s: %s", e.Title, e.Detail)
	}
	return fmt.Sprintf("%d %s: %s", e.Status, e.Title, e.Detail)
}

// --

type PingResponse struct {
	Server  string `json:"server"`
	Version string `json:"version"`
}

type LEDs struct {
	NumLock    bool `json:"numLock"`
	CapsLock   bool `json:"capsLock"`
	ScrollLock bool `json:"scrollLock"`
	Compose    bool `json:"compose"`
	Kana       bool `json:"kana"`
}

type LinkStatus struct {
	Transport string `json:"transport"`
	Connected bool   `json:"connected"`
	RxBytes   uint64 `json:"rxBytes"`
	TxBytes   uint64 `json:"txBytes"`
	Overruns  uint64 `json:"overruns"`
	Dropped   uint64 `json:"dropped"`
}

type StatusResponse struct {
	Side      string   `json:"side"`
	USB       string   `json:"usb"`
	Address   uint8    `json:"address"`
	Layers    []int    `json:"layers"`
	Modifiers uint8    `json:"modifiers"`
	Keys      []string `json:"keys"`
	LEDs      LEDs     `json:"leds"`
	Pending   int      `json:"pending"`
	Buffered  int      `json:"buffered"`
	// Matrix holds the debounced local switches, one string per row,
	// '#' pressed and '.' released.
	Matrix         []string    `json:"matrix"`
	Queue          int         `json:"queue"`
	Halted         bool        `json:"halted"`
	Ticks          uint64      `json:"ticks"`
	Frames         uint64      `json:"frames"`
	ReportsSent    uint64      `json:"reportsSent"`
	ReportsDropped uint64      `json:"reportsDropped"`
	Link           *LinkStatus `json:"link,omitempty"`
}

type SwitchResponse struct {
	Row    int    `json:"row"`
	Col    int    `json:"col"`
	Action string `json:"action"`
}

type USBResponse struct {
	Attached bool   `json:"attached"`
	Action   string `json:"action"`
}
