package handler

import (
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/Alia5/splitkb/apitypes"
	"github.com/Alia5/splitkb/internal/firmware"
	"github.com/Alia5/splitkb/internal/link"
	"github.com/Alia5/splitkb/internal/server/api"
)

// StatusSource provides the core status snapshot.
type StatusSource interface {
	Status() firmware.Status
}

// LinkSource provides the peer link counters.
type LinkSource interface {
	Stats() link.Stats
}

// Status returns a handler reporting the state of the half. lk may be nil.
func Status(fw StatusSource, transport string, lk LinkSource) api.HandlerFunc {
	return func(req *api.Request, res *api.Response, logger *slog.Logger) error {
		out := StatusResponse(fw.Status())
		if lk != nil {
			st := lk.Stats()
			out.Link = &apitypes.LinkStatus{
				Transport: transport,
				Connected: st.Connected,
				RxBytes:   st.RxBytes,
				TxBytes:   st.TxBytes,
				Overruns:  st.Overruns,
				Dropped:   st.Dropped,
			}
		}
		b, err := json.Marshal(out)
		if err != nil {
			return err
		}
		res.JSON = string(b)
		return nil
	}
}

// StatusResponse converts a core snapshot to its wire form.
func StatusResponse(st firmware.Status) apitypes.StatusResponse {
	keys := []string{}
	for _, k := range st.Report.Pressed() {
		keys = append(keys, k.Name())
	}
	matrix := []string{}
	if st.Matrix.Rows() > 0 {
		matrix = strings.Split(st.Matrix.String(), "\n")
	}
	layers := st.Layers
	if layers == nil {
		layers = []int{0}
	}
	return apitypes.StatusResponse{
		Side:      st.Side.String(),
		USB:       st.USB.String(),
		Address:   st.Address,
		Layers:    layers,
		Modifiers: st.Report.Modifiers,
		Keys:      keys,
		LEDs: apitypes.LEDs{
			NumLock:    st.LEDs.NumLock,
			CapsLock:   st.LEDs.CapsLock,
			ScrollLock: st.LEDs.ScrollLock,
			Compose:    st.LEDs.Compose,
			Kana:       st.LEDs.Kana,
		},
		Pending:        st.Pending,
		Buffered:       st.Buffered,
		Matrix:         matrix,
		Queue:          st.Queue,
		Halted:         st.Halted,
		Ticks:          st.Ticks,
		Frames:         st.Frames,
		ReportsSent:    st.ReportsSent,
		ReportsDropped: st.ReportsDropped,
	}
}
