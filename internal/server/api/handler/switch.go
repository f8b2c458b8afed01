package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/Alia5/splitkb/apitypes"
	"github.com/Alia5/splitkb/internal/server/api"
)

// DefaultTapHold is how long a tap keeps the switch closed unless the
// request names a duration. It spans several debounce windows.
const DefaultTapHold = 30 * time.Millisecond

const maxTapHold = 5 * time.Second

// Switches is the local switch matrix.
type Switches interface {
	Press(row, col int) error
	Release(row, col int) error
}

// Switch actions.
const (
	ActionPress   = "press"
	ActionRelease = "release"
	ActionTap     = "tap"
)

// Switch returns a handler for switch/{row}/{col}/<action>. A tap accepts an
// optional hold duration payload such as "50ms".
func Switch(sw Switches, action string) api.HandlerFunc {
	return func(req *api.Request, res *api.Response, logger *slog.Logger) error {
		row, err := coord(req.Params, "row")
		if err != nil {
			return err
		}
		col, err := coord(req.Params, "col")
		if err != nil {
			return err
		}

		switch action {
		case ActionPress:
			err = sw.Press(row, col)
		case ActionRelease:
			err = sw.Release(row, col)
		case ActionTap:
			hold := DefaultTapHold
			if p := strings.TrimSpace(req.Payload); p != "" {
				hold, err = time.ParseDuration(p)
				if err != nil || hold <= 0 || hold > maxTapHold {
					return api.ErrBadRequest(fmt.Sprintf("invalid hold duration %q", p))
				}
			}
			if err = sw.Press(row, col); err != nil {
				break
			}
			select {
			case <-time.After(hold):
			case <-req.Ctx.Done():
			}
			err = sw.Release(row, col)
		default:
			return api.ErrNotFound(fmt.Sprintf("unknown switch action %q", action))
		}
		if err != nil {
			return api.ErrBadRequest(err.Error())
		}
		logger.Debug("Switch", "row", row, "col", col, "action", action)

		b, err := json.Marshal(apitypes.SwitchResponse{Row: row, Col: col, Action: action})
		if err != nil {
			return err
		}
		res.JSON = string(b)
		return nil
	}
}

func coord(params map[string]string, name string) (int, error) {
	s, ok := params[name]
	if !ok {
		return 0, api.ErrBadRequest(fmt.Sprintf("missing %s parameter", name))
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, api.ErrBadRequest(fmt.Sprintf("invalid %s: %v", name, err))
	}
	return v, nil
}
