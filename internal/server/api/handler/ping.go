package handler

import (
	"encoding/json"
	"log/slog"

	"github.com/Alia5/splitkb/apitypes"
	"github.com/Alia5/splitkb/internal/server/api"
)

// Ping returns a handler identifying the server.
func Ping(version string) api.HandlerFunc {
	return func(req *api.Request, res *api.Response, logger *slog.Logger) error {
		b, err := json.Marshal(apitypes.PingResponse{Server: "splitkb", Version: version})
		if err != nil {
			return err
		}
		res.JSON = string(b)
		return nil
	}
}
