package agent

import (
	"context"
	"fmt"

	json "github.com/json-iterator/go"
	"go.uber.org/zap"
)

// ActionFillCountry asks for an immediate fill in every frame.
const ActionFillCountry = "FILL_COUNTRY"

// Request is a message from the settings UI.
type Request struct {
	Action      string `json:"action"`
	CountryName string `json:"countryName"`
}

// Response answers a Request. Found is true when any frame located the
// input.
type Response struct {
	Success bool          `json:"success"`
	Found   bool          `json:"found"`
	Error   string        `json:"error,omitempty"`
	Frames  []FrameResult `json:"frames,omitempty"`
}

// DecodeRequest parses a JSON request.
func DecodeRequest(data []byte) (Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return Request{}, fmt.Errorf("decode request: %w", err)
	}
	return req, nil
}

// Encode renders r as JSON.
func (r Response) Encode() ([]byte, error) {
	return json.Marshal(r)
}

// Handle serves one request. It never returns an error; failures are
// reported in the response.
func (a *Agent) Handle(ctx context.Context, req Request) Response {
	switch req.Action {
	case ActionFillCountry:
		frames, err := a.filler.Fill(ctx, req.CountryName)
		if err != nil {
			a.logger.Warn("On-demand fill failed", zap.Error(err))
			a.metrics.observeOnDemand(false, err)
			return Response{Success: false, Error: err.Error()}
		}
		found := false
		for _, f := range frames {
			if f.Found {
				found = true
				break
			}
		}
		a.metrics.observeOnDemand(found, nil)
		return Response{Success: true, Found: found, Frames: frames}
	default:
		return Response{Success: false, Error: fmt.Sprintf("unknown action %q", req.Action)}
	}
}
