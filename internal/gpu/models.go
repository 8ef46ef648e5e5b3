package gpu

import (
	"context"
	"encoding/json"
	"net/http"

	"sentineld/pkg/types"
)

// psResponse mirrors the backend's /api/ps payload (Ollama shape).
type psResponse struct {
	Models []struct {
		Name     string `json:"name"`
		SizeVRAM int64  `json:"size_vram"`
	} `json:"models"`
}

// LoadedModels asks the inference backend which models are resident in VRAM.
// Failures (backend paused, unreachable) yield an empty list, not an error:
// capacity reporting must work while inference is down.
func LoadedModels(ctx context.Context, client *http.Client, baseURL string) []types.LoadedModel {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/api/ps", nil)
	if err != nil {
		return nil
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()
	var ps psResponse
	if err := json.NewDecoder(resp.Body).Decode(&ps); err != nil {
		return nil
	}
	models := make([]types.LoadedModel, 0, len(ps.Models))
	for _, m := range ps.Models {
		models = append(models, types.LoadedModel{
			Name:   m.Name,
			VRAMMB: int(m.SizeVRAM / (1024 * 1024)),
		})
	}
	return models
}
