package gpu

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestLoadedModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/ps" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"models":[{"name":"llama3:8b","size_vram":5368709120}]}`))
	}))
	defer srv.Close()

	models := LoadedModels(context.Background(), srv.Client(), srv.URL)
	if len(models) != 1 || models[0].Name != "llama3:8b" || models[0].VRAMMB != 5120 {
		t.Fatalf("unexpected models: %+v", models)
	}
}

func TestLoadedModelsUnreachable(t *testing.T) {
	if got := LoadedModels(context.Background(), http.DefaultClient, "http://127.0.0.1:1"); got != nil {
		t.Fatalf("expected nil on unreachable backend, got %+v", got)
	}
}
