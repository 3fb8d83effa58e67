package routes

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"printer-bridge/internal/config"
	"printer-bridge/internal/connection"
	"printer-bridge/internal/handler"
	"printer-bridge/internal/service"
	"printer-bridge/internal/transport"
)

func TestSetupRouterRegistersRoutes(t *testing.T) {
	logger := zap.NewNop()
	cfg := &config.Config{
		Server: config.ServerConfig{Port: "0"},
		App:    config.AppConfig{Name: "printer-bridge", Environment: "test"},
	}
	bus := handler.NewEventBus(logger)
	manager := connection.NewManager(&transport.Set{}, nil, bus, connection.Options{}, logger)
	svc := service.NewPrinterService(manager, nil, cfg, logger)

	engine, ws := NewRouter(cfg, logger, svc, bus).SetupRouter()
	if ws == nil {
		t.Fatal("no websocket handler")
	}

	want := map[string]bool{
		"GET /health":                   false,
		"GET /ready":                    false,
		"GET /live":                     false,
		"GET /api/v1/devices/scan":      false,
		"DELETE /api/v1/devices/scan":   false,
		"GET /api/v1/connection":        false,
		"POST /api/v1/connection":       false,
		"POST /api/v1/connection/wired": false,
		"DELETE /api/v1/connection":     false,
		"POST /api/v1/print":            false,
		"POST /api/v1/print/preview":    false,
		"GET /api/v1/access":            false,
		"POST /api/v1/access/:token":    false,
		"GET /ws/events":                false,
		"GET /ws/stats":                 false,
	}
	for _, route := range engine.Routes() {
		key := route.Method + " " + route.Path
		if _, ok := want[key]; ok {
			want[key] = true
		}
	}
	for key, found := range want {
		if !found {
			t.Errorf("route %s not registered", key)
		}
	}

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/live", nil))
	if w.Code != http.StatusOK {
		t.Errorf("GET /live = %d", w.Code)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("request id middleware not installed")
	}
}
