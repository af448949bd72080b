package services

import (
	"context"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"
)

func TestHTTPServerService_ImplementsSutureService(t *testing.T) {
	var _ suture.Service = (*HTTPServerService)(nil)
}

func TestHTTPServerService_ServesAndShutsDownOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	server := &http.Server{Addr: addr, Handler: mux}
	svc := NewHTTPServerService(server, 50*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	var resp *http.Response
	for i := 0; i < 20; i++ {
		time.Sleep(10 * time.Millisecond)
		resp, err = http.Get("http://" + addr + "/healthz")
		if err == nil {
			break
		}
	}
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("service did not stop in time")
	}
}

func TestHTTPServerService_String(t *testing.T) {
	svc := NewHTTPServerService(&http.Server{Addr: "127.0.0.1:0"}, 0)
	if svc.String() != "http-server" {
		t.Errorf("String() = %q, want http-server", svc.String())
	}
}

func TestHTTPServerService_ZeroTimeoutDefaultsToTenSeconds(t *testing.T) {
	svc := NewHTTPServerService(&http.Server{Addr: "127.0.0.1:0"}, 0)
	if svc.stopTimeout != 10*time.Second {
		t.Errorf("stopTimeout = %v, want 10s default", svc.stopTimeout)
	}
}
