package main

import (
	"embed"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
)

//go:embed assets/gateway.v1.yaml
var openAPISpec embed.FS

type upstreams struct {
	Auth   *url.URL
	Agenda *url.URL
}

func registerRoutes(mux *http.ServeMux, up upstreams, transport http.RoundTripper) {
	authProxy := httputil.NewSingleHostReverseProxy(up.Auth)
	agendaProxy := httputil.NewSingleHostReverseProxy(up.Agenda)
	authProxy.Transport = transport
	agendaProxy.Transport = transport

	registerProxy(mux, "/api/v1/auth", authProxy)
	registerProxy(mux, "/api/v1/agenda", agendaProxy)
	registerProxy(mux, "/api/v1/appointments", agendaProxy)

	mux.HandleFunc("GET /openapi", func(w http.ResponseWriter, _ *http.Request) {
		data, err := openAPISpec.ReadFile("assets/gateway.v1.yaml")
		if err != nil {
			http.Error(w, "openapi not available", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/yaml")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	})
}

func registerProxy(mux *http.ServeMux, prefix string, handler http.Handler) {
	if !strings.HasSuffix(prefix, "/") {
		mux.Handle(prefix, handler)
		mux.Handle(prefix+"/", handler)
		return
	}
	mux.Handle(prefix, handler)
}

func mustParseURL(raw string) *url.URL {
	u, err := url.Parse(raw)
	if err != nil {
		panic(err)
	}
	return u
}
