package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-logr/logr"
	"sigs.k8s.io/controller-runtime/pkg/healthz"

	"github.com/xdavidwu/openapi-conformance/internal"
	"github.com/xdavidwu/openapi-conformance/internal/conformance"
	"github.com/xdavidwu/openapi-conformance/internal/document"
	"github.com/xdavidwu/openapi-conformance/internal/log"
	"github.com/xdavidwu/openapi-conformance/internal/metrics"
	"github.com/xdavidwu/openapi-conformance/internal/server/catalog"
	"github.com/xdavidwu/openapi-conformance/internal/server/middlewares"
)

func main() {
	opts := log.BuildZapOptions(flag.CommandLine, true)
	manifestPath := flag.String("manifest", os.Getenv(internal.ConformancedEnvManifest), "manifest listing the documents to serve")
	port := flag.Int("port", internal.ConformancedPort, "port for the validation api")
	metricsPort := flag.Int("metrics-port", internal.ConformancedMetricsPort, "port for metrics")
	watch := flag.Bool("watch", true, "rebuild the catalog when documents change")
	flag.Parse()
	log := log.New(opts)

	must := func(err error, op string) {
		if err != nil {
			log.Error(err, "cannot "+op)
			panic(err)
		}
	}

	if *manifestPath == "" {
		*manifestPath = internal.DefaultManifest
	}
	manifest, err := conformance.LoadManifest(*manifestPath)
	must(err, "load manifest")

	listen, err := net.Listen("tcp", fmt.Sprintf("0.0.0.0:%d", *port))
	must(err, "listen for http")
	promlisten, err := net.Listen("tcp", fmt.Sprintf("0.0.0.0:%d", *metricsPort))
	must(err, "listen for metrics")
	registry := metrics.NewRegistry(middlewares.MustRegisterCollectors)
	go http.Serve(promlisten, metrics.MetricHandler(log.WithName("metrics"), registry))

	build := func() (*catalog.Catalog, error) {
		return catalog.Build(manifest, document.FileReader{}, log.WithName("catalog"))
	}
	c, err := build()
	if err != nil {
		// served anyway, readiness reports it
		log.Error(err, "catalog built with errors")
	}
	handler := catalog.NewHandler(c)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *watch {
		go func() {
			must(catalog.Watch(ctx, handler, build, log.WithName("watch")), "watch documents")
		}()
	}

	mux := &http.ServeMux{}
	handler.Register(mux, middlewares.ParseTokens(os.Getenv(internal.ConformancedEnvToken)), internal.MaxBodySize)

	readinessHandler := http.StripPrefix(internal.ConformancedReadinessEndpointPath, &healthz.Handler{
		Checks: map[string]healthz.Checker{
			"ping": healthz.Ping,
			"catalog": func(r *http.Request) error {
				return handler.Catalog().Err()
			},
		},
	})
	mux.Handle(internal.ConformancedReadinessEndpointPath, readinessHandler)
	mux.Handle(internal.ConformancedReadinessEndpointPath+"/", readinessHandler)

	server := &http.Server{Handler: mux, BaseContext: func(net.Listener) context.Context {
		return logr.NewContext(context.Background(), log)
	}}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error(err, "cannot shut down gracefully")
		}
	}()

	log.Info("serving", "port", *port, "documents", len(manifest.Documents))
	if err := server.Serve(listen); !errors.Is(err, http.ErrServerClosed) {
		must(err, "serve http")
	}
}
