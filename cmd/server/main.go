package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"geocubes.app/internal/persistence/auditlog"
	"geocubes.app/internal/persistence/indexdb"
	"geocubes.app/internal/sim/tuning"
	"geocubes.app/internal/sim/world"
	"geocubes.app/internal/telemetry"
	"geocubes.app/internal/transport/observer"
	"geocubes.app/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		configDir  = flag.String("configs", "./configs", "config directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		staticDir  = flag.String("static", "", "directory of static client assets to serve at / (empty to disable)")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite event index")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Printf("tuning not found (%s); using defaults", tp)
			tune = tuning.Defaults()
		} else {
			logger.Fatalf("load tuning: %v", err)
		}
	}

	_ = os.MkdirAll(*dataDir, 0o755)

	w := world.New(world.ConfigFromTuning(tune), logger)

	tel := telemetry.NewBuffer(tune.TelemetryBuffer)
	counters := &telemetry.Counters{}
	w.SetTelemetry(tel, counters)

	audit := auditlog.New(filepath.Join(*dataDir, "audit"))
	defer audit.Close()
	w.AttachSink(audit)

	if !*disableDB {
		idx, err := indexdb.Open(filepath.Join(*dataDir, "index.db"))
		if err != nil {
			logger.Fatalf("open event index: %v", err)
		}
		defer idx.Close()
		w.AttachSink(idx)
	}

	ctx, cancel := signalContext()
	defer cancel()

	go func() {
		if err := w.Run(ctx); err != nil && err != context.Canceled {
			logger.Printf("world stopped: %v", err)
		}
	}()

	obsSrv := observer.NewServer(w, tel, counters, logger)

	r := mux.NewRouter()
	r.HandleFunc("/healthz", func(rw http.ResponseWriter, _ *http.Request) {
		rw.WriteHeader(http.StatusOK)
		_, _ = rw.Write([]byte("ok"))
	})
	r.HandleFunc("/v1/ws", ws.NewServer(w, logger).Handler())
	r.HandleFunc("/v1/state", obsSrv.StateHandler()).Methods(http.MethodGet)
	r.HandleFunc("/v1/telemetry", obsSrv.TelemetryHandler()).Methods(http.MethodGet)
	if sd := strings.TrimSpace(*staticDir); sd != "" {
		r.PathPrefix("/").Handler(http.FileServer(http.Dir(sd)))
	}

	srv := &http.Server{
		Addr:              *addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s (broadcast window %dms, delete range %.1fm)",
		*addr, tune.BroadcastMinIntervalMs, tune.DeleteRangeM)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}
