package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"git.sr.ht/~jakintosh/bearer/pkg/authtest"
	"github.com/gorilla/mux"
)

// Config holds all command-line configuration
type Config struct {
	ListenAddr   string
	Rotate       bool
	ExpireEvery  time.Duration
	AccessToken  string
	RefreshToken string
	Quiet        bool
}

// OutputContract is the JSON structure emitted on stdout
type OutputContract struct {
	BaseURL      string `json:"base_url"`
	RefreshURL   string `json:"refresh_url"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	Rotation     bool   `json:"rotation"`
}

func main() {
	// Parse flags
	cfg := parseFlags()

	// Suppress logs if requested
	if cfg.Quiet {
		log.SetOutput(io.Discard)
	}

	// Initialize the fake remote and its first session
	remote := authtest.NewRemote()
	remote.SetRotation(cfg.Rotate)

	pair := remote.IssuePair()
	if cfg.AccessToken != "" {
		remote.AcceptAccess(cfg.AccessToken)
		pair.AccessToken = cfg.AccessToken
	}
	if cfg.RefreshToken != "" {
		remote.AcceptRefresh(cfg.RefreshToken)
		pair.RefreshToken = cfg.RefreshToken
	}

	// Build router
	r := mux.NewRouter()
	r.Use(logRequests)
	r.PathPrefix("/").Handler(remote.Handler())

	// Start HTTP server with ephemeral port
	listener, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		log.Fatalf("failed to listen: %v\n", err)
	}
	defer listener.Close()

	addr := listener.Addr().(*net.TCPAddr)
	baseURL := fmt.Sprintf("http://%s:%d", addr.IP, addr.Port)

	// Emit JSON contract to stdout
	contract := OutputContract{
		BaseURL:      baseURL,
		RefreshURL:   baseURL + authtest.DefaultRefreshPath,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		Rotation:     cfg.Rotate,
	}
	encoder := json.NewEncoder(os.Stdout)
	if err := encoder.Encode(contract); err != nil {
		log.Fatalf("failed to encode JSON contract: %v\n", err)
	}

	// Expire access tokens on a schedule so clients have to refresh
	if cfg.ExpireEvery > 0 {
		go func() {
			ticker := time.NewTicker(cfg.ExpireEvery)
			defer ticker.Stop()
			for range ticker.C {
				remote.ExpireAccess("")
				log.Printf("expired all access tokens\n")
			}
		}()
	}

	// Start server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- http.Serve(listener, r)
	}()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		log.Fatalf("server error: %v\n", err)
	case sig := <-sigChan:
		log.Printf("received signal %v, shutting down\n", sig)
		log.Printf("served %d unauthorized responses and %d refreshes\n",
			remote.Unauthorized(),
			remote.RefreshCalls(),
		)
	}
}

func parseFlags() Config {
	var cfg Config

	flag.StringVar(&cfg.ListenAddr, "listen", "127.0.0.1:0", "Listen address (default uses ephemeral port)")
	flag.BoolVar(&cfg.Rotate, "rotate", true, "Issue a new refresh token on every refresh")
	flag.DurationVar(&cfg.ExpireEvery, "expire-every", 0, "Expire all access tokens at this interval (0 disables)")
	flag.StringVar(&cfg.AccessToken, "access-token", "", "Accept this access token instead of a generated one")
	flag.StringVar(&cfg.RefreshToken, "refresh-token", "", "Accept this refresh token instead of a generated one")
	flag.BoolVar(&cfg.Quiet, "quiet", false, "Suppress log output")

	flag.Parse()

	if cfg.ExpireEvery < 0 {
		log.Fatal("--expire-every must not be negative")
	}

	return cfg
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Printf("%s %s -> %d\n", r.Method, r.URL.Path, rec.status)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
