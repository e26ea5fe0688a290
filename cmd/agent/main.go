package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httplog"

	"recovery-agent/internal/application/port/input"
	"recovery-agent/internal/di"
	"recovery-agent/internal/domain/entity"
	"recovery-agent/internal/infrastructure/env"
)

const requestTimeout = 2 * time.Minute

func main() {
	envService := env.NewEnvService()

	container, err := di.NewContainer(di.Config{
		OpenRouterAPIKey:    envService.MustGet("OPENROUTER_API_KEY"),
		OpenRouterModel:     envService.MustGet("OPENROUTER_MODEL_NAME"),
		Platform:            envService.GetDefault("RECOVERY_PLATFORM", "android"),
		MaxWindows:          envService.GetInt("RECOVERY_MAX_WINDOWS", 0),
		WindowSize:          envService.GetInt("RECOVERY_WINDOW_SIZE", 0),
		SnapshotLimit:       envService.GetInt("RECOVERY_SNAPSHOT_LIMIT", 0),
		SimilarityThreshold: envService.GetFloat("RECOVERY_SIMILARITY_THRESHOLD", 0),
	})
	if err != nil {
		log.Fatalf("init failed: %v", err)
	}
	defer container.Close()

	if addr := envService.Get("RECOVERY_HTTP_ADDR"); addr != "" {
		runHTTP(addr, container.Recoverer)
		return
	}
	runStdin(container.Recoverer)
}

// runStdin serves one recovery request per input line: a RecoveryRequest
// JSON object in, a locator JSON object out.
func runStdin(recoverer input.ElementRecoverer) {
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	out := json.NewEncoder(os.Stdout)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req entity.RecoveryRequest
		if err := json.Unmarshal(line, &req); err != nil {
			fmt.Fprintf(os.Stderr, "bad request: %v\n", err)
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		locator, err := recoverer.Recover(ctx, req)
		cancel()
		if err != nil {
			out.Encode(map[string]string{"error": err.Error()})
			continue
		}
		out.Encode(locator)
	}
	if err := scanner.Err(); err != nil {
		log.Fatalf("stdin read failed: %v", err)
	}
}

func runHTTP(addr string, recoverer input.ElementRecoverer) {
	requestLogger := httplog.NewLogger("recovery-agent", httplog.Options{
		JSON:    true,
		Concise: true,
	})

	r := chi.NewRouter()
	r.Use(httplog.RequestLogger(requestLogger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))

	r.Post("/recover", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		var rr entity.RecoveryRequest
		if err := json.NewDecoder(req.Body).Decode(&rr); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
			return
		}

		locator, err := recoverer.Recover(req.Context(), rr)
		if err != nil {
			w.WriteHeader(http.StatusUnprocessableEntity)
			json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
			return
		}

		json.NewEncoder(w).Encode(locator)
	})

	log.Printf("listening on %s", addr)
	if err := http.ListenAndServe(addr, r); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}
