// Command ibdm is the demo HTTP harness over the dialogue engine (spec §6
// CLI surface): a thin collaborator wiring gin at the transport edge only,
// never itself holding dialogue logic, following how cmd/tarsy/main.go
// wires its own framework.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/ibdm-project/ibdm/examples/domain/nda"
	"github.com/ibdm-project/ibdm/examples/domain/travel"
	"github.com/ibdm-project/ibdm/pkg/adapter"
	"github.com/ibdm-project/ibdm/pkg/config"
	"github.com/ibdm-project/ibdm/pkg/domain"
	"github.com/ibdm-project/ibdm/pkg/engine"
	"github.com/ibdm-project/ibdm/pkg/enginelog"
	"github.com/ibdm-project/ibdm/pkg/istate"
	"github.com/ibdm-project/ibdm/pkg/session"
	"github.com/ibdm-project/ibdm/pkg/store"
)

// Exit codes (spec §6 CLI surface).
const (
	exitOK             = 0
	exitConfigError    = 2
	exitAdapterFailure = 3
	exitInvariant      = 4
)

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

// selectDomain resolves the CLI's configured demo domain to its concrete
// Domain Model and the task name it registers its plan builder under
// (examples/domain/nda, examples/domain/travel).
func selectDomain(name string) (domain.Model, string, error) {
	switch name {
	case "nda":
		return nda.New(), "nda", nil
	case "travel":
		return travel.New(), "travel_booking", nil
	default:
		return nil, "", fmt.Errorf("unrecognized DOMAIN_MODEL %q (want \"nda\" or \"travel\")", name)
	}
}

func main() {
	os.Exit(run())
}

func run() int {
	configDir := flag.String("config-dir",
		getEnv("CONFIG_DIR", "./deploy/config"),
		"Path to configuration directory")
	once := flag.String("once", "", "Run a single turn with this utterance against a fresh session and exit, instead of serving HTTP")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		log.Printf("Warning: Could not load %s file: %v", envPath, err)
		log.Printf("Continuing with existing environment variables...")
	} else {
		log.Printf("Loaded environment from %s", envPath)
	}

	httpPort := getEnv("HTTP_PORT", "8080")
	gin.SetMode(getEnv("GIN_MODE", "debug"))

	engCfg, err := config.Load(filepath.Join(*configDir, "engine.yaml"))
	if err != nil {
		log.Printf("configuration error: %v", err)
		return exitConfigError
	}

	model, task, err := selectDomain(getEnv("DOMAIN_MODEL", "nda"))
	if err != nil {
		log.Printf("configuration error: %v", err)
		return exitConfigError
	}

	logger := enginelog.New(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	var device adapter.Device
	if task == "travel_booking" {
		device = alwaysSucceedDevice{}
	}

	eng := engine.New(model, engCfg, demoNLU{task: task}, demoNLG{}, device, logger)

	if *once != "" {
		return runOnce(eng, *once)
	}

	mgr := session.NewManager()
	pool := session.NewPool(mgr, eng, session.DefaultPoolConfig(), logger)
	pool.Start()
	defer pool.Stop()

	var snapshots *store.Store
	if os.Getenv("DB_PASSWORD") != "" {
		dbCfg, err := store.LoadConfigFromEnv()
		if err != nil {
			log.Printf("configuration error: %v", err)
			return exitConfigError
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		opened, err := store.Open(ctx, dbCfg)
		cancel()
		if err != nil {
			log.Printf("Warning: persistence disabled, could not connect: %v", err)
		} else {
			snapshots = opened
			defer snapshots.Close()
			log.Println("✓ Connected to PostgreSQL snapshot store")
		}
	} else {
		log.Println("Persistence disabled (DB_PASSWORD not set); sessions are in-memory only")
	}

	router := gin.Default()
	registerRoutes(router, mgr, pool, snapshots)

	log.Printf("Starting IBDM demo harness (domain=%s)", task)
	log.Printf("HTTP Port: %s", httpPort)
	log.Printf("Config Directory: %s", *configDir)
	log.Printf("HTTP server listening on :%s", httpPort)

	if err := router.Run(":" + httpPort); err != nil {
		log.Printf("adapter failure: HTTP server exited: %v", err)
		return exitAdapterFailure
	}
	return exitOK
}

// runOnce drives a single turn against a fresh Information State and exits
// with the code corresponding to spec §7's error-kind classification (spec
// §6: "0 normal termination; 2 configuration error; 3 adapter failure; 4
// invariant violation"). It exists so the exit-code contract is directly
// exercisable without standing up the HTTP harness.
func runOnce(eng *engine.Engine, utterance string) int {
	s := istate.Initialize("cli")

	final, utterances, err := eng.Turn(context.Background(), s, utterance)
	if err != nil {
		var invariant *engine.InvariantError
		var budget *engine.RuleBudgetError
		if errors.As(err, &invariant) || errors.As(err, &budget) {
			log.Printf("invariant violation: %v", err)
			return exitInvariant
		}
		log.Printf("adapter failure: %v", err)
		return exitAdapterFailure
	}

	for _, u := range utterances {
		fmt.Println(u)
	}
	if top, ok := final.TopQUD(); ok {
		log.Printf("qud top: %s", top.Predicate)
	}
	return exitOK
}
