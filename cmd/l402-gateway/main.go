// L402 Payment Gateway - a reverse proxy that protects any backend behind
// Lightning payments using LSAT macaroons.
package main

import (
	"flag"
	"log"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lightning-goats/l402/pkg/l402"
	"github.com/lightning-goats/l402/pkg/lnbits"
)

// fileConfig is the optional YAML configuration file. Flags and environment
// variables override anything set here.
type fileConfig struct {
	Listen      string   `yaml:"listen"`
	Backend     string   `yaml:"backend"`
	LNbitsURL   string   `yaml:"lnbits_url"`
	LNbitsKey   string   `yaml:"lnbits_api_key"`
	SecretKey   string   `yaml:"secret_key"`
	Price       int64    `yaml:"price"`
	TTLMinutes  int      `yaml:"ttl_minutes"`
	Location    string   `yaml:"location"`
	ExemptPaths []string `yaml:"exempt_paths"`
}

func main() {
	configPath := flag.String("config", "", "Path to optional YAML config file")
	listenAddr := flag.String("listen", ":8402", "Gateway listen address")
	backendURL := flag.String("backend", "", "Backend URL to proxy to (e.g., http://localhost:3000)")
	lnbitsURL := flag.String("lnbits-url", "", "LNbits instance URL")
	price := flag.Int64("price", 1000, "Invoice amount per challenge, in satoshis")
	ttlMinutes := flag.Int("ttl", 30, "Macaroon validity in minutes")
	location := flag.String("location", "lightning_goats", "Macaroon location label")
	exemptPaths := flag.String("exempt", "/health,/favicon.ico", "Comma-separated exempt path prefixes")

	flag.Parse()

	var cfg fileConfig
	if *configPath != "" {
		data, err := os.ReadFile(*configPath)
		if err != nil {
			log.Fatalf("Failed to read config file: %v", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			log.Fatalf("Invalid config file: %v", err)
		}
	}

	// The config file supplies defaults; explicitly set flags win over it,
	// and environment variables win over both.
	setFlags := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { setFlags[f.Name] = true })

	if setFlags["listen"] || cfg.Listen == "" {
		cfg.Listen = *listenAddr
	}
	if setFlags["backend"] || cfg.Backend == "" {
		cfg.Backend = *backendURL
	}
	if setFlags["lnbits-url"] || cfg.LNbitsURL == "" {
		cfg.LNbitsURL = *lnbitsURL
	}
	if setFlags["location"] || cfg.Location == "" {
		cfg.Location = *location
	}
	if setFlags["price"] || cfg.Price == 0 {
		cfg.Price = *price
	}
	if setFlags["ttl"] || cfg.TTLMinutes == 0 {
		cfg.TTLMinutes = *ttlMinutes
	}
	if setFlags["exempt"] || len(cfg.ExemptPaths) == 0 {
		cfg.ExemptPaths = strings.Split(*exemptPaths, ",")
	}

	if env := os.Getenv("LNBITS_URL"); env != "" {
		cfg.LNbitsURL = env
	}
	if env := os.Getenv("L402_KEY"); env != "" {
		cfg.LNbitsKey = env
	}
	if env := os.Getenv("MACAROON_SECRET_KEY"); env != "" {
		cfg.SecretKey = env
	}
	if env := os.Getenv("L402_BACKEND_URL"); env != "" {
		cfg.Backend = env
	}
	if env := os.Getenv("L402_LISTEN_ADDR"); env != "" {
		cfg.Listen = env
	}

	if cfg.Backend == "" {
		log.Fatal("Backend URL is required. Use -backend flag or L402_BACKEND_URL env var")
	}
	if cfg.LNbitsURL == "" || cfg.LNbitsKey == "" || cfg.SecretKey == "" {
		log.Fatal("LNBITS_URL, L402_KEY, and MACAROON_SECRET_KEY must be set")
	}

	secret, err := l402.ParseSecret(cfg.SecretKey)
	if err != nil {
		log.Fatalf("Invalid macaroon secret key: %v", err)
	}

	target, err := url.Parse(cfg.Backend)
	if err != nil {
		log.Fatalf("Invalid backend URL: %v", err)
	}

	proxy := httputil.NewSingleHostReverseProxy(target)
	originalDirector := proxy.Director
	proxy.Director = func(req *http.Request) {
		originalDirector(req)
		req.Header.Set("X-Forwarded-Host", req.Host)
		req.Header.Set("X-Origin-Host", target.Host)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	provider := lnbits.NewClient(lnbits.Config{
		BaseURL: cfg.LNbitsURL,
		APIKey:  cfg.LNbitsKey,
	})

	handler := l402.Middleware(proxy, l402.Config{
		Secret:      secret,
		Invoices:    provider,
		Payments:    provider,
		Price:       cfg.Price,
		TTL:         time.Duration(cfg.TTLMinutes) * time.Minute,
		Location:    cfg.Location,
		ExemptPaths: cfg.ExemptPaths,
		Logger:      logger,
	})

	logger.Info("L402 gateway starting",
		"listen", cfg.Listen,
		"backend", cfg.Backend,
		"price_sats", cfg.Price,
		"ttl_minutes", cfg.TTLMinutes,
		"exempt", cfg.ExemptPaths,
	)

	log.Fatal(http.ListenAndServe(cfg.Listen, handler))
}
