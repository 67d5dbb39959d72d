package main

import (
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rcarmo/landstalker/internal/config"
	"github.com/rcarmo/landstalker/internal/handler"
	"github.com/rcarmo/landstalker/internal/logging"
	"github.com/rcarmo/landstalker/web"
)

const (
	appName    = "Landstalker ROM Editor"
	appVersion = "v0.3.0"
)

var log = logging.For("server")

type parsedArgs struct {
	host       string
	port       string
	logLevel   string
	romPath    string
	labelsPath string
	offsets    string
	region     string
}

func main() {
	args, action := parseFlags()
	switch action {
	case "help":
		showHelp()
		return
	case "version":
		showVersion()
		return
	}

	if err := run(args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func parseFlags() (parsedArgs, string) {
	return parseFlagsWithArgs(os.Args[1:])
}

func parseFlagsWithArgs(argv []string) (parsedArgs, string) {
	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	hostFlag := fs.String("host", "", "server listen host")
	portFlag := fs.String("port", "", "server listen port")
	logLevelFlag := fs.String("log-level", "", "log level (debug, info, warn, error)")
	romFlag := fs.String("rom", "", "Landstalker ROM image to serve")
	labelsFlag := fs.String("labels", "", "labels YAML file")
	offsetsFlag := fs.String("offsets", "", "offsets YAML file replacing the built in table")
	regionFlag := fs.String("region", "", "ROM region (auto, JP, US, UK, FR, DE, US_BETA)")
	helpFlag := fs.Bool("help", false, "show help")
	versionFlag := fs.Bool("version", false, "show version")

	if err := fs.Parse(argv); err != nil {
		return parsedArgs{}, "help"
	}

	if *helpFlag {
		return parsedArgs{}, "help"
	}

	if *versionFlag {
		return parsedArgs{}, "version"
	}

	return parsedArgs{
		host:       strings.TrimSpace(*hostFlag),
		port:       strings.TrimSpace(*portFlag),
		logLevel:   strings.TrimSpace(*logLevelFlag),
		romPath:    strings.TrimSpace(*romFlag),
		labelsPath: strings.TrimSpace(*labelsFlag),
		offsets:    strings.TrimSpace(*offsetsFlag),
		region:     strings.TrimSpace(*regionFlag),
	}, ""
}

func run(args parsedArgs) error {
	cfg, err := config.LoadWithOverrides(config.LoadOptions{
		Host:        args.host,
		Port:        args.port,
		LogLevel:    args.logLevel,
		RomPath:     args.romPath,
		LabelsPath:  args.labelsPath,
		OffsetsPath: args.offsets,
		Region:      args.region,
	})
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	setupLogging(cfg.Logging)

	server, err := createServer(cfg)
	if err != nil {
		return err
	}
	log.Info("starting server on %s:%s (TLS=%t)", cfg.Server.Host, cfg.Server.Port, cfg.Security.EnableTLS)

	return startServer(server, cfg)
}

func createServer(cfg *config.Config) (*http.Server, error) {
	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)

	h, err := handler.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("session handler: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/", http.FileServer(web.FS()))
	mux.HandleFunc("/session", h.Session)

	var next http.Handler = mux
	next = connectionLimitMiddleware(next, cfg.Security.MaxConnections)
	next = applySecurityMiddleware(next, cfg)
	next = requestLoggingMiddleware(next)

	return &http.Server{
		Addr:         addr,
		Handler:      next,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}, nil
}

func applySecurityMiddleware(next http.Handler, cfg *config.Config) http.Handler {
	if cfg == nil {
		return securityHeadersMiddleware(corsMiddleware(next, nil))
	}

	h := next
	if cfg.Security.EnableRateLimit {
		h = rateLimitMiddleware(h, cfg.Security.RateLimitPerMinute)
	}
	h = corsMiddleware(h, cfg.Security.AllowedOrigins)
	h = securityHeadersMiddleware(h)

	return h
}

func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data:; connect-src 'self' ws: wss:")

		next.ServeHTTP(w, r)
	})
}

func corsMiddleware(next http.Handler, allowedOrigins []string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if isOriginAllowed(origin, allowedOrigins, r.Host) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Allow-Credentials", "true")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func isOriginAllowed(origin string, allowedOrigins []string, host string) bool {
	if origin == "" {
		return false
	}

	for _, allowed := range allowedOrigins {
		if strings.TrimSpace(allowed) == origin {
			return true
		}
	}

	if len(allowedOrigins) == 0 {
		return strings.Contains(origin, host)
	}

	return false
}

// rateLimitMiddleware allows each client address perMinute requests in
// every one minute window.
func rateLimitMiddleware(next http.Handler, perMinute int) http.Handler {
	var (
		mu      sync.Mutex
		window  time.Time
		counter = make(map[string]int)
	)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		client := r.RemoteAddr
		if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
			client = host
		}

		mu.Lock()
		now := time.Now()
		if now.Sub(window) >= time.Minute {
			window = now
			counter = make(map[string]int)
		}
		counter[client]++
		over := counter[client] > perMinute
		mu.Unlock()

		if over {
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// connectionLimitMiddleware caps the number of requests in flight, which
// bounds the number of open edit sessions.
func connectionLimitMiddleware(next http.Handler, max int) http.Handler {
	if max <= 0 {
		return next
	}
	slots := make(chan struct{}, max)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case slots <- struct{}{}:
			defer func() { <-slots }()
			next.ServeHTTP(w, r)
		default:
			http.Error(w, "too many connections", http.StatusServiceUnavailable)
		}
	})
}

func setupLogging(cfg config.LoggingConfig) {
	logging.SetLevelFromString(cfg.Level)
	logging.SetFormatFromString(cfg.Format)
}

func requestLoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Debug("%s %s %s %s", r.RemoteAddr, r.Method, r.URL.Path, time.Since(start))
	})
}

func startServer(server *http.Server, cfg *config.Config) error {
	if server == nil {
		return fmt.Errorf("server is nil")
	}

	var err error
	if cfg != nil && cfg.Security.EnableTLS {
		err = server.ListenAndServeTLS(cfg.Security.TLSCertFile, cfg.Security.TLSKeyFile)
	} else {
		err = server.ListenAndServe()
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}

	return err
}

func showHelp() {
	fmt.Println(appName)
	fmt.Println("USAGE: landstalker-server [options]")
	fmt.Println("OPTIONS:")
	fmt.Println("  -host               Set server listen host (default 0.0.0.0)")
	fmt.Println("  -port               Set server listen port (default 8080)")
	fmt.Println("  -log-level          Set log level (debug, info, warn, error)")
	fmt.Println("  -rom                ROM image to load for rom.* requests")
	fmt.Println("  -labels             Labels YAML file")
	fmt.Println("  -offsets            Offsets YAML file replacing the built in table")
	fmt.Println("  -region             Force the ROM region instead of detecting it")
	fmt.Println("  -version            Show version information")
	fmt.Println("  -help               Show this help message")
	fmt.Println("ENVIRONMENT VARIABLES: SERVER_HOST, SERVER_PORT, LOG_LEVEL, LOG_FORMAT, ROM_PATH, LABELS_PATH, OFFSETS_PATH, ROM_REGION, ALLOWED_ORIGINS")
	fmt.Println("EXAMPLES: landstalker-server -port 8080 -rom landstalker_us.bin")
}

func showVersion() {
	fmt.Printf("%s %s\n", appName, appVersion)
	fmt.Println("Built with Go", time.Now().Year())
	fmt.Println("Regions: JP, US, UK, FR, DE, US_BETA")
}
