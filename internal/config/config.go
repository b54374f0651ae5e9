package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Env      string
	HTTPAddr string
	Log      string

	DBURL       string
	AutoMigrate bool

	JWTSecret string

	CORSOrigins string

	// AdminAddress is the escrow engines' bootstrap admin identity, used
	// by init/init_program at process start.
	AdminAddress string

	// ClaimWindowSeconds is the default claim window bounty engines apply
	// to authorize_claim before an explicit set_claim_window call.
	ClaimWindowSeconds uint64

	// Fee defaults, applied at process start; update_fee_config overrides
	// them at runtime.
	DefaultFeeRateBp uint32
	FeeRecipient     string
	FeeEnabled       bool

	// Rate-limit defaults (C6).
	RateLimitWindowSeconds uint64
	RateLimitMaxOps        uint32
	RateLimitCooldownSecs  uint64

	// Circuit breaker defaults (C5).
	CircuitFailureThreshold uint32
	CircuitSuccessThreshold uint32
	CircuitMaxErrorLog      uint32

	// InvariantChecksEnabled gates the CI-only post-condition pass (C14);
	// false makes every CheckBounty/CheckProgram call panic rather than
	// silently skip checks. Mutators do not consult it.
	InvariantChecksEnabled bool

	InitialWasmHash string
}

func Load() Config {
	if err := godotenv.Load(); err != nil {
		_ = godotenv.Load("../.env")
	}

	env := getEnv("APP_ENV", "dev")
	logLevel := getEnv("LOG_LEVEL", "info")

	// Prefer HTTP_ADDR if provided, otherwise build it from PORT.
	httpAddr := os.Getenv("HTTP_ADDR")
	if strings.TrimSpace(httpAddr) == "" {
		port := getEnv("PORT", "8080")
		httpAddr = ":" + port
	}

	return Config{
		Env:      env,
		HTTPAddr: httpAddr,
		Log:      logLevel,

		DBURL:       getEnv("DB_URL", ""),
		AutoMigrate: getEnvBool("AUTO_MIGRATE", false),

		JWTSecret:   getEnv("JWT_SECRET", ""),
		CORSOrigins: getEnv("CORS_ORIGINS", ""),

		AdminAddress:       strings.TrimSpace(getEnv("ADMIN_ADDRESS", "")),
		ClaimWindowSeconds: getEnvUint64("CLAIM_WINDOW_SECONDS", 86400),

		DefaultFeeRateBp: uint32(getEnvUint64("DEFAULT_FEE_RATE_BP", 0)),
		FeeRecipient:     getEnv("FEE_RECIPIENT", ""),
		FeeEnabled:       getEnvBool("FEE_ENABLED", false),

		RateLimitWindowSeconds: getEnvUint64("RATE_LIMIT_WINDOW_SECONDS", 60),
		RateLimitMaxOps:        uint32(getEnvUint64("RATE_LIMIT_MAX_OPS", 20)),
		RateLimitCooldownSecs:  getEnvUint64("RATE_LIMIT_COOLDOWN_SECONDS", 1),

		CircuitFailureThreshold: uint32(getEnvUint64("CIRCUIT_FAILURE_THRESHOLD", 5)),
		CircuitSuccessThreshold: uint32(getEnvUint64("CIRCUIT_SUCCESS_THRESHOLD", 2)),
		CircuitMaxErrorLog:      uint32(getEnvUint64("CIRCUIT_MAX_ERROR_LOG", 10)),

		InvariantChecksEnabled: getEnvBool("INVARIANT_CHECKS_ENABLED", true),

		InitialWasmHash: getEnv("INITIAL_WASM_HASH", "genesis"),
	}
}

func (c Config) LogLevel() slog.Leveler {
	switch strings.ToLower(strings.TrimSpace(c.Log)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "info", "":
		return slog.LevelInfo
	default:
		// Allow numeric levels for easy tweaking (-4 debug, 0 info, 4 warn, 8 error).
		if n, err := strconv.Atoi(c.Log); err == nil {
			return slog.Level(n)
		}
		return slog.LevelInfo
	}
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}

func getEnvUint64(key string, fallback uint64) uint64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if v == "" {
		return fallback
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return fallback
	}
}
