package util

import (
	"os"
	"strconv"
	"strings"

	"github.com/OFFIS-RIT/bibliograph/pkg/logger"
	"github.com/joho/godotenv"
)

// LoadEnv reads a .env file from the working directory if one exists.
// Variables already set in the environment win.
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env file found, using system environment variables")
	}
}

func GetEnv(key string) string {
	return os.Getenv(key)
}

func GetEnvString(key string, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return defaultValue
}

// GetEnvInt parses key as a base 10 integer. Unset or malformed values
// fall back to defaultValue.
func GetEnvInt(key string, defaultValue int) int {
	return parseEnv(key, defaultValue, func(s string) (int, error) {
		n, err := strconv.ParseInt(s, 10, 64)
		return int(n), err
	})
}

func GetEnvInt64(key string, defaultValue int64) int64 {
	return parseEnv(key, defaultValue, func(s string) (int64, error) {
		return strconv.ParseInt(s, 10, 64)
	})
}

// GetEnvBool accepts the spellings strconv.ParseBool knows.
func GetEnvBool(key string, defaultValue bool) bool {
	return parseEnv(key, defaultValue, strconv.ParseBool)
}

// GetEnvList splits a comma separated variable into its trimmed, non-empty
// parts.
func GetEnvList(key string, defaultValue []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return defaultValue
	}
	out := make([]string, 0)
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseEnv[T any](key string, defaultValue T, parse func(string) (T, error)) T {
	value, ok := os.LookupEnv(key)
	if !ok {
		return defaultValue
	}
	v, err := parse(strings.TrimSpace(value))
	if err != nil {
		logger.Warn("Ignoring malformed environment variable", "key", key, "value", value)
		return defaultValue
	}
	return v
}
