package env

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

var Env map[string]string

func GetEnv(key, def string) string {
	// First check our loaded Env map
	if val, ok := Env[key]; ok {
		return val
	}
	// Fallback to OS environment variables (for Docker/tests)
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// SetupEnvFile loads the first .env file found. Missing files are fine in
// containers where everything comes from the OS environment.
func SetupEnvFile() bool {
	envFiles := []string{
		".env",          // Current directory
		"../../.env",    // From cmd/futapp to project root
		"../../../.env", // Fallback for deeper nesting
	}

	for _, envFile := range envFiles {
		values, err := godotenv.Read(envFile)
		if err == nil {
			Env = values
			return true
		}
	}

	Env = map[string]string{}
	return false
}

// Environ merges the OS environment with the loaded .env values. Values from
// the .env file win, matching GetEnv.
func Environ() map[string]string {
	merged := make(map[string]string, len(Env))
	for _, kv := range os.Environ() {
		key, value, ok := strings.Cut(kv, "=")
		if ok {
			merged[key] = value
		}
	}
	for key, value := range Env {
		merged[key] = value
	}
	return merged
}
