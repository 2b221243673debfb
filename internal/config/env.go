package config

import (
	"fmt"
	"os"
	"time"
)

// envString returns the value of key, or def when the variable is unset.
func envString(key, def string) string {
	val, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	return val
}

func envInt(key string, def int) int {
	valStr, ok := os.LookupEnv(key)
	if !ok {
		return def
	}

	var val int
	if _, err := fmt.Sscanf(valStr, "%d", &val); err != nil {
		return def
	}
	return val
}

func envBool(key string, def bool) bool {
	valStr, ok := os.LookupEnv(key)
	if !ok {
		return def
	}

	switch valStr {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	valStr, ok := os.LookupEnv(key)
	if !ok {
		return def
	}

	val, err := time.ParseDuration(valStr)
	if err != nil {
		return def
	}
	return val
}
