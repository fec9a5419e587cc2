package main

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestConfigureLogLevelFromEnv_Disabled(t *testing.T) {
	for _, envVal := range []string{"", "0", "false"} {
		t.Setenv("DEBUG_APIGATE", envVal)
		configureLogLevelFromEnv()
		if zerolog.GlobalLevel() != zerolog.Disabled {
			t.Errorf("DEBUG_APIGATE=%q: expected logging to be disabled, got %v",
				envVal, zerolog.GlobalLevel())
		}
	}
}

func TestConfigureLogLevelFromEnv_Debug(t *testing.T) {
	for _, envVal := range []string{"true", "1", "yes"} {
		t.Setenv("DEBUG_APIGATE", envVal)
		configureLogLevelFromEnv()
		if zerolog.GlobalLevel() != zerolog.DebugLevel {
			t.Errorf("DEBUG_APIGATE=%q: expected debug level, got %v",
				envVal, zerolog.GlobalLevel())
		}
	}
}
