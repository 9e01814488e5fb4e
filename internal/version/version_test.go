package version_test

import (
	"strings"
	"testing"

	"github.com/edumarques81/coverfetch/internal/version"
)

func TestGetInfo(t *testing.T) {
	info := version.GetInfo()

	if info.Name != "coverfetch" {
		t.Errorf("Expected name 'coverfetch', got '%s'", info.Name)
	}
	if info.Version == "" {
		t.Error("Version should not be empty")
	}
}

func TestString(t *testing.T) {
	info := version.Info{Name: "coverfetch", Version: "1.2.3", GitCommit: "0123456789abcdef"}

	if got := info.String(); got != "coverfetch v1.2.3 (0123456)" {
		t.Errorf("String() = %q", got)
	}

	info.GitCommit = "abc"
	if got := info.String(); got != "coverfetch v1.2.3 (abc)" {
		t.Errorf("String() with short commit = %q", got)
	}
}

func TestUserAgent(t *testing.T) {
	ua := version.UserAgent()
	if !strings.HasPrefix(ua, version.Name+"/") {
		t.Errorf("UserAgent() = %q, want %s/<version>", ua, version.Name)
	}
}
