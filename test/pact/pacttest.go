//go:build pact
// +build pact

package pacttest

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/Apurer/pet-adoption-engine/internal/sandbox"
)

const (
	ProviderName = "adoption-api"
	ConsumerName = "adoption-engine"

	StateSeeded = "adoption sandbox seeded"
)

const (
	ExistingPetID int64 = 42
	MissingPetID  int64 = 404
	// OwnedPetID belongs to OwnerToken's user.
	OwnedPetID int64 = 43

	OwnerToken = sandbox.TokenBruno
)

// PactDir returns the workspace-level directory for generated pact files.
func PactDir(t testing.TB) string {
	t.Helper()
	dir := filepath.Join(projectRoot(t), "pacts")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("create pact dir: %v", err)
	}
	return dir
}

// PactFile returns the pact file the engine consumer writes.
func PactFile(t testing.TB) string {
	t.Helper()
	return filepath.Join(PactDir(t), ConsumerName+"-"+ProviderName+".json")
}

// LogDir returns the log output directory for pact-go.
func LogDir(t testing.TB) string {
	t.Helper()
	dir := filepath.Join(projectRoot(t), "bin", "pact-logs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("create pact log dir: %v", err)
	}
	return dir
}

// ExamplePetPayload matches the seeded pet ExistingPetID.
func ExamplePetPayload() map[string]any {
	return map[string]any{
		"id":      ExistingPetID,
		"ownerId": sandbox.UserBruno,
		"name":    "Rex",
		"status":  2,
	}
}

func projectRoot(t testing.TB) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("cannot determine caller for pact paths")
	}
	return filepath.Clean(filepath.Join(filepath.Dir(file), "..", ".."))
}
