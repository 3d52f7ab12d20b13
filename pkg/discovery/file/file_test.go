package file

import (
    "io"
    "log"
    "os"
    "path/filepath"
    "testing"
    "time"

    "github.com/amirimatin/go-seeder/pkg/endpoint"
)

var quiet = log.New(io.Discard, "", 0)

func assertSeeds(t *testing.T, got []endpoint.Endpoint, want ...string) {
    t.Helper()
    if len(got) != len(want) {
        t.Fatalf("len mismatch: got %d want %d (%v)", len(got), len(want), endpoint.Strings(got))
    }
    for i := range want {
        if got[i].String() != want[i] {
            t.Fatalf("item %d: got %q want %q (%v)", i, got[i], want[i], endpoint.Strings(got))
        }
    }
}

func TestEnvOverridesFile(t *testing.T) {
    dir := t.TempDir()
    f := filepath.Join(dir, "seeds.txt")
    if err := os.WriteFile(f, []byte("a:1\n"), 0o644); err != nil { t.Fatal(err) }

    const envName = "TEST_SEEDER_SEEDS"
    t.Setenv(envName, "y:8,x:9")

    d := New(Options{Path: f, Env: envName, Refresh: 5 * time.Millisecond, Logger: quiet})
    assertSeeds(t, d.Seeds(), "x:9", "y:8")
}

func TestFileReadAndCacheRefresh(t *testing.T) {
    dir := t.TempDir()
    f := filepath.Join(dir, "seeds.txt")
    if err := os.WriteFile(f, []byte("# seeds\na:1\nb:2\nnot-an-endpoint\n"), 0o644); err != nil { t.Fatal(err) }

    d := New(Options{Path: f, Refresh: 10 * time.Millisecond, Logger: quiet})
    assertSeeds(t, d.Seeds(), "a:1", "b:2")

    // Update file and wait for refresh window
    if err := os.WriteFile(f, []byte("b:2\nc:3\n"), 0o644); err != nil { t.Fatal(err) }
    time.Sleep(15 * time.Millisecond)

    assertSeeds(t, d.Seeds(), "b:2", "c:3")
}

func TestGlobReadsUniqueSorted(t *testing.T) {
    dir := t.TempDir()
    f1 := filepath.Join(dir, "a.txt")
    f2 := filepath.Join(dir, "b.txt")
    if err := os.WriteFile(f1, []byte("a:1\nb:2\n"), 0o644); err != nil { t.Fatal(err) }
    if err := os.WriteFile(f2, []byte("b:2, c:3\n"), 0o644); err != nil { t.Fatal(err) }

    d := New(Options{Path: filepath.Join(dir, "*.txt"), Refresh: 5 * time.Millisecond, Logger: quiet})
    assertSeeds(t, d.Seeds(), "a:1", "b:2", "c:3")
}

func TestMissingPath(t *testing.T) {
    d := New(Options{Path: filepath.Join(t.TempDir(), "none.txt"), Logger: quiet})
    if got := d.Seeds(); len(got) != 0 { t.Fatalf("expected no seeds, got %v", got) }
}
