package logutil

import (
    "bytes"
    "encoding/json"
    "log"
    "strings"
    "testing"
)

func TestDebugSuppressedUnlessEnabled(t *testing.T) {
    var buf bytes.Buffer
    l := log.New(&buf, "", 0)
    SetDebug(false)
    Debugf(l, "hidden %d", 1)
    if buf.Len() != 0 { t.Fatalf("debug line written: %q", buf.String()) }
    SetDebug(true)
    defer SetDebug(false)
    Debugf(l, "shown %d", 2)
    if got := buf.String(); got != "DEBUG shown 2\n" { t.Fatalf("got %q", got) }
}

func TestJSONModeKeepsComponent(t *testing.T) {
    var buf bytes.Buffer
    SetJSON(true)
    defer SetJSON(false)
    Warnf(log.New(&buf, "seeder ", log.LstdFlags), "seed %s failed", "a:1")

    var evt map[string]string
    if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &evt); err != nil { t.Fatalf("not json: %q", buf.String()) }
    if evt["level"] != "warn" || evt["msg"] != "seed a:1 failed" || evt["component"] != "seeder" { t.Fatalf("event %v", evt) }
    if !strings.HasSuffix(evt["ts"], "Z") { t.Fatalf("ts %q", evt["ts"]) }
}
