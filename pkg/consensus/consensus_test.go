package consensus

import (
    "encoding/json"
    "testing"

    "github.com/amirimatin/go-seeder/pkg/wire"
)

func TestStoreAddress(t *testing.T) {
    cmd, err := StoreAddress(wire.NetAddress{Host: "10.0.0.1", Port: 8333})
    if err != nil { t.Fatalf("encode: %v", err) }
    if cmd.Op != OpStoreAddress { t.Fatalf("op = %q", cmd.Op) }
    var a wire.NetAddress
    if err := json.Unmarshal(cmd.Payload, &a); err != nil { t.Fatalf("payload: %v", err) }
    if a.Key() != "10.0.0.1:8333" { t.Fatalf("key = %s", a.Key()) }
}
