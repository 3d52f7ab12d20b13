package discovery

import (
    "io"
    "log"
    "testing"

    "github.com/amirimatin/go-seeder/pkg/endpoint"
)

func TestEndpoints_DropsInvalidAndSorts(t *testing.T) {
    got := Endpoints([]string{"b:2", "a:1", "nope", "a:1", "c:0", "[::1]:8333"}, log.New(io.Discard, "", 0))
    want := []string{"[::1]:8333", "a:1", "b:2"}
    if len(got) != len(want) { t.Fatalf("got %v", got) }
    for i := range want {
        if got[i].String() != want[i] { t.Fatalf("item %d: got %s want %s", i, got[i], want[i]) }
    }
}

func TestMerge_UnionInOrder(t *testing.T) {
    a := Func(func() []endpoint.Endpoint { return []endpoint.Endpoint{endpoint.MustNew("a", 1), endpoint.MustNew("b", 2)} })
    calls := 0
    b := Func(func() []endpoint.Endpoint { calls++; return []endpoint.Endpoint{endpoint.MustNew("b", 2), endpoint.MustNew("c", 3)} })

    m := Merge(a, nil, b)
    got := endpoint.Strings(m.Seeds())
    if len(got) != 3 || got[0] != "a:1" || got[1] != "b:2" || got[2] != "c:3" { t.Fatalf("got %v", got) }
    m.Seeds()
    if calls != 2 { t.Fatalf("sources must be consulted on every call, got %d", calls) }
    if len(Merge().Seeds()) != 0 { t.Fatalf("empty merge yielded seeds") }
}
