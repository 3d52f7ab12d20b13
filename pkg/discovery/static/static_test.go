package static

import (
    "testing"

    "github.com/amirimatin/go-seeder/pkg/endpoint"
)

func TestParse(t *testing.T) {
    cases := []struct{
        in   string
        want []string
    }{
        {"", nil},
        {"a:1", []string{"a:1"}},
        {" a:1 , b:2 ", []string{"a:1","b:2"}},
        {",,a:1, ,b:2,", []string{"a:1","b:2"}},
    }
    for _, c := range cases {
        got := Parse(c.in)
        if len(got) != len(c.want) {
            t.Fatalf("len mismatch for %q: got %d want %d", c.in, len(got), len(c.want))
        }
        for i := range got {
            if got[i] != c.want[i] {
                t.Fatalf("[%q] item %d: got %q want %q", c.in, i, got[i], c.want[i])
            }
        }
    }
}

func TestNew(t *testing.T) {
    d := New(endpoint.MustNew("a", 1), endpoint.Endpoint{}, endpoint.MustNew("b", 2))
    got := d.Seeds()
    if len(got) != 2 || got[0].String() != "a:1" || got[1].String() != "b:2" {
        t.Fatalf("unexpected seeds: %#v", got)
    }
    // Ensure returned slice is a copy
    got[0] = endpoint.MustNew("x", 9)
    got2 := d.Seeds()
    if got2[0].String() != "a:1" {
        t.Fatalf("expected defensive copy, got %#v", got2)
    }
}

func TestFromCSV(t *testing.T) {
    d, err := FromCSV("seed.example.org:8333, [::1]:18333")
    if err != nil { t.Fatalf("FromCSV: %v", err) }
    got := d.Seeds()
    if len(got) != 2 || got[1].Host != "::1" || got[1].Port != 18333 {
        t.Fatalf("unexpected seeds: %#v", got)
    }
    if _, err := FromCSV("a:1,nope"); err == nil {
        t.Fatalf("expected error for missing port")
    }
}
