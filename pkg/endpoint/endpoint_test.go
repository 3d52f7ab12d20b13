package endpoint

import (
    "errors"
    "testing"
)

func TestParse(t *testing.T) {
    cases := []struct{
        in   string
        host string
        port uint16
        ok   bool
    }{
        {"seed.example.org:8333", "seed.example.org", 8333, true},
        {" 10.0.0.1:18333 ", "10.0.0.1", 18333, true},
        {"[::1]:8333", "::1", 8333, true},
        {"nohost", "", 0, false},
        {":8333", "", 0, false},
        {"a:0", "", 0, false},
        {"a:70000", "", 0, false},
        {"a:port", "", 0, false},
    }
    for _, c := range cases {
        got, err := Parse(c.in)
        if c.ok != (err == nil) {
            t.Fatalf("%q: ok=%v err=%v", c.in, c.ok, err)
        }
        if !c.ok { continue }
        if got.Host != c.host || got.Port != c.port {
            t.Fatalf("%q: got %+v", c.in, got)
        }
    }
}

func TestStringBracketsIPv6(t *testing.T) {
    ep := MustNew("::1", 8333)
    if s := ep.String(); s != "[::1]:8333" {
        t.Fatalf("String() = %q", s)
    }
    ep = MustNew("[fe80::1]", 1)
    if ep.Host != "fe80::1" {
        t.Fatalf("brackets not stripped: %q", ep.Host)
    }
}

func TestParseList(t *testing.T) {
    eps, err := ParseList(" a:1 ,, b:2,")
    if err != nil { t.Fatalf("parse: %v", err) }
    if len(eps) != 2 || eps[0].String() != "a:1" || eps[1].String() != "b:2" {
        t.Fatalf("unexpected list: %#v", eps)
    }
    if eps, err := ParseList(""); err != nil || eps != nil {
        t.Fatalf("empty csv: %v %v", eps, err)
    }
    if _, err := ParseList("a:1,bad"); err == nil {
        t.Fatalf("expected error for malformed item")
    }
}

func TestNewRejects(t *testing.T) {
    if _, err := New("  ", 1); !errors.Is(err, ErrEmptyHost) {
        t.Fatalf("want ErrEmptyHost, got %v", err)
    }
    if _, err := New("h", -1); !errors.Is(err, ErrInvalidPort) {
        t.Fatalf("want ErrInvalidPort, got %v", err)
    }
}
