package wire

import (
    "encoding/json"
    "errors"
    "fmt"
    "net"
    "strconv"
    "time"

    "github.com/amirimatin/go-seeder/pkg/endpoint"
)

// Command names carried in Message.Command.
const (
    CmdVersion = "version"
    CmdVerack  = "verack"
    CmdGetAddr = "getaddr"
    CmdAddr    = "addr"
)

const (
    // ProtocolVersion is the version advertised by this implementation.
    ProtocolVersion uint32 = 70002
    // MinProtocolVersion is the lowest peer version accepted in a handshake.
    MinProtocolVersion uint32 = 31402
    // MaxAddrPerMessage caps the address batch in one addr message.
    MaxAddrPerMessage = 1000
)

// ServiceNetwork marks a node that serves the full peer protocol.
const ServiceNetwork uint64 = 1

var ErrUnknownCommand = errors.New("wire: unknown command")

// Message is the envelope exchanged on a peer channel. Payload is the JSON
// encoding of the command-specific body and is empty for verack/getaddr.
type Message struct {
    Command string          `json:"command"`
    Payload json.RawMessage `json:"payload,omitempty"`
}

// Version opens the handshake.
type Version struct {
    Protocol  uint32    `json:"protocol"`
    Services  uint64    `json:"services"`
    Nonce     string    `json:"nonce"`
    Relay     bool      `json:"relay"`
    UserAgent string    `json:"userAgent,omitempty"`
    Timestamp time.Time `json:"timestamp"`
}

// NetAddress is one discovered peer address plus metadata.
type NetAddress struct {
    Host      string    `json:"host"`
    Port      uint16    `json:"port"`
    Services  uint64    `json:"services,omitempty"`
    Timestamp time.Time `json:"timestamp"`
}

// Key identifies the address independently of its metadata.
func (a NetAddress) Key() string { return net.JoinHostPort(a.Host, strconv.Itoa(int(a.Port))) }

// Endpoint converts the address into an endpoint.Endpoint.
func (a NetAddress) Endpoint() (endpoint.Endpoint, error) { return endpoint.New(a.Host, int(a.Port)) }

// FromEndpoint builds a NetAddress observed at the given time.
func FromEndpoint(ep endpoint.Endpoint, services uint64, seen time.Time) NetAddress {
    return NetAddress{Host: ep.Host, Port: ep.Port, Services: services, Timestamp: seen}
}

// Addr carries a batch of addresses in answer to getaddr.
type Addr struct {
    Addresses []NetAddress `json:"addresses"`
}

// Encode wraps body under the given command. body may be nil.
func Encode(command string, body any) (Message, error) {
    if !Known(command) { return Message{}, fmt.Errorf("%w: %q", ErrUnknownCommand, command) }
    m := Message{Command: command}
    if body == nil { return m, nil }
    b, err := json.Marshal(body)
    if err != nil { return Message{}, fmt.Errorf("wire: encode %s: %w", command, err) }
    m.Payload = b
    return m, nil
}

// MustEncode is Encode for bodies that cannot fail to marshal.
func MustEncode(command string, body any) Message {
    m, err := Encode(command, body)
    if err != nil { panic(err) }
    return m
}

// Decode unmarshals the payload into out.
func (m Message) Decode(out any) error {
    if len(m.Payload) == 0 { return fmt.Errorf("wire: %s: empty payload", m.Command) }
    if err := json.Unmarshal(m.Payload, out); err != nil {
        return fmt.Errorf("wire: decode %s: %w", m.Command, err)
    }
    return nil
}

// DecodeAddr decodes an addr message and enforces MaxAddrPerMessage.
func DecodeAddr(m Message) (Addr, error) {
    var a Addr
    if m.Command != CmdAddr { return a, fmt.Errorf("wire: expected %s, got %s", CmdAddr, m.Command) }
    if err := m.Decode(&a); err != nil { return a, err }
    if len(a.Addresses) > MaxAddrPerMessage {
        return Addr{}, fmt.Errorf("wire: addr batch too large (%d)", len(a.Addresses))
    }
    return a, nil
}

// Known reports whether command is part of the protocol.
func Known(command string) bool {
    switch command {
    case CmdVersion, CmdVerack, CmdGetAddr, CmdAddr:
        return true
    }
    return false
}
