package probe

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/rezdm/Argus/internal/domain"
)

// Connect opens a TCP connection or fires a UDP datagram at host:port.
type Connect struct{}

func NewConnect() *Connect {
	return &Connect{}
}

func (c *Connect) Execute(ctx context.Context, spec domain.TestSpec, timeout time.Duration) domain.TestResult {
	start := time.Now()
	if err := c.Validate(spec); err != nil {
		return finish(start, err)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var err error
	switch spec.Protocol {
	case domain.ProtocolTCP:
		err = dialTCP(ctx, spec.Host, spec.Port, timeout)
	case domain.ProtocolUDP:
		err = sendUDP(ctx, spec.Host, spec.Port, timeout)
	}
	return finish(start, err)
}

func dialTCP(ctx context.Context, host string, port int, timeout time.Duration) error {
	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return err
	}
	return conn.Close()
}

// sendUDP writes a zero-length datagram. No reply is expected, so success
// only means the datagram left without a local error.
func sendUDP(ctx context.Context, host string, port int, timeout time.Duration) error {
	ip, err := resolveHost(ctx, host)
	if err != nil {
		return err
	}
	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "udp", net.JoinHostPort(ip.String(), strconv.Itoa(port)))
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
		return err
	}
	_, err = conn.Write([]byte{})
	return err
}

func (c *Connect) Validate(spec domain.TestSpec) error {
	if strings.TrimSpace(spec.Host) == "" {
		return invalid("host is required for connection test")
	}
	if spec.Port <= 0 || spec.Port > 65535 {
		return invalid("valid port (1-65535) is required for connection test, got %d", spec.Port)
	}
	switch spec.Protocol {
	case domain.ProtocolTCP, domain.ProtocolUDP:
	default:
		return invalid("protocol must be TCP or UDP for connection test, got %q", spec.Protocol)
	}
	return nil
}

func (c *Connect) Describe(spec domain.TestSpec) string {
	return fmt.Sprintf("%s:%d (%s)", spec.Host, spec.Port, spec.Protocol)
}
