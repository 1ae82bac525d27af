package probe

import (
	"context"
	"errors"
	"net"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-ping/ping"

	"github.com/rezdm/Argus/internal/domain"
)

// echoPort is the TCP echo service probed when no ICMP socket can be opened.
const echoPort = 7

// pingFunc sends one echo request to addr and reports whether a reply arrived.
type pingFunc func(ctx context.Context, addr *net.IPAddr, timeout time.Duration, privileged bool) (bool, error)

// echoFunc reports whether addr answered a TCP connect on the echo port.
type echoFunc func(ctx context.Context, addr *net.IPAddr, timeout time.Duration) (bool, error)

// Reachability checks that a host answers an ICMP echo request.
//
// Without privileges it uses datagram ICMP, which Linux only allows for the
// groups in net.ipv4.ping_group_range. When the socket is refused it retries
// with a raw socket, and if that is refused too it connects to TCP port 7:
// an accepted or refused connection both mean the host answered.
type Reachability struct {
	// Privileged starts with raw ICMP sockets instead of datagram ICMP.
	Privileged bool

	ping pingFunc
	echo echoFunc
}

func NewReachability(privileged bool) *Reachability {
	return &Reachability{Privileged: privileged, ping: icmpEcho, echo: tcpEcho}
}

func (r *Reachability) Execute(ctx context.Context, spec domain.TestSpec, timeout time.Duration) domain.TestResult {
	start := time.Now()
	if err := r.Validate(spec); err != nil {
		return finish(start, err)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ip, err := resolveHost(ctx, spec.Host)
	if err != nil {
		return finish(start, err)
	}
	addr := &net.IPAddr{IP: ip}

	ok, err := r.reach(ctx, addr, start, timeout)
	if err != nil {
		return finish(start, err)
	}
	if !ok {
		return finish(start, errHostUnreachable)
	}
	return finish(start, nil)
}

// reach walks unprivileged ICMP, raw ICMP, then TCP echo, moving on only
// when the previous step could not open its socket.
func (r *Reachability) reach(ctx context.Context, addr *net.IPAddr, start time.Time, timeout time.Duration) (bool, error) {
	pinger, echo := r.ping, r.echo
	if pinger == nil {
		pinger = icmpEcho
	}
	if echo == nil {
		echo = tcpEcho
	}
	remaining := func() time.Duration { return timeout - time.Since(start) }

	modes := []bool{true}
	if !r.Privileged {
		modes = []bool{false, true}
	}
	var err error
	for _, privileged := range modes {
		left := remaining()
		if left <= 0 {
			return false, nil
		}
		var ok bool
		ok, err = pinger(ctx, addr, left, privileged)
		if err == nil || !socketRefused(err) {
			return ok, err
		}
	}

	left := remaining()
	if left <= 0 {
		return false, nil
	}
	return echo(ctx, addr, left)
}

// socketRefused reports whether err came from opening the ICMP socket,
// as opposed to sending or receiving on it.
func socketRefused(err error) bool {
	if errors.Is(err, os.ErrPermission) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "listen"
}

func (r *Reachability) Validate(spec domain.TestSpec) error {
	if strings.TrimSpace(spec.Host) == "" {
		return invalid("host is required for ping test")
	}
	return nil
}

func (r *Reachability) Describe(domain.TestSpec) string {
	return "PING"
}

func icmpEcho(ctx context.Context, addr *net.IPAddr, timeout time.Duration, privileged bool) (bool, error) {
	pinger := ping.New(addr.String())
	pinger.SetIPAddr(addr)
	pinger.SetPrivileged(privileged)
	pinger.Count = 1
	pinger.Timeout = timeout

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			pinger.Stop()
		case <-done:
		}
	}()

	if err := pinger.Run(); err != nil {
		return false, err
	}
	return pinger.Statistics().PacketsRecv > 0, nil
}

func tcpEcho(ctx context.Context, addr *net.IPAddr, timeout time.Duration) (bool, error) {
	return tcpAnswered(ctx, net.JoinHostPort(addr.String(), strconv.Itoa(echoPort)), timeout), nil
}

// tcpAnswered reports whether something at address replied to a connect,
// either by accepting it or by refusing it.
func tcpAnswered(ctx context.Context, address string, timeout time.Duration) bool {
	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", address)
	if err == nil {
		conn.Close()
		return true
	}
	return errors.Is(err, syscall.ECONNREFUSED)
}
