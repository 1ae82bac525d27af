package probe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveHost_LiteralIP(t *testing.T) {
	ip, err := resolveHost(context.Background(), " 192.0.2.7 ")
	require.NoError(t, err)
	assert.Equal(t, "192.0.2.7", ip.String())
}

func TestDNSClass(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{&net.DNSError{Err: "no such host", Name: "x.invalid", IsNotFound: true}, "NXDOMAIN"},
		{&net.DNSError{Err: "server misbehaving", IsTemporary: true}, "SERVFAIL_or_TIMEOUT"},
		{fmt.Errorf("lookup: %w", &net.DNSError{IsTimeout: true}), "SERVFAIL_or_TIMEOUT"},
		{context.DeadlineExceeded, "SERVFAIL_or_TIMEOUT"},
		{errors.New("boom"), "ERROR"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, dnsClass(c.err), "%v", c.err)
	}
}
