package netutil

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
)

// Failure classes reported by Classify.
const (
	ClassTimeout = "timeout"
	ClassDNS     = "dns"
	ClassDial    = "dial"
	ClassTLS     = "tls"
	ClassIO      = "io"
)

// Classify names the network failure class of err for logs. It returns ""
// when err is not a recognised transport failure.
func Classify(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ClassTimeout
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsTimeout {
			return ClassTimeout
		}
		return ClassDNS
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ClassTimeout
	}

	var alertErr tls.AlertError
	var certErr *tls.CertificateVerificationError
	if errors.As(err, &alertErr) || errors.As(err, &certErr) {
		return ClassTLS
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if opErr.Op == "dial" {
			return ClassDial
		}
		return ClassIO
	}
	return ""
}
