// SPDX-License-Identifier: GPL-3.0-or-later
//
// New: the hostname pre-resolution prelude action (spec.md §4.2 patch 4,
// PreparatoryAction::ResolveHostname). Replaces the teacher's
// dnscodec/dnsoverstream/dnsoverhttps/minest DNS-exchange stack (dropped —
// see DESIGN.md) with github.com/miekg/dns, already a direct teacher
// dependency with a well-documented Exchange API.

package transport

import (
	"context"
	"fmt"
	"net"
	"net/netip"

	"github.com/miekg/dns"
)

// Resolver resolves a hostname to a set of addresses, used by the
// resolve_hostname builtin that the planner's hostname pre-resolution patch
// places in the scenario prelude when --late-resolve is not set.
type Resolver interface {
	Resolve(ctx context.Context, hostname string) ([]netip.Addr, error)
}

// NewResolver returns a [Resolver] reading nameservers from
// /etc/resolv.conf via github.com/miekg/dns, falling back to
// [net.DefaultResolver] when resolv.conf cannot be read (non-Unix, or a
// sandboxed environment without one).
func NewResolver() Resolver {
	cc, err := dns.ClientConfigFromFile("/etc/resolv.conf")
	if err != nil || len(cc.Servers) == 0 {
		return stdlibResolver{}
	}
	return &miekgResolver{client: new(dns.Client), config: cc}
}

type miekgResolver struct {
	client *dns.Client
	config *dns.ClientConfig
}

func (r *miekgResolver) Resolve(ctx context.Context, hostname string) ([]netip.Addr, error) {
	fqdn := dns.Fqdn(hostname)
	var out []netip.Addr
	for _, qtype := range []uint16{dns.TypeA, dns.TypeAAAA} {
		msg := new(dns.Msg)
		msg.SetQuestion(fqdn, qtype)
		msg.RecursionDesired = true
		for _, server := range r.config.Servers {
			addr := net.JoinHostPort(server, r.config.Port)
			reply, _, err := r.client.ExchangeContext(ctx, msg, addr)
			if err != nil || reply == nil {
				continue
			}
			for _, rr := range reply.Answer {
				switch rec := rr.(type) {
				case *dns.A:
					if a, ok := netip.AddrFromSlice(rec.A); ok {
						out = append(out, a)
					}
				case *dns.AAAA:
					if a, ok := netip.AddrFromSlice(rec.AAAA); ok {
						out = append(out, a)
					}
				}
			}
			break
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("transport: no addresses found for %q", hostname)
	}
	return out, nil
}

type stdlibResolver struct{}

func (stdlibResolver) Resolve(ctx context.Context, hostname string) ([]netip.Addr, error) {
	ipAddrs, err := net.DefaultResolver.LookupNetIP(ctx, "ip", hostname)
	if err != nil {
		return nil, err
	}
	return ipAddrs, nil
}
