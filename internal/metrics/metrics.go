package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Service bundles the business counters of this service together with the
// registry they live in. HTTP-level metrics are added to the same registry
// by the echo prometheus middleware.
type Service struct {
	Registry *prometheus.Registry

	Signups            prometheus.Counter
	WalletsProvisioned prometheus.Counter
	TransactionsSent   *prometheus.CounterVec
}

// New creates a dedicated registry per service instance, so tests can spin
// up multiple servers without duplicate registration.
func New() *Service {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	s := &Service{
		Registry: reg,
		Signups: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "walletd_signups_total",
			Help: "Number of successful account registrations.",
		}),
		WalletsProvisioned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "walletd_wallets_provisioned_total",
			Help: "Number of custodial wallets provisioned to readiness.",
		}),
		TransactionsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "walletd_transactions_sent_total",
			Help: "Number of send attempts by result.",
		}, []string{"result"}),
	}

	reg.MustRegister(s.Signups, s.WalletsProvisioned, s.TransactionsSent)

	return s
}
