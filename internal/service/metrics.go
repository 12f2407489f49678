package service

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the domain counters exported on /metrics.
type Metrics struct {
	challengesIssued       *prometheus.CounterVec
	challengeVerifications *prometheus.CounterVec
	notificationsSent      *prometheus.CounterVec
}

// NewMetrics creates the domain counters and registers them on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		challengesIssued: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "challenges_issued_total",
				Help: "Verification codes issued, by purpose.",
			},
			[]string{"purpose"},
		),
		challengeVerifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "challenge_verifications_total",
				Help: "Verification code submissions, by purpose and outcome.",
			},
			[]string{"purpose", "outcome"},
		),
		notificationsSent: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notifications_sent_total",
				Help: "Notification deliveries, by channel and outcome.",
			},
			[]string{"channel", "outcome"},
		),
	}

	for _, c := range []prometheus.Collector{m.challengesIssued, m.challengeVerifications, m.notificationsSent} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}
