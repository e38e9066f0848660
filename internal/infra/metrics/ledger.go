package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		redemptionsTotal,
		exchangesTotal,
		pointsCreditedTotal,
		accountsClaimedTotal,
	)
}

var (
	redemptionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redemptions_total",
			Help: "Activation code redemption attempts by result.",
		},
		[]string{"result"}, // 'ok', 'invalid', 'expired', 'error'
	)

	exchangesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "exchanges_total",
			Help: "Account exchange attempts by source and result.",
		},
		[]string{"source", "result"}, // result: 'ok', 'insufficient', 'error'
	)

	pointsCreditedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "points_credited_total",
			Help: "Sum of points credited through successful redemptions.",
		},
	)

	accountsClaimedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "accounts_claimed_total",
			Help: "Accounts handed out per source and origin.",
		},
		[]string{"source", "origin"}, // origin: 'pool', 'synthesized'
	)
)

func ObserveRedemption(result string, points int) {
	redemptionsTotal.WithLabelValues(result).Inc()
	if result == "ok" {
		pointsCreditedTotal.Add(float64(points))
	}
}

func ObserveExchange(source, result string) {
	exchangesTotal.WithLabelValues(source, result).Inc()
}

func ObserveAccountClaim(source, origin string) {
	accountsClaimedTotal.WithLabelValues(source, origin).Inc()
}
