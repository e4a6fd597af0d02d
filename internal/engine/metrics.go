package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	iterationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "scalpbot",
		Subsystem: "engine",
		Name:      "iterations_total",
		Help:      "Trading loop iterations executed.",
	})
	tradesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scalpbot",
		Subsystem: "engine",
		Name:      "trades_total",
		Help:      "Trades submitted to the broker by action and final status.",
	}, []string{"action", "status"})
	riskDenialsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "scalpbot",
		Subsystem: "engine",
		Name:      "risk_denials_total",
		Help:      "Iterations skipped by the risk gate.",
	})
	openPositionsGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "scalpbot",
		Subsystem: "engine",
		Name:      "open_positions",
		Help:      "Currently open positions.",
	})
	accountBalanceGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "scalpbot",
		Subsystem: "engine",
		Name:      "account_balance",
		Help:      "Last known account balance.",
	})
	dailyPnLGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "scalpbot",
		Subsystem: "engine",
		Name:      "daily_pnl",
		Help:      "Realized P&L for the current day.",
	})
)
