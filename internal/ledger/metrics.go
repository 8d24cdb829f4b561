package ledger

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	starsAwarded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "star_exchange_stars_awarded_total",
		Help: "Stars credited through task rewards and manual additions.",
	})
	starsDeducted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "star_exchange_stars_deducted_total",
		Help: "Stars removed through penalties and manual deductions.",
	})
	starsSpent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "star_exchange_stars_spent_total",
		Help: "Stars spent on product exchanges.",
	})
	tasksApproved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "star_exchange_tasks_approved_total",
		Help: "Tasks settled with an approval.",
	})
	exchangesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "star_exchange_exchanges_total",
		Help: "Product exchanges by outcome.",
	}, []string{"outcome"})
)

func observeReward(amount int) {
	if amount >= 0 {
		starsAwarded.Add(float64(amount))
	} else {
		starsDeducted.Add(float64(-amount))
	}
}

func observeAdjustment(amount int) { observeReward(amount) }
