// metrics.go — доменные Prometheus-метрики civicwatch.
package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	checksSubmittedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cw_checks_submitted_total",
		Help: "Общее количество отправленных проверок панелей.",
	})
	checksValidatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cw_checks_validated_total",
		Help: "Общее количество подтверждённых проверок по корзине награды.",
	}, []string{"points"})
	pointsAwardedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cw_points_awarded_total",
		Help: "Сумма начисленных баллов за подтверждённые проверки.",
	})
	rewardsClaimedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cw_rewards_claimed_total",
		Help: "Общее количество обменов баллов на вознаграждения.",
	})
)
