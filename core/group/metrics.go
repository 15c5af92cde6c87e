package group

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	membershipChanges = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "swad",
		Subsystem: "group",
		Name:      "membership_changes_total",
		Help:      "Number of group memberships added or removed.",
	}, []string{"op"})

	groupsOpened = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "swad",
		Subsystem: "group",
		Name:      "types_opened_total",
		Help:      "Number of group types whose groups were opened automatically.",
	})
)

func countChanges(ch Changes) {
	membershipChanges.WithLabelValues("add").Add(float64(len(ch.Added)))
	membershipChanges.WithLabelValues("remove").Add(float64(len(ch.Removed)))
}
