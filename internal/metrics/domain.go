package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 业务指标。promauto 在包初始化时完成注册。
var (
	// JobsPosted 统计发布的职位总数。
	JobsPosted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "unigig",
		Subsystem: "jobs",
		Name:      "posted_total",
		Help:      "发布的职位总数。",
	})

	// ApplicationsSubmitted 统计提交的投递总数。
	ApplicationsSubmitted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "unigig",
		Subsystem: "applications",
		Name:      "submitted_total",
		Help:      "提交的投递总数。",
	})

	// ApplicationsDecided 按结果统计被雇主处理的投递数。
	ApplicationsDecided = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "unigig",
		Subsystem: "applications",
		Name:      "decided_total",
		Help:      "被雇主处理（接受/拒绝）的投递数。",
	}, []string{"status"})
)
