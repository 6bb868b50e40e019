package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var queuePassDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name: "janitor_queue_pass_duration_sec",
	Help: "Total duration of one queue pass",
}, []string{"queue"})

var itemsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "janitor_items_processed",
	Help: "Number of queue items checked against conditions",
}, []string{"queue"})

var conditionsEvaluated = promauto.NewCounter(prometheus.CounterOpts{
	Name: "janitor_conditions_evaluated",
	Help: "Number of top-level condition evaluations",
})

var conditionMatches = promauto.NewCounter(prometheus.CounterOpts{
	Name: "janitor_condition_matches",
	Help: "Number of top-level conditions that matched an item",
})

var conditionEvalErrors = promauto.NewCounter(prometheus.CounterOpts{
	Name: "janitor_condition_eval_errors",
	Help: "Number of condition evaluations that errored (treated as non-match)",
})

var actionsPerformed = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "janitor_actions_performed",
	Help: "Number of moderation actions performed",
}, []string{"action", "kind"})

var reapprovalsPerformed = promauto.NewCounter(prometheus.CounterOpts{
	Name: "janitor_reapprovals_performed",
	Help: "Number of auto-reapprovals performed",
})

var accountInfoFetches = promauto.NewCounter(prometheus.CounterOpts{
	Name: "janitor_account_info_fetches",
	Help: "Number of account metadata reads (API calls)",
})

var staffFetches = promauto.NewCounter(prometheus.CounterOpts{
	Name: "janitor_staff_fetches",
	Help: "Number of subreddit moderator/contributor list reads (API calls)",
})

var memeNameFetches = promauto.NewCounter(prometheus.CounterOpts{
	Name: "janitor_meme_name_fetches",
	Help: "Number of external meme-name page loads",
})
