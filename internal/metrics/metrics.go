package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	labelChain   = "chain_id"
	labelAction  = "action"
	labelType    = "type"
	labelOutcome = "outcome"
	typeSuccess  = "success"
	typeFailed   = "failed"
)

var (
	submittedTxCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relayer_submitted_txs",
		Help: "The total number of submitted relay txs per chain (counter)",
	}, []string{labelChain, labelType})

	submitTime = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "relayer_submit_time",
		Help:    "A histogram of relay tx submission duration per chain",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5, 10, 30},
	}, []string{labelChain})

	proofTime = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "relayer_proof_time",
		Help:    "A histogram of proof generation duration per chain",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5, 10, 30, 60, 120},
	}, []string{labelChain, labelType})

	taskTerminal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relayer_tasks_terminal",
		Help: "The total number of relay tasks that reached a terminal state (counter)",
	}, []string{labelAction, labelOutcome})

	taskRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relayer_task_retries",
		Help: "The total number of relay task attempt retries (counter)",
	}, []string{labelAction})

	inflightTasks = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "relayer_inflight_tasks",
		Help: "The number of relay tasks currently in flight",
	})

	requestTime = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "relayer_request_time",
		Help:    "A histogram of operator API request duration",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5, 10, 30},
	}, []string{"method", labelType})
)

func IncSubmittedTx(chainID string, ok bool) {
	t := typeSuccess
	if !ok {
		t = typeFailed
	}
	submittedTxCounter.With(prometheus.Labels{
		labelChain: chainID,
		labelType:  t,
	}).Inc()
}

func ObserveSubmitDuration(chainID string, dur float64) {
	submitTime.With(prometheus.Labels{
		labelChain: chainID,
	}).Observe(dur)
}

func ObserveProofDuration(chainID string, ok bool, dur float64) {
	t := typeSuccess
	if !ok {
		t = typeFailed
	}
	proofTime.With(prometheus.Labels{
		labelChain: chainID,
		labelType:  t,
	}).Observe(dur)
}

func IncTaskTerminal(action, outcome string) {
	taskTerminal.With(prometheus.Labels{
		labelAction:  action,
		labelOutcome: outcome,
	}).Inc()
}

func IncTaskRetry(action string) {
	taskRetries.With(prometheus.Labels{
		labelAction: action,
	}).Inc()
}

func SetInflightTasks(n int) {
	inflightTasks.Set(float64(n))
}

func AddSuccessRequest(method string, dur float64) {
	requestTime.With(prometheus.Labels{
		"method":  method,
		labelType: typeSuccess,
	}).Observe(dur)
}

func AddFailedRequest(method string, dur float64) {
	requestTime.With(prometheus.Labels{
		"method":  method,
		labelType: typeFailed,
	}).Observe(dur)
}
