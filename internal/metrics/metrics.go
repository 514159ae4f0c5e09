package metrics

import "sync/atomic"

var (
	uploadsSucceeded int64
	uploadsFailed    int64
	scoresComputed   int64
	scoresFailed     int64
	handoffFresh     int64
	handoffStale     int64
)

func IncUploadSucceeded() { atomic.AddInt64(&uploadsSucceeded, 1) }
func IncUploadFailed()    { atomic.AddInt64(&uploadsFailed, 1) }
func IncScoreComputed()   { atomic.AddInt64(&scoresComputed, 1) }
func IncScoreFailed()     { atomic.AddInt64(&scoresFailed, 1) }
func IncHandoffFresh()    { atomic.AddInt64(&handoffFresh, 1) }
func IncHandoffStale()    { atomic.AddInt64(&handoffStale, 1) }

func Snapshot() map[string]int64 {
	return map[string]int64{
		"uploads_succeeded": atomic.LoadInt64(&uploadsSucceeded),
		"uploads_failed":    atomic.LoadInt64(&uploadsFailed),
		"scores_computed":   atomic.LoadInt64(&scoresComputed),
		"scores_failed":     atomic.LoadInt64(&scoresFailed),
		"handoff_fresh":     atomic.LoadInt64(&handoffFresh),
		"handoff_stale":     atomic.LoadInt64(&handoffStale),
	}
}
