package timingutils

import (
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/zkpoex/disclosure/internal/global"
	"github.com/zkpoex/disclosure/internal/metrics"
)

// GetDeferrableTimingLogger creates a logger function that starts a timer when called and ends the timer when the calling function ends and logs (at debug level) the time diff.
func GetDeferrableTimingLogger(message string) func() {
	if !global.ShowTimingLogs {
		return func() {}
	}

	start := time.Now()
	return func() {
		log.Debugf("%v: %v", message, time.Since(start))
	}
}

// StartStageTimer times one stage of a disclosure session. The returned func records the duration in the stage
// histogram and, if timing logs are enabled, logs it. Call it with `defer`.
func StartStageTimer(path, stage string) func() {
	start := time.Now()
	return func() {
		d := time.Since(start)
		metrics.ObserveStage(path, stage, d)
		if global.ShowTimingLogs {
			log.Debugf("%v/%v: %v", path, stage, d)
		}
	}
}

func SerializeTimestamp(timestamp time.Time) string {
	return timestamp.UTC().Format(time.RFC3339Nano)
}

func ParseTimestamp(timestampStr string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, timestampStr)
}
