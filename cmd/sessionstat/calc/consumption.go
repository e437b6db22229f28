package calc

import (
	"fmt"
	"sort"
	"time"

	"github.com/zkpoex/disclosure/internal/utils/timingutils"
)

// PathConsumption summarizes the sessions of one disclosure path.
type PathConsumption struct {
	Path               string
	Succeeded          int
	Failed             int
	Unfinished         int
	OverallConsumption time.Duration // 从最早的开始到最晚的结束（仅成功的会话）
	AvgConsumption     time.Duration
}

// CalcTimeConsumptions pairs the start and end lines of each session and summarizes them per path. Failed sessions
// are counted but left out of the durations.
func CalcTimeConsumptions(entries []*timingutils.SessionLogEntry) ([]*PathConsumption, error) {
	starts := make(map[string]*timingutils.SessionLogEntry)
	ends := make(map[string]*timingutils.SessionLogEntry)
	for _, entry := range entries {
		switch entry.Event {
		case timingutils.EventStart:
			starts[entry.SessionID] = entry
		case timingutils.EventEnd:
			ends[entry.SessionID] = entry
		}
	}

	if len(starts) == 0 {
		return nil, fmt.Errorf("file is empty")
	}

	type accumulator struct {
		consumption *PathConsumption
		minStart    time.Time
		maxEnd      time.Time
		sum         time.Duration
	}
	accumulators := make(map[string]*accumulator)

	for id, start := range starts {
		acc, ok := accumulators[start.Path]
		if !ok {
			acc = &accumulator{consumption: &PathConsumption{Path: start.Path}}
			accumulators[start.Path] = acc
		}

		end, ok := ends[id]
		if !ok {
			acc.consumption.Unfinished++
			continue
		}
		if end.Path != start.Path {
			return nil, fmt.Errorf("session %v started on path %v but ended on path %v", id, start.Path, end.Path)
		}
		if !end.IsSuccess {
			acc.consumption.Failed++
			continue
		}

		acc.consumption.Succeeded++
		acc.sum += end.Timestamp.Sub(start.Timestamp)
		if acc.minStart.IsZero() || start.Timestamp.Before(acc.minStart) {
			acc.minStart = start.Timestamp
		}
		if end.Timestamp.After(acc.maxEnd) {
			acc.maxEnd = end.Timestamp
		}
	}

	for id := range ends {
		if _, ok := starts[id]; !ok {
			return nil, fmt.Errorf("timestamp for session %v not found in start lines", id)
		}
	}

	ret := make([]*PathConsumption, 0, len(accumulators))
	for _, acc := range accumulators {
		if acc.consumption.Succeeded > 0 {
			acc.consumption.OverallConsumption = acc.maxEnd.Sub(acc.minStart)
			acc.consumption.AvgConsumption = time.Duration(int64(acc.sum) / int64(acc.consumption.Succeeded))
		}
		ret = append(ret, acc.consumption)
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i].Path < ret[j].Path })

	return ret, nil
}
