package audit

// ToolStats summarizes one tool's recent executions.
type ToolStats struct {
	Count       int     `json:"count"`
	SuccessRate float64 `json:"success_rate"`
}

// Stats summarizes the bounded history window. It reflects recent
// executions only, never all-time totals: the history is capped, so
// the aggregation cost stays bounded too.
type Stats struct {
	Total                int                  `json:"total"`
	SuccessCount         int                  `json:"success_count"`
	FailureCount         int                  `json:"failure_count"`
	SuccessRate          float64              `json:"success_rate"`
	AverageExecutionTime float64              `json:"average_execution_time"`
	PerTool              map[string]ToolStats `json:"per_tool"`
}

// Compute derives Stats from a slice of records. The average execution
// time includes timeouts (their duration is the time-to-timeout) but
// excludes records that never started: validation rejections and spawn
// failures carry no meaningful duration and are stored with zero.
func Compute(records []Record) Stats {
	stats := Stats{PerTool: make(map[string]ToolStats)}

	var durationSum float64
	var durationCount int
	successByTool := make(map[string]int)

	for _, rec := range records {
		stats.Total++
		if rec.Success {
			stats.SuccessCount++
			successByTool[rec.ToolName]++
		} else {
			stats.FailureCount++
		}

		if rec.ExecutionTime > 0 {
			durationSum += rec.ExecutionTime
			durationCount++
		}

		ts := stats.PerTool[rec.ToolName]
		ts.Count++
		stats.PerTool[rec.ToolName] = ts
	}

	if stats.Total > 0 {
		stats.SuccessRate = float64(stats.SuccessCount) / float64(stats.Total)
	}
	if durationCount > 0 {
		stats.AverageExecutionTime = durationSum / float64(durationCount)
	}
	for name, ts := range stats.PerTool {
		ts.SuccessRate = float64(successByTool[name]) / float64(ts.Count)
		stats.PerTool[name] = ts
	}

	return stats
}
