package audit

import (
	"testing"
	"time"
)

func TestCompute_EmptyHistory(t *testing.T) {
	stats := Compute(nil)

	if stats.Total != 0 {
		t.Errorf("Total = %d, want 0", stats.Total)
	}
	if stats.SuccessRate != 0 {
		t.Errorf("SuccessRate = %f, want 0 (no division by zero)", stats.SuccessRate)
	}
	if stats.AverageExecutionTime != 0 {
		t.Errorf("AverageExecutionTime = %f, want 0", stats.AverageExecutionTime)
	}
}

func TestCompute(t *testing.T) {
	zero, one := 0, 1
	errMsg := "command blocked: recursive delete of critical path"
	timeoutMsg := "execution timed out after 1s"

	records := []Record{
		{ToolName: "alpha", ReturnCode: &zero, Success: true, SecurityCheckPassed: true, ExecutionTime: 2.0, Timestamp: time.Now()},
		{ToolName: "alpha", ReturnCode: &one, Success: false, SecurityCheckPassed: true, ExecutionTime: 4.0, Timestamp: time.Now()},
		// Validation rejection: never started, zero duration, excluded from average.
		{ToolName: "beta", Success: false, SecurityCheckPassed: false, ErrorMessage: &errMsg, Timestamp: time.Now()},
		// Timeout: counted in the average with its time-to-timeout.
		{ToolName: "beta", Success: false, SecurityCheckPassed: true, ErrorMessage: &timeoutMsg, ExecutionTime: 3.0, Timestamp: time.Now()},
	}

	stats := Compute(records)

	if stats.Total != 4 {
		t.Errorf("Total = %d, want 4", stats.Total)
	}
	if stats.SuccessCount != 1 || stats.FailureCount != 3 {
		t.Errorf("SuccessCount/FailureCount = %d/%d, want 1/3", stats.SuccessCount, stats.FailureCount)
	}
	if stats.SuccessRate != 0.25 {
		t.Errorf("SuccessRate = %f, want 0.25", stats.SuccessRate)
	}
	// (2.0 + 4.0 + 3.0) / 3; the validation rejection is excluded.
	if stats.AverageExecutionTime != 3.0 {
		t.Errorf("AverageExecutionTime = %f, want 3.0", stats.AverageExecutionTime)
	}

	alpha := stats.PerTool["alpha"]
	if alpha.Count != 2 || alpha.SuccessRate != 0.5 {
		t.Errorf("PerTool[alpha] = %+v, want count 2 rate 0.5", alpha)
	}
	beta := stats.PerTool["beta"]
	if beta.Count != 2 || beta.SuccessRate != 0 {
		t.Errorf("PerTool[beta] = %+v, want count 2 rate 0", beta)
	}
}
