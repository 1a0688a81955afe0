package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/rulecov/rulecov/internal/application"
	"github.com/rulecov/rulecov/internal/domain"
)

// handleCheck implements the check tool.
func (s *Server) handleCheck(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input CheckInput,
) (*mcp.CallToolResult, ToolOutput, error) {
	opts := application.CheckOptions{
		ConfigPath: coalesce(input.ConfigPath, s.config.ConfigPath),
	}

	outcome, err := s.svc.CheckResult(ctx, opts)

	failures := outcome.Run.FailureMessages()
	output := ToolOutput{
		Passed:    outcome.Policy.Passed && len(failures) == 0,
		Decisions: outcome.Policy.Decisions,
		Failures:  failures,
		Warnings:  outcome.Run.Warnings,
	}

	if err != nil {
		output.Passed = false
		output.Error = err.Error()
	}

	output.Summary = checkSummary(outcome)

	return nil, output, nil
}

// handleReport implements the report tool.
func (s *Server) handleReport(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input ReportInput,
) (*mcp.CallToolResult, ToolOutput, error) {
	opts := application.ReportOptions{
		ConfigPath: coalesce(input.ConfigPath, s.config.ConfigPath),
	}

	run, err := s.svc.ReportResult(ctx, opts)

	failures := run.FailureMessages()
	output := ToolOutput{
		Passed:   len(failures) == 0,
		Files:    run.Report.Files,
		Failures: failures,
		Warnings: run.Warnings,
	}

	if err != nil {
		output.Passed = false
		output.Error = err.Error()
	}

	output.Summary = reportSummary(run)

	return nil, output, nil
}

// handleRecord implements the record tool.
func (s *Server) handleRecord(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input RecordInput,
) (*mcp.CallToolResult, ToolOutput, error) {
	opts := application.RecordOptions{
		ConfigPath:  coalesce(input.ConfigPath, s.config.ConfigPath),
		HistoryPath: coalesce(input.HistoryPath, s.config.HistoryPath),
		Commit:      input.Commit,
		Branch:      input.Branch,
	}

	entry, err := s.svc.RecordResult(ctx, opts)

	output := ToolOutput{Passed: err == nil}
	switch {
	case err == nil:
		output.Summary = fmt.Sprintf("recorded run %s at %.1f%% overall", entry.RunID, entry.Overall)
	case errors.Is(err, application.ErrCaseFailures):
		// The entry was still appended; history tracks what the suite
		// actually covers.
		output.Summary = fmt.Sprintf("recorded run %s at %.1f%% overall with failing cases", entry.RunID, entry.Overall)
		output.Error = err.Error()
	default:
		output.Summary = "failed to record coverage"
		output.Error = err.Error()
	}

	return nil, output, nil
}

// checkSummary creates a human-readable verdict for the check tool.
func checkSummary(outcome application.CheckOutcome) string {
	decisions := outcome.Policy.Decisions
	if len(decisions) == 0 {
		return "no decisions evaluated"
	}

	passing := 0
	for _, d := range decisions {
		if d.Status == domain.StatusPass {
			passing++
		}
	}

	verdict := "PASS"
	if !outcome.Policy.Passed || outcome.Run.Failures() > 0 {
		verdict = "FAIL"
	}
	percent := domain.Round1(outcome.Run.Report.Overall().Ratio() * 100)
	return fmt.Sprintf("%s | %.1f%% overall | %d/%d decisions passing", verdict, percent, passing, len(decisions))
}

// reportSummary creates a human-readable summary for the report tool.
func reportSummary(run application.RunResult) string {
	overall := run.Report.Overall()
	percent := domain.Round1(overall.Ratio() * 100)
	return fmt.Sprintf("%.1f%% overall | %d/%d rules covered | %d cases", percent, overall.Covered, overall.Total, len(run.Cases))
}
