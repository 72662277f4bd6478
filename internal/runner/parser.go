package runner

import (
	"bufio"
	"encoding/json"
	"strings"
)

// toolMessage is one line of the tool's machine-readable output stream.
// Only the message types the parser cares about are modeled; everything else
// is carried verbatim in the raw transcript.
type toolMessage struct {
	Type       string `json:"type"`
	Message    string `json:"@message"`
	Changes    *toolChanges `json:"changes,omitempty"`
	Diagnostic *toolDiagnostic `json:"diagnostic,omitempty"`
}

type toolChanges struct {
	Add    int `json:"add"`
	Change int `json:"change"`
	Remove int `json:"remove"`
}

type toolDiagnostic struct {
	Severity string `json:"severity"`
	Summary  string `json:"summary"`
	Detail   string `json:"detail,omitempty"`
}

// parsePlanOutput extracts the change summary and error diagnostics from the
// tool's JSON line stream. A missing change summary on a zero exit means the
// output format was not understood: the caller gets success=false with
// kind=parse and the full raw text retained for diagnosis.
func parsePlanOutput(raw string, exitCode int) *PlanOutput {
	output := &PlanOutput{RawOutput: raw}

	var summaryFound bool
	scanner := bufio.NewScanner(strings.NewReader(raw))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || !strings.HasPrefix(line, "{") {
			continue
		}

		var message toolMessage
		if err := json.Unmarshal([]byte(line), &message); err != nil {
			continue
		}

		switch message.Type {
		case "change_summary":
			if message.Changes != nil {
				output.ToAdd = message.Changes.Add
				output.ToChange = message.Changes.Change
				output.ToDestroy = message.Changes.Remove
				summaryFound = true
			}
		case "diagnostic":
			if message.Diagnostic != nil && message.Diagnostic.Severity == "error" {
				diagnostic := message.Diagnostic.Summary
				if message.Diagnostic.Detail != "" {
					diagnostic += ": " + message.Diagnostic.Detail
				}
				output.Errors = append(output.Errors, diagnostic)
			}
		}
	}

	switch {
	case exitCode != 0:
		output.Kind = KindValidation
		if len(output.Errors) == 0 {
			output.Errors = append(output.Errors, "tool exited with a nonzero status")
		}
	case !summaryFound:
		output.Kind = KindParse
		output.Errors = append(output.Errors, "no change summary found in tool output")
	default:
		output.Success = true
	}

	return output
}
