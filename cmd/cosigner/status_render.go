package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"cosigner/internal/api"
	"cosigner/internal/preflight"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

const (
	statusLabelWidth = 20
	statusIndent     = "  "
)

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	statusText := statusKindLabel(kind)
	if message != "" {
		statusText = fmt.Sprintf("[%s] %s", statusText, message)
	} else {
		statusText = fmt.Sprintf("[%s]", statusText)
	}
	base := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", statusText)
	if colorize {
		if color := statusKindColor(kind); color != "" {
			return color + base + ansiReset
		}
	}
	return base
}

func statusKindLabel(kind statusKind) string {
	switch kind {
	case statusOK:
		return "OK"
	case statusWarn:
		return "WARN"
	case statusError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func statusKindColor(kind statusKind) string {
	switch kind {
	case statusOK:
		return ansiGreen
	case statusWarn:
		return ansiYellow
	case statusError:
		return ansiRed
	case statusInfo:
		return ansiBlue
	default:
		return ""
	}
}

func renderSectionHeader(title string, colorize bool) []string {
	line := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	rule := strings.Repeat("-", len(line))
	if colorize {
		line = ansiBlue + line + ansiReset
		rule = ansiBlue + rule + ansiReset
	}
	return []string{line, rule}
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// healthLines renders the daemon health summary shown by `cosigner status`.
func healthLines(health api.HealthResponse, colorize bool) []string {
	lines := renderSectionHeader("Cosigner", colorize)

	stateKind := statusOK
	if health.ProgramState == "active" {
		stateKind = statusWarn
	}
	lines = append(lines, renderStatusLine("Daemon", statusOK, titleLabel(health.Status), colorize))
	lines = append(lines, renderStatusLine("Program state", stateKind, titleLabel(health.ProgramState), colorize))

	switch {
	case health.IsDeploying:
		lines = append(lines, renderStatusLine("Activity", statusWarn, "Deploying", colorize))
	case health.IsProcessing:
		lines = append(lines, renderStatusLine("Activity", statusInfo, "Processing queue", colorize))
	default:
		lines = append(lines, renderStatusLine("Activity", statusOK, "Idle", colorize))
	}
	lines = append(lines, renderStatusLine("Queue", statusInfo, fmt.Sprintf("%d pending, %d processed", health.QueueLength, health.ProcessedCount), colorize))

	if run := health.LastRun; run != nil {
		kind := statusOK
		detail := fmt.Sprintf("%d confirmed, %d failed", run.Confirmed, run.Failed)
		switch {
		case run.Error != "":
			kind, detail = statusError, run.Error
		case run.RevertError != "":
			kind, detail = statusWarn, detail+"; revert failed"
		case run.Interrupted:
			kind, detail = statusWarn, detail+"; interrupted"
		}
		lines = append(lines, renderStatusLine("Last run", kind, detail, colorize))
	}

	lines = append(lines, "")
	lines = append(lines, renderSectionHeader("Identity", colorize)...)
	lines = append(lines, renderStatusLine("Cosigner", statusInfo, health.CosignerAddress, colorize))
	if health.ProgramID != "" {
		lines = append(lines, renderStatusLine("Program", statusInfo, health.ProgramID, colorize))
	}
	if health.UpgradeAuthority != "" {
		lines = append(lines, renderStatusLine("Upgrade authority", statusInfo, health.UpgradeAuthority, colorize))
	}
	return lines
}

// preflightLines renders check results with a trailing summary line.
func preflightLines(results []preflight.Result, colorize bool) []string {
	lines := renderSectionHeader("Preflight", colorize)
	for _, r := range results {
		kind := statusOK
		if !r.Passed {
			kind = statusError
		}
		lines = append(lines, renderStatusLine(r.Name, kind, r.Detail, colorize))
	}
	failed := len(preflight.Failed(results))
	summaryKind := statusOK
	summary := fmt.Sprintf("%d checks passed", len(results))
	if failed > 0 {
		summaryKind = statusError
		summary = fmt.Sprintf("%d of %d checks failed", failed, len(results))
	}
	lines = append(lines, renderStatusLine("Summary", summaryKind, summary, colorize))
	return lines
}
