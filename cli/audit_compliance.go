package cli

import (
	"fmt"
	"time"

	"github.com/alecthomas/kingpin/v2"

	"github.com/byteness/vigil/audit"
)

// ConfigureAuditComplianceCommand sets up "audit compliance", grounded
// on the teacher's audit_compliance.go Input/Reporter split but
// pointed at audit.Summarize/ReadRecords instead of CloudTrail.
func ConfigureAuditComplianceCommand(app *kingpin.Application) {
	auditCmd := app.GetCommand("audit")
	if auditCmd == nil {
		auditCmd = app.Command("audit", "Audit log commands")
	}

	var file string
	var sinceHours int

	cmd := auditCmd.Command("compliance", "Summarize deny rate and degraded spans over a log file")

	cmd.Arg("file", "Path to a log file").Required().StringVar(&file)
	cmd.Flag("since-hours", "Only summarize records from the last N hours (0 = all records)").
		Default("0").IntVar(&sinceHours)

	cmd.Action(func(c *kingpin.ParseContext) error {
		err := AuditComplianceCommand(file, sinceHours)
		app.FatalIfError(err, "audit compliance")
		return nil
	})
}

// AuditComplianceCommand reads a log file and prints a deny-rate and
// severity-mix summary, flagging any window that ran degraded.
func AuditComplianceCommand(file string, sinceHours int) error {
	records, err := audit.ReadRecords(file)
	if err != nil {
		return fmt.Errorf("cli: read %s: %w", file, err)
	}
	if len(records) == 0 {
		printWarn("no records found in %s", file)
		return nil
	}

	start := records[0].Timestamp
	end := records[len(records)-1].Timestamp
	if sinceHours > 0 {
		cutoff := end.Add(-time.Duration(sinceHours) * time.Hour)
		filtered := records[:0:0]
		for _, r := range records {
			if !r.Timestamp.Before(cutoff) {
				filtered = append(filtered, r)
			}
		}
		records = filtered
		if len(records) > 0 {
			start = records[0].Timestamp
		}
	}

	summary := audit.Summarize(records, start, end)
	printComplianceSummary(summary)
	return nil
}

func printComplianceSummary(s *audit.Summary) {
	fmt.Printf("Window:          %s to %s\n", s.StartTime.Format(time.RFC3339), s.EndTime.Format(time.RFC3339))
	fmt.Printf("Total records:   %d\n", s.TotalRecords)
	fmt.Printf("Allow / Deny:    %d / %d (deny rate %.1f%%)\n", s.AllowCount, s.DenyCount, s.DenyRate()*100)
	for sev, n := range s.BySeverity {
		fmt.Printf("  severity %-8s %d\n", sev, n)
	}
	if s.HasDegradedSpans() {
		printWarn("log ran degraded (unsigned) for %d events in this window", s.DegradedSpans)
	} else {
		printOK("no degraded spans in this window")
	}
}
