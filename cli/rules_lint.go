package cli

import (
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/byteness/vigil/signature"
)

// ConfigureRulesLintCommand sets up "rules lint", grounded on the
// teacher's policy.LintPolicy/LintIssue pattern, generalized from
// access-control rules to signature rule catalogs.
func ConfigureRulesLintCommand(app *kingpin.Application) {
	rulesCmd := app.GetCommand("rules")
	if rulesCmd == nil {
		rulesCmd = app.Command("rules", "Signature rule catalog commands")
	}

	var file string

	cmd := rulesCmd.Command("lint", "Check a signature rule catalog for authoring mistakes")
	cmd.Arg("file", "Path to a YAML rule file").Required().StringVar(&file)

	cmd.Action(func(c *kingpin.ParseContext) error {
		err := RulesLintCommand(file)
		app.FatalIfError(err, "rules lint")
		return nil
	})
}

// RulesLintCommand parses a rule catalog and reports every issue found.
// It returns an error (nonzero exit) only if at least one issue was
// found, matching the teacher's lint commands' scripting contract.
func RulesLintCommand(file string) error {
	specs, err := signature.ReadSpecsFile(file)
	if err != nil {
		return err
	}

	issues := signature.LintSpecs(specs)
	if len(issues) == 0 {
		printOK("%s: %d rules, no issues found", file, len(specs))
		return nil
	}

	printErr("%s: %d issues found across %d rules", file, len(issues), len(specs))
	for _, issue := range issues {
		fmt.Printf("  [%s] rule %d: %s\n", issue.Type, issue.RuleID, issue.Message)
	}
	return fmt.Errorf("cli: %d lint issues found", len(issues))
}
