package cli

import (
	"fmt"
	"os"

	"github.com/alecthomas/kingpin/v2"

	"github.com/byteness/vigil/config"
)

// ConfigureConfigValidateCommand sets up "config validate".
func ConfigureConfigValidateCommand(app *kingpin.Application) {
	configCmd := app.GetCommand("config")
	if configCmd == nil {
		configCmd = app.Command("config", "Configuration commands")
	}

	var file string
	cmd := configCmd.Command("validate", "Validate a YAML config file")
	cmd.Arg("file", "Path to a config file").Required().StringVar(&file)

	cmd.Action(func(c *kingpin.ParseContext) error {
		err := ConfigValidateCommand(file)
		app.FatalIfError(err, "config validate")
		return nil
	})
}

// ConfigValidateCommand validates a config file and prints every issue
// found. Returns a non-nil error only when the result is invalid, for
// scripting exit codes.
func ConfigValidateCommand(file string) error {
	result, err := config.ValidateFile(file)
	if err != nil {
		return err
	}

	var summary config.ResultSummary
	summary.Compute(result)

	for _, issue := range result.Issues {
		if issue.Severity == config.SeverityError {
			printErr("%s: %s", issue.Location, issue.Message)
		} else {
			printWarn("%s: %s", issue.Location, issue.Message)
		}
		if issue.Suggestion != "" {
			fmt.Printf("    suggestion: %s\n", issue.Suggestion)
		}
	}

	if result.Valid {
		printOK("%s: valid (%d warnings)", file, summary.Warnings)
		return nil
	}
	return fmt.Errorf("cli: %s is invalid (%d errors, %d warnings)", file, summary.Errors, summary.Warnings)
}

// ConfigureConfigTemplateCommand sets up "config template".
func ConfigureConfigTemplateCommand(app *kingpin.Application) {
	configCmd := app.GetCommand("config")
	if configCmd == nil {
		configCmd = app.Command("config", "Configuration commands")
	}

	var templateName, outFile string
	cmd := configCmd.Command("template", "Generate a starter config from a named template")
	cmd.Arg("name", fmt.Sprintf("Template name (%v)", config.AllTemplateIDs())).Required().StringVar(&templateName)
	cmd.Flag("out", "Write to this file instead of stdout").StringVar(&outFile)

	cmd.Action(func(c *kingpin.ParseContext) error {
		err := ConfigTemplateCommand(templateName, outFile)
		app.FatalIfError(err, "config template")
		return nil
	})
}

// ConfigTemplateCommand renders a named template's YAML, either to
// outFile or to stdout.
func ConfigTemplateCommand(templateName, outFile string) error {
	id := config.TemplateID(templateName)
	if !id.IsValid() {
		return fmt.Errorf("cli: unknown template %q, must be one of %v", templateName, config.AllTemplateIDs())
	}

	data, err := config.Generate(id)
	if err != nil {
		return err
	}

	if outFile == "" {
		fmt.Print(string(data))
		return nil
	}
	if err := os.WriteFile(outFile, data, 0o644); err != nil {
		return fmt.Errorf("cli: write %s: %w", outFile, err)
	}
	printOK("wrote %s template to %s", templateName, outFile)
	return nil
}
