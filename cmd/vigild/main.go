package main

import (
	"os"

	"github.com/alecthomas/kingpin/v2"

	"github.com/byteness/vigil/cli"
)

// Version is provided at compile time.
var Version = "dev"

func main() {
	app := kingpin.New("vigild", "HTTP/1.x edge security pipeline")
	app.Version(Version)

	globals := cli.ConfigureGlobals(app)

	cli.ConfigureServeCommand(app, globals)
	cli.ConfigureAuditVerifyCommand(app)
	cli.ConfigureAuditComplianceCommand(app)
	cli.ConfigureRulesLintCommand(app)
	cli.ConfigureConfigValidateCommand(app)
	cli.ConfigureConfigTemplateCommand(app)

	kingpin.MustParse(app.Parse(os.Args[1:]))
}
