package cli

import (
	"fmt"
	"os"

	"github.com/alecthomas/kingpin/v2"

	"github.com/byteness/vigil/audit"
	"github.com/byteness/vigil/config"
	"github.com/byteness/vigil/logging"
	"github.com/byteness/vigil/pipeline"
	"github.com/byteness/vigil/server"
	"github.com/byteness/vigil/signature"
)

// ConfigureServeCommand sets up the serve command, the daemon's main
// mode: load a config, build the pipeline, bind a listener, run.
func ConfigureServeCommand(app *kingpin.Application, g *Globals) {
	var configPath, rulesPath string

	cmd := app.Command("serve", "Run the edge security listener")

	cmd.Flag("config", "Path to a YAML config file").
		Short('c').
		StringVar(&configPath)

	cmd.Flag("rules", "Path to a YAML signature rule file (defaults to the built-in catalog)").
		StringVar(&rulesPath)

	cmd.Action(func(c *kingpin.ParseContext) error {
		err := ServeCommand(configPath, rulesPath)
		app.FatalIfError(err, "serve")
		return nil
	})
}

// ServeCommand loads configuration, wires the pipeline and server, and
// blocks serving traffic until the process is signaled to stop.
func ServeCommand(configPath, rulesPath string) error {
	cfg := config.DefaultConfig()
	if configPath != "" {
		var err error
		cfg, err = config.LoadFile(configPath)
		if err != nil {
			return err
		}
	}

	result := config.Validate(cfg, configPath)
	errCount := 0
	for _, issue := range result.Issues {
		if issue.Severity == config.SeverityError {
			errCount++
			printErr("config error: %s: %s", issue.Location, issue.Message)
		} else {
			printWarn("config warning: %s: %s", issue.Location, issue.Message)
		}
	}
	if !result.Valid {
		return fmt.Errorf("cli: refusing to start with an invalid config (%d errors)", errCount)
	}

	var ruleStore *signature.RuleStore
	if rulesPath != "" {
		var err error
		ruleStore, err = signature.LoadFile(rulesPath)
		if err != nil {
			return err
		}
	}

	auditLog, err := audit.Open(audit.Config{
		LogDir:       cfg.LogDir,
		FileName:     "vigil-audit.log",
		MaxFileSize:  cfg.MaxLogFileSize,
		MaxFiles:     cfg.MaxLogFiles,
		SyncWrites:   cfg.SyncWrites,
		SecretEnvVar: cfg.AuditSecretEnvVar,
	})
	if err != nil {
		return fmt.Errorf("cli: open audit log: %w", err)
	}
	if auditLog.Degraded() {
		printErr("audit log running in degraded mode: %s is unset, records are in-memory and unsigned", cfg.AuditSecretEnvVar)
	}

	logger := logging.NewJSONLogger(os.Stdout)

	p, err := pipeline.New(cfg, ruleStore, auditLog, logger)
	if err != nil {
		return fmt.Errorf("cli: build pipeline: %w", err)
	}

	srv, err := server.New(server.FromConfig(cfg, p, logger))
	if err != nil {
		return fmt.Errorf("cli: bind listener: %w", err)
	}

	printOK("vigild listening on %s (security_level=%s)", srv.Addr(), cfg.SecurityLevel)
	return srv.Serve()
}
