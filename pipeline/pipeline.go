// Package pipeline wires the Client Registry, Protocol Parser,
// Validator, Signature Engine, Rate & DoS Shaper, Behavior Analyzer,
// Correlation Engine, Audit Log, and Decision Arbiter into the single
// ordered control flow spec §2 describes: "Parser -> Validator ->
// Signature -> Rate/DoS -> Behavior -> Correlation -> Arbiter". Every
// stage for one request runs under the registry's single lock, so a
// client's own requests are linearizable; requests from all clients
// are serialized through that same lock.
package pipeline

import (
	"io"
	"time"

	"github.com/byteness/vigil/arbiter"
	"github.com/byteness/vigil/audit"
	"github.com/byteness/vigil/behavior"
	"github.com/byteness/vigil/config"
	"github.com/byteness/vigil/correlation"
	"github.com/byteness/vigil/errors"
	"github.com/byteness/vigil/logging"
	"github.com/byteness/vigil/protocol"
	"github.com/byteness/vigil/ratelimit"
	"github.com/byteness/vigil/registry"
	"github.com/byteness/vigil/signature"
	"github.com/byteness/vigil/validate"
)

// Outcome is what the pipeline's Process call returns to a caller (the
// server package's connection handler): the final Verdict plus the
// parsed request when parsing got far enough to produce one.
type Outcome struct {
	Verdict arbiter.Verdict
	Request *protocol.Request
	Err     error // the stage error that produced a deny, if any
}

// Pipeline is the composition root tying every stage together. It
// holds no per-request state; all per-request state lives on the
// registry.ClientRecord for the calling client's identity.
type Pipeline struct {
	Registry    *registry.Registry
	Parser      *protocol.Parser
	ValidateCfg validate.Config
	Signatures  *signature.RuleStore
	Shaper      *ratelimit.Shaper
	Behavior    *behavior.Analyzer
	Correlation *correlation.Engine
	Arbiter     *arbiter.Arbiter
	Audit       *audit.Log
	Logger      logging.Logger

	BehaviorEnabled    bool
	CorrelationEnabled bool
}

// New builds a Pipeline from a loaded VigilConfig and an open audit
// log. ruleStore may be nil to fall back to signature.LoadDefault().
func New(cfg config.VigilConfig, ruleStore *signature.RuleStore, auditLog *audit.Log, logger logging.Logger) (*Pipeline, error) {
	if ruleStore == nil {
		var err error
		ruleStore, err = signature.LoadDefault()
		if err != nil {
			return nil, err
		}
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	policy, err := arbiter.PolicyFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	overrides := make(map[string]ratelimit.PathOverride, len(cfg.PathRateOverrides))
	for prefix, o := range cfg.PathRateOverrides {
		overrides[prefix] = ratelimit.PathOverride{
			RequestLimit: o.RequestLimit,
			Window:       time.Duration(o.WindowSeconds) * time.Second,
		}
	}

	shaperCfg := ratelimit.ShaperConfig{
		Window:         time.Duration(cfg.RateLimitWindowSeconds) * time.Second,
		RequestLimit:   cfg.RateLimitRequests,
		BurstWindow:    time.Duration(cfg.RateLimitWindowSeconds) * time.Second,
		BurstLimit:     cfg.BurstLimit,
		BanOnRateLimit: true,
		PathOverrides:  overrides,
		MaxBodySize:    int64(cfg.MaxRequestSize),
	}

	validateCfg := validate.Config{
		AllowedChars:      validate.DefaultConfig().AllowedChars,
		AllowedExtensions: cfg.AllowedExtensions,
		AllowedMethods:    cfg.AllowedMethods,
	}

	return &Pipeline{
		Registry:    registry.New(registry.Config{Capacity: 10000, IdleTTL: 30 * time.Minute}),
		Parser: protocol.NewParser(protocol.Limits{
			MaxLineLength:        cfg.MaxURILength,
			MaxHeaderBytes:       cfg.MaxHeaderSize,
			MaxHeaderCount:       cfg.MaxHeaderCount,
			MaxHeaderNameLength:  256,
			MaxHeaderValueLength: cfg.MaxHeaderSize,
			MaxURILength:         cfg.MaxURILength,
			MaxBodySize:          int64(cfg.MaxRequestSize),
			AllowedMethods:       cfg.AllowedMethods,
		}),
		ValidateCfg:        validateCfg,
		Signatures:         ruleStore,
		Shaper:             ratelimit.NewShaper(shaperCfg),
		Behavior:           behavior.New(behavior.DefaultConfig()),
		Correlation:        correlation.New(correlation.DefaultConfig()),
		Arbiter:            arbiter.New(policy, auditLog, logger),
		Audit:              auditLog,
		Logger:             logger,
		BehaviorEnabled:    cfg.BehaviorAnalysisEnabled,
		CorrelationEnabled: cfg.CorrelationEnabled,
	}, nil
}

// Process runs one request from r, originating from clientID, through
// the full pipeline and returns the Outcome. now is the request
// arrival time (passed explicitly so callers, and tests, control the
// clock).
func (p *Pipeline) Process(clientID string, r io.Reader, now time.Time) Outcome {
	rec, err := p.Registry.FindOrInsert(clientID, now)
	if err != nil {
		return p.denyNoRecord(clientID, err, now)
	}

	var out Outcome
	p.Registry.Use(clientID, func(rec *registry.ClientRecord) {
		out = p.processLocked(rec, r, now)
	})
	return out
}

// processLocked runs every stage for rec. Caller holds the registry
// lock for the whole call, matching spec §5's "all
// mutation to a given ClientRecord happens while that client's single
// lock is held".
func (p *Pipeline) processLocked(rec *registry.ClientRecord, r io.Reader, now time.Time) Outcome {
	ev := registry.RequestEvent{Timestamp: now}

	result, perr := p.Parser.Parse(r, now)
	req := result.Request
	if req != nil {
		ev.Method, ev.Path, ev.Size = req.Method, req.Path, int64(len(req.Body))
	}
	if perr != nil {
		return p.finish(rec, ev, req, perr, "", 0, now)
	}
	if len(result.Anomalies) > 0 {
		ev.Malformed = true
		rec.ErrorCount++
	}

	vres, verr := validate.Validate(req, p.ValidateCfg)
	if verr != nil {
		ev.Malformed = true
		category := ""
		if isAttackKind(errors.GetKind(verr)) {
			category = errors.GetKind(verr).String()
		}
		return p.finish(rec, ev, req, verr, category, 0, now)
	}
	if validate.DetectObfuscation(req.RawTarget) {
		ev.Obfuscated = true
		rec.Flags.Obfuscated = true
	}
	req.Path = vres.ResolvedPath

	if hit := p.Signatures.Match(req); hit != nil {
		ev.Suspicious = true
		rec.Flags.Suspicious = true
		sigErr := errors.New(errors.ErrCodeSignatureMatch, errors.KindSignatureHit,
			"request matched a "+hit.Category+" signature", "investigate the client; this is not a recoverable condition", nil)
		return p.finish(rec, ev, req, sigErr, hit.Category, hit.Confidence, now)
	}

	if serr := p.Shaper.Admit(rec, req.Path, req.ContentLength, now); serr != nil {
		ev.Malformed = ev.Malformed || errors.GetKind(serr) == errors.KindTooLarge
		return p.finish(rec, ev, req, serr, "", 0, now)
	}

	return p.finish(rec, ev, req, nil, "", 0, now)
}

// finish records the terminal RequestEvent, runs Behavior/Correlation
// when they are enabled (also after a stage error), and drives the
// Arbiter.
func (p *Pipeline) finish(rec *registry.ClientRecord, ev registry.RequestEvent, req *protocol.Request, stageErr error, category string, confidence float64, now time.Time) Outcome {
	isError := stageErr != nil
	isAttack := isAttackKind(errors.GetKind(stageErr))
	if isError {
		ev.Status = 400
	} else {
		ev.Status = 200
	}
	rec.Observe(ev, isError, isAttack)

	var cls registry.Classification
	if p.BehaviorEnabled {
		cls = p.Behavior.Classify(rec, now)
		rec.LastClass = cls
	}

	var corr *correlation.Result
	if p.CorrelationEnabled {
		corr = p.Correlation.Detect(rec, now)
	}

	method, path := "", ""
	if req != nil {
		method, path = req.Method, req.Path
	}

	in := arbiter.Input{
		ClientID:        rec.Identity,
		Method:          method,
		Path:            path,
		StageErr:        stageErr,
		Category:        category,
		StageConfidence: confidence,
		Aggressive:      rec.Flags.Aggressive,
		Suspicious:      rec.Flags.Suspicious,
		Behavior:        cls,
		Correlation:     corr,
	}
	v := p.Arbiter.Decide(rec, in, now)

	return Outcome{Verdict: v, Request: req, Err: stageErr}
}

// isAttackKind reports whether kind is one of the spec §7 rejections
// that must count toward a client's attack_count: signature hits, and
// the validator rejections ("InvalidEncoding / PathTraversal /
// DisallowedExtension: validator rejections ... counted as attack").
func isAttackKind(kind errors.Kind) bool {
	switch kind {
	case errors.KindSignatureHit, errors.KindInvalidEncoding, errors.KindPathTraversal, errors.KindDisallowedExtension:
		return true
	default:
		return false
	}
}

// denyNoRecord handles a registry.FindOrInsert failure (capacity
// exhausted): there is no ClientRecord to attach ban-escalation state
// to, so the pipeline denies directly without involving the Arbiter's
// consecutive-deny bookkeeping.
func (p *Pipeline) denyNoRecord(clientID string, err error, now time.Time) Outcome {
	entry := logging.NewVerdictLogEntry(clientID, "", "", "deny")
	entry.Kind = string(errors.GetKind(err))
	entry.Reason = err.Error()
	p.Logger.LogVerdict(entry)
	if p.Audit != nil {
		p.Audit.Append(audit.EventDecision, audit.SeverityCritical, clientID, "", map[string]string{"effect": "deny", "reason": "registry_capacity_exhausted"})
	}
	return Outcome{Verdict: arbiter.Verdict{Allow: false, Reason: arbiter.ReasonCode(errors.GetKind(err))}, Err: err}
}
