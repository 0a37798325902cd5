package arbiter

import (
	"time"

	"github.com/byteness/vigil/audit"
	"github.com/byteness/vigil/config"
	"github.com/byteness/vigil/correlation"
	"github.com/byteness/vigil/errors"
	"github.com/byteness/vigil/logging"
	"github.com/byteness/vigil/registry"
	"github.com/byteness/vigil/validate"
)

// ReasonCode names the signal that drove a Verdict, mirroring spec
// §6's "Verdict { ..., reason: ReasonCode, ... }". Stage-error reasons
// reuse the errors.Kind string; behavior/correlation/aggregate signals
// get their own values since they have no corresponding Kind.
type ReasonCode string

// blockedReminderInterval bounds how often a denial from an active ban
// produces an audit record, per spec §7: "Blocked: client is within an
// active ban window — denied silently (no further logging beyond a
// rate-limited reminder)."
const blockedReminderInterval = 30 * time.Second

const (
	ReasonAllowed         ReasonCode = "allowed"
	ReasonAggressive      ReasonCode = "aggressive"
	ReasonBehaviorAttack  ReasonCode = "behavior_attack"
	ReasonBehaviorBot     ReasonCode = "behavior_bot"
	ReasonBehaviorAnomaly ReasonCode = "behavior_anomaly"
	ReasonCorrelationHit  ReasonCode = "correlation_hit"
	ReasonSuspiciousFlag  ReasonCode = "suspicious_flag"
)

// Verdict is the core's per-request allow/deny decision (spec §6).
type Verdict struct {
	Allow                 bool
	Reason                ReasonCode
	Category              string
	Confidence            float64
	RecommendedBanSeconds uint32
}

// Input bundles every upstream pipeline stage's output the Arbiter
// composes into a Verdict (spec §2: "Parser -> Validator -> Signature
// -> Rate/DoS -> Behavior -> Correlation -> Arbiter").
type Input struct {
	ClientID string
	Method   string
	Path     string

	// StageErr is the first deny-worthy error raised by an earlier
	// stage (parser, validator, signature engine, or shaper), or nil
	// if every prior stage admitted the request.
	StageErr error
	// Category is the attack category associated with StageErr, when
	// it came from the signature engine.
	Category string
	// StageConfidence is the signature engine's confidence, when
	// StageErr came from a signature hit.
	StageConfidence float64

	Aggressive bool
	Suspicious bool

	Behavior    registry.Classification
	Correlation *correlation.Result
}

// Arbiter composes pipeline stage outputs into a Verdict under a
// Policy, emits one structured verdict log line per request and at most
// one audit record (none when no audit log is set, and none for a
// Blocked denial within blockedReminderInterval of the client's last
// logged one), and escalates a client's ban after Policy.BanThreshold
// consecutive denies.
type Arbiter struct {
	policy Policy
	audit  *audit.Log
	logger logging.Logger
}

// New constructs an Arbiter. logger may be a logging.NopLogger if
// structured verdict logging is disabled.
func New(policy Policy, auditLog *audit.Log, logger logging.Logger) *Arbiter {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Arbiter{policy: policy, audit: auditLog, logger: logger}
}

// Decide evaluates Input against the Arbiter's Policy for the client
// tracked by rec, mutates rec's ban-escalation state on deny, and
// drives both logs. Caller must hold the registry lock for rec.
func (a *Arbiter) Decide(rec *registry.ClientRecord, in Input, now time.Time) Verdict {
	trusted := a.policy.IsTrusted(in.ClientID)
	verdict := a.evaluate(in, trusted)

	if verdict.Allow {
		rec.ConsecutiveDenies = 0
	} else {
		rec.ConsecutiveDenies++
		if a.policy.BanThreshold > 0 && rec.ConsecutiveDenies >= a.policy.BanThreshold && a.policy.BanDuration > 0 {
			rec.BlockedUntil = now.Add(a.policy.BanDuration)
			verdict.RecommendedBanSeconds = uint32(a.policy.BanDuration.Seconds())
		}
	}

	a.log(rec, in, verdict, trusted, now)
	return verdict
}

// evaluate applies the spec §4.9 deny table; see Policy's
// absoluteDeny/standardDeny helpers for the per-level deny sets.
func (a *Arbiter) evaluate(in Input, trusted bool) Verdict {
	if in.StageErr != nil {
		kind := errors.GetKind(in.StageErr)

		if absoluteDeny(kind) {
			return denyVerdict(ReasonCode(kind), in)
		}

		// Trusted clients bypass Rate/DoS denials but never signature,
		// malformed, or validator-rejection denials (SPEC_FULL.md §12:
		// "a compromised trusted host still can't smuggle a SQL
		// injection string past the signature engine").
		bypassable := kind == errors.KindRateLimited
		if !(trusted && bypassable) && a.policy.atLeast(config.LevelStandard) && standardDeny(kind) {
			return denyVerdict(ReasonCode(kind), in)
		}
	}

	if a.policy.Level == config.LevelMinimal {
		return allowVerdict()
	}

	if trusted {
		return allowVerdict()
	}

	if a.policy.atLeast(config.LevelHigh) {
		if in.Aggressive {
			return Verdict{Allow: false, Reason: ReasonAggressive}
		}
		if in.Behavior.Label == "attack" && LevelForConfidence(in.Behavior.Confidence) >= ConfidenceMedium {
			return Verdict{Allow: false, Reason: ReasonBehaviorAttack, Confidence: in.Behavior.Confidence}
		}
		if in.Correlation != nil {
			return Verdict{Allow: false, Reason: ReasonCorrelationHit, Category: string(in.Correlation.Type), Confidence: in.Correlation.Confidence}
		}
	}

	if a.policy.atLeast(config.LevelParanoid) {
		if in.Behavior.Label == "bot" {
			return Verdict{Allow: false, Reason: ReasonBehaviorBot, Confidence: in.Behavior.Confidence}
		}
		if in.Behavior.Label == "anomaly" {
			return Verdict{Allow: false, Reason: ReasonBehaviorAnomaly, Confidence: in.Behavior.Confidence}
		}
		if in.Suspicious {
			return Verdict{Allow: false, Reason: ReasonSuspiciousFlag}
		}
	}

	return allowVerdict()
}

func allowVerdict() Verdict {
	return Verdict{Allow: true, Reason: ReasonAllowed}
}

func denyVerdict(reason ReasonCode, in Input) Verdict {
	return Verdict{Allow: false, Reason: reason, Category: in.Category, Confidence: in.StageConfidence}
}

// log emits one structured verdict log line for the decision and, unless
// the audit log is nil or a Blocked denial falls within the reminder
// interval, one audit record.
func (a *Arbiter) log(rec *registry.ClientRecord, in Input, v Verdict, trusted bool, now time.Time) {
	effect := "deny"
	if v.Allow {
		effect = "allow"
	}

	entry := logging.NewVerdictLogEntry(in.ClientID, in.Method, in.Path, effect)
	entry.SecurityLevel = string(a.policy.Level)
	entry.Reason = string(v.Reason)
	entry.Trusted = trusted
	if in.Behavior.Label != "" {
		entry.BehaviorScore = in.Behavior.Confidence
	}
	if in.Correlation != nil {
		entry.Correlated = []string{string(in.Correlation.Type)}
	}
	if kind := errors.GetKind(in.StageErr); kind != "" {
		entry.Kind = string(kind)
		if ve, ok := errors.IsVigilError(in.StageErr); ok {
			entry.Code = ve.Code()
			entry.Reason = validate.SanitizeForDisplay(ve.Error(), 256)
		}
	}
	if v.Category != "" {
		entry.SignatureRule = v.Category
	}
	a.logger.LogVerdict(entry)

	if a.audit == nil {
		return
	}
	if v.Allow && errors.GetKind(in.StageErr) == "" {
		// Allowed requests with no stage signal at all always get one
		// record, at Info; spec §8 scenario 1 expects "no audit event
		// above Info" for a benign GET.
		a.audit.Append(audit.EventDecision, audit.SeverityInfo, in.ClientID, in.Path, map[string]string{"effect": "allow"})
		return
	}

	if errors.GetKind(in.StageErr) == errors.KindBlocked {
		if !rec.LastBlockedLogAt.IsZero() && now.Sub(rec.LastBlockedLogAt) < blockedReminderInterval {
			return
		}
		rec.LastBlockedLogAt = now
	}

	sev := severityFor(v, in)
	details := map[string]string{"effect": effect, "reason": string(v.Reason)}
	if v.Category != "" {
		details["category"] = v.Category
	}
	a.audit.Append(audit.EventDecision, sev, in.ClientID, in.Path, details)
}

func severityFor(v Verdict, in Input) audit.Severity {
	if kind := errors.GetKind(in.StageErr); kind != "" {
		return audit.Severity(kind.DefaultSeverity())
	}
	if !v.Allow {
		return audit.SeverityWarning
	}
	return audit.SeverityInfo
}
