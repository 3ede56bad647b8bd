// Package guardrails is the content safety gate in front of response
// generation. It is a pure function of the message list: ordered pattern
// categories decide whether a request is blocked outright, blocked because
// it targets assessed work, or allowed with a safety preface.
package guardrails

import (
	"regexp"
	"strings"
)

type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

type Message struct {
	Role    string
	Content string
}

type Result struct {
	Allowed    bool
	Severity   Severity
	Flagged    bool   // allowed but the reply needs a safety preface
	Reason     string
	Suggestion string // canned alternative for blocked requests
}

// Direct requests for graded work produced verbatim.
var directPatterns = compile(
	`write my (essay|assignment|dissertation|coursework|paper)`,
	`complete my (essay|assignment|dissertation|coursework|paper)`,
	`do my (homework|assignment|essay|coursework)`,
	`(generate|create) my (essay|assignment|dissertation|paper)`,
	`(write|draft|compose) (a|an|my) \d+k? word (essay|assignment|paper)`,
	`give me (a|an) essay on`,
	`i need (a|an) essay on`,
	`help me cheat`,
	`plagiaris`,
	`contract cheating`,
)

// Live assessment contexts.
var assessmentPatterns = compile(
	`exam (question|answer)`,
	`test (question|answer)`,
	`(mock|practice) exam`,
	`exam help`,
	`during (my|the) exam`,
	`in my exam`,
	`exam tomorrow`,
	`quiz answer`,
)

// Softer indirect-assistance requests: blocked only when combined with
// assessment-context keywords, otherwise allowed with a preface.
var indirectPatterns = compile(
	`structure my (essay|assignment)`,
	`outline my (essay|assignment)`,
	`thesis statement for my`,
	`(conclusion|introduction) for my (essay|assignment)`,
	`legal argument for`,
	`case analysis for`,
)

// DefaultIntegrityKeywords escalate indirect requests to a block. The set is
// a product policy choice, so it is configuration rather than a constant.
var DefaultIntegrityKeywords = []string{
	"submit", "submission", "deadline", "due date", "due tomorrow", "marking",
	"grade", "assessment", "coursework", "portfolio", "examination",
}

type Config struct {
	IntegrityKeywords []string
}

type Gate struct {
	keywords []string
}

func New(cfg Config) *Gate {
	kw := cfg.IntegrityKeywords
	if kw == nil {
		kw = DefaultIntegrityKeywords
	}
	return &Gate{keywords: kw}
}

// Check evaluates the running conversation plus latest utterance. Categories
// are ordered: the first match wins.
func (g *Gate) Check(messages []Message) Result {
	last := ""
	if len(messages) > 0 {
		last = messages[len(messages)-1].Content
	}
	var full strings.Builder
	for _, m := range messages {
		full.WriteString(m.Content)
		full.WriteByte(' ')
	}
	context := full.String()

	for _, p := range directPatterns {
		if p.MatchString(last) || p.MatchString(context) {
			return Result{
				Allowed:    false,
				Severity:   SeverityHigh,
				Reason:     "direct assignment writing request",
				Suggestion: writingAlternative,
			}
		}
	}

	for _, p := range assessmentPatterns {
		if p.MatchString(last) {
			return Result{
				Allowed:    false,
				Severity:   SeverityMedium,
				Reason:     "assessment assistance request",
				Suggestion: examAlternative,
			}
		}
	}

	for _, p := range indirectPatterns {
		if !p.MatchString(last) {
			continue
		}
		if g.hasIntegrityKeyword(last) {
			return Result{
				Allowed:    false,
				Severity:   SeverityMedium,
				Reason:     "assignment-specific writing assistance",
				Suggestion: structureGuidance,
			}
		}
		return Result{
			Allowed:  true,
			Severity: SeverityLow,
			Flagged:  true,
			Reason:   "general writing guidance",
		}
	}

	return Result{Allowed: true, Severity: SeverityLow}
}

func (g *Gate) hasIntegrityKeyword(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range g.keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// NeedsPrelude reports whether an allowed reply should carry a safety
// preface.
func NeedsPrelude(r Result) bool {
	return r.Allowed && r.Flagged
}

// Prelude returns the severity-scaled safety preface prepended to replies.
func Prelude(sev Severity) string {
	switch sev {
	case SeverityHigh:
		return "I can't assist with assignment writing or exam answers; all academic work must be entirely your own. "
	case SeverityMedium:
		return "Quick reminder: I can explain concepts but can't help with specific assessed work, and everything you submit must be your own. "
	default:
		return "Remember, this is general guidance only; your own work must stay original and properly attributed. "
	}
}

const writingAlternative = "I can't write your assignment, but I can help you " +
	"understand the legal concepts, talk through case law, suggest research " +
	"strategies, or explain essay structure in general terms. Your submitted " +
	"work has to be your own, so for assignment support it's worth speaking " +
	"with your tutor or the academic skills centre."

const examAlternative = "I can't help with live exams or assessed questions, " +
	"but I'm glad to help you prepare: we can review the concepts, practise " +
	"problem-solving approaches, or work on time management. For " +
	"exam-specific guidance, check your module handbook or ask your tutor."

const structureGuidance = "I can explain general essay structures and legal " +
	"writing principles, but not the structure of your specific assessed " +
	"piece. I can walk you through the IRAC method or how to approach legal " +
	"problem questions in general, and your tutor can advise on the " +
	"assignment itself."

func compile(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(`(?i)` + p)
	}
	return out
}
