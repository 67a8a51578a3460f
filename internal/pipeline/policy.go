package pipeline

import "strings"

type Enforcement string

const (
	// EnforceStrict blocks acceptance on citation failures and triggers
	// bounded corrective retries.
	EnforceStrict Enforcement = "strict"
	// EnforceLenient records citation failures as warnings and never
	// retries for citation reasons.
	EnforceLenient Enforcement = "lenient"
)

type VerifyContentMode string

const (
	VerifyContentAlways       VerifyContentMode = "always"
	VerifyContentOnFlag       VerifyContentMode = "on_flag"
	VerifyContentModeSpecific VerifyContentMode = "mode_specific"
	VerifyContentNever        VerifyContentMode = "never"
)

// Profile is the static per-command policy. It is constructed once per
// invocation from the command table and threaded through every call; no
// shared profile is ever mutated mid-pipeline.
type Profile struct {
	EnforceCitations       Enforcement
	VerifyContent          VerifyContentMode
	CitationValidateAlways bool
	CitationValidateOnFlag bool
	CitationValidateModes  []string
	VerifyContentModes     []string
	// SoundnessBlocking elevates a flagged soundness review from advisory
	// to terminal. Deliberately explicit: only the critical-verification
	// call sites set it.
	SoundnessBlocking bool
}

// commandProfiles is the one static command→profile table. Per-command
// verification behavior lives here and nowhere else.
var commandProfiles = map[string]Profile{
	"extract-facts": {
		EnforceCitations:       EnforceStrict,
		VerifyContent:          VerifyContentAlways,
		CitationValidateAlways: true,
		SoundnessBlocking:      true,
	},
	"strategize": {
		EnforceCitations:       EnforceLenient,
		VerifyContent:          VerifyContentOnFlag,
		CitationValidateAlways: true,
	},
	"brainstorm": {
		EnforceCitations:       EnforceLenient,
		VerifyContent:          VerifyContentNever,
		CitationValidateAlways: true,
	},
	"note": {
		EnforceCitations:       EnforceLenient,
		VerifyContent:          VerifyContentOnFlag,
		CitationValidateOnFlag: true,
	},
	"brief": {
		EnforceCitations:       EnforceLenient,
		VerifyContent:          VerifyContentOnFlag,
		CitationValidateOnFlag: true,
	},
	"digest": {
		EnforceCitations:      EnforceLenient,
		VerifyContent:         VerifyContentModeSpecific,
		CitationValidateModes: []string{"issue-spotting"},
		VerifyContentModes:    []string{"issue-spotting"},
	},
	"lookup": {
		EnforceCitations: EnforceLenient,
		VerifyContent:    VerifyContentNever,
	},
	"plan": {
		EnforceCitations: EnforceLenient,
		VerifyContent:    VerifyContentNever,
	},
	"critical-verify": {
		EnforceCitations:       EnforceStrict,
		VerifyContent:          VerifyContentAlways,
		CitationValidateAlways: true,
		SoundnessBlocking:      true,
	},
}

// ProfileFor returns the policy for a command. Unknown commands get the
// lenient, no-verification default.
func ProfileFor(command string) Profile {
	if profile, ok := commandProfiles[strings.ToLower(strings.TrimSpace(command))]; ok {
		return profile
	}
	return Profile{
		EnforceCitations: EnforceLenient,
		VerifyContent:    VerifyContentNever,
	}
}

// citationChecksEnabled reports whether this attempt runs the external
// citation verifier in addition to the always-on pattern validation.
func (p Profile) citationChecksEnabled(req Request) bool {
	if p.EnforceCitations == EnforceStrict || p.CitationValidateAlways {
		return true
	}
	if p.CitationValidateOnFlag && req.VerifyRequested {
		return true
	}
	return containsFold(p.CitationValidateModes, req.Mode)
}

func (p Profile) contentChecksEnabled(req Request) bool {
	switch p.VerifyContent {
	case VerifyContentAlways:
		return true
	case VerifyContentOnFlag:
		return req.VerifyRequested
	case VerifyContentModeSpecific:
		return containsFold(p.VerifyContentModes, req.Mode)
	default:
		return false
	}
}

func containsFold(values []string, target string) bool {
	target = strings.TrimSpace(target)
	if target == "" {
		return false
	}
	for _, value := range values {
		if strings.EqualFold(strings.TrimSpace(value), target) {
			return true
		}
	}
	return false
}
