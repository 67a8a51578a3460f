package pipeline

import "testing"

func TestProfileTable(t *testing.T) {
	cases := []struct {
		command  string
		strict   bool
		blocking bool
	}{
		{"extract-facts", true, true},
		{"critical-verify", true, true},
		{"strategize", false, false},
		{"brainstorm", false, false},
		{"note", false, false},
		{"brief", false, false},
		{"digest", false, false},
		{"lookup", false, false},
		{"plan", false, false},
	}
	for _, tc := range cases {
		profile := ProfileFor(tc.command)
		if got := profile.EnforceCitations == EnforceStrict; got != tc.strict {
			t.Errorf("%s: strict = %v, want %v", tc.command, got, tc.strict)
		}
		if profile.SoundnessBlocking != tc.blocking {
			t.Errorf("%s: blocking = %v, want %v", tc.command, profile.SoundnessBlocking, tc.blocking)
		}
	}
}

func TestProfileForUnknownCommandIsLenientNoChecks(t *testing.T) {
	profile := ProfileFor("made-up-command")
	if profile.EnforceCitations != EnforceLenient {
		t.Fatalf("enforcement = %q, want lenient", profile.EnforceCitations)
	}
	if profile.citationChecksEnabled(Request{CommandName: "made-up-command"}) {
		t.Fatal("unknown command must not run external citation checks")
	}
	if profile.contentChecksEnabled(Request{CommandName: "made-up-command"}) {
		t.Fatal("unknown command must not run content checks")
	}
}

func TestCitationCheckGating(t *testing.T) {
	cases := []struct {
		name    string
		command string
		req     Request
		want    bool
	}{
		{"strict always on", "extract-facts", Request{}, true},
		{"validate-always without flag", "strategize", Request{}, true},
		{"on-flag without flag", "note", Request{}, false},
		{"on-flag with flag", "note", Request{VerifyRequested: true}, true},
		{"mode-specific wrong mode", "digest", Request{Mode: "chronology"}, false},
		{"mode-specific matching mode", "digest", Request{Mode: "issue-spotting"}, true},
		{"mode-specific case-insensitive", "digest", Request{Mode: "Issue-Spotting"}, true},
		{"no checks ever", "lookup", Request{VerifyRequested: true, Mode: "issue-spotting"}, false},
	}
	for _, tc := range cases {
		if got := ProfileFor(tc.command).citationChecksEnabled(tc.req); got != tc.want {
			t.Errorf("%s: citationChecksEnabled = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestContentCheckGating(t *testing.T) {
	cases := []struct {
		name    string
		command string
		req     Request
		want    bool
	}{
		{"always", "extract-facts", Request{}, true},
		{"on-flag without flag", "strategize", Request{}, false},
		{"on-flag with flag", "strategize", Request{VerifyRequested: true}, true},
		{"mode-specific matching", "digest", Request{Mode: "issue-spotting"}, true},
		{"mode-specific non-matching", "digest", Request{Mode: "chronology"}, false},
		{"never", "brainstorm", Request{VerifyRequested: true}, false},
	}
	for _, tc := range cases {
		if got := ProfileFor(tc.command).contentChecksEnabled(tc.req); got != tc.want {
			t.Errorf("%s: contentChecksEnabled = %v, want %v", tc.name, got, tc.want)
		}
	}
}
