package branches

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/google/go-cmp/cmp"
)

func TestShortName(t *testing.T) {
	tests := []struct {
		ref    string
		want   string
		wantOK bool
	}{
		{"refs/heads/main", "main", true},
		{"refs/heads/team/feature-x", "team/feature-x", true},
		{"refs/tags/v1.0", "v1.0", true},
		{"refs/pull/12/head", "12/head", true},
		{"refs/heads/a//b", "a//b", true},
		{"refs", "", false},
		{"refs/heads", "", false},
		{"refs/heads/", "", false},
		{"refs//main", "", false},
		{"notarefs/x", "", false},
		{"notarefs/heads/x", "", false},
		{"", "", false},
		{"refs/heads/foo\n", "foo", true},
		{"refs/heads/foo\r\n", "foo", true},
		{"refs/heads/foo\r", "foo", true},
		{"refs/heads/foo\n\n", "", false},
		{"refs/heads/a\rb", "", false},
		{"refs/he\nads/x", "x", true},
	}
	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			got, ok := ShortName(tt.ref)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("ShortName(%q) = (%q, %t), want (%q, %t)", tt.ref, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"release/1.2!beta", "release_1_2_beta"},
		{"foo", "foo"},
		{"Feature_X-9", "Feature_X-9"},
		{"team/feature x", "team_feature_x"},
		{"ünïcode", "_n_code"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := Sanitize(tt.in); got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSanitizeProperties(t *testing.T) {
	inputs := []string{
		"release/1.2!beta", "a b\tc", "héllo/wörld", "日本語", "x~y^z{}", "--__--", "refs/heads/🙂",
	}
	allowed := func(r rune) bool {
		return r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '_' || r == '-'
	}
	for _, in := range inputs {
		out := Sanitize(in)
		if utf8.RuneCountInString(out) != utf8.RuneCountInString(in) {
			t.Errorf("Sanitize(%q) = %q changes length", in, out)
		}
		inRunes, outRunes := []rune(in), []rune(out)
		for i, r := range outRunes {
			if !allowed(r) {
				t.Errorf("Sanitize(%q) contains disallowed rune %q", in, r)
			}
			if allowed(inRunes[i]) && inRunes[i] != r {
				t.Errorf("Sanitize(%q) changed allowed rune at %d", in, i)
			}
		}
	}
}

func TestSelect(t *testing.T) {
	builder := DescriptorBuilderFunc(func(branch string) any {
		return map[string]string{"url": "https://foohub.com/repo.git", "branch": branch}
	})

	got, err := Select([]string{"refs/heads/foo", "refs/heads/fuu"}, builder)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}

	want := []BranchContext{
		{
			FullRefName:         "refs/heads/foo",
			BranchName:          "foo",
			SanitizedBranchName: "foo",
			Repo:                map[string]string{"url": "https://foohub.com/repo.git", "branch": "foo"},
		},
		{
			FullRefName:         "refs/heads/fuu",
			BranchName:          "fuu",
			SanitizedBranchName: "fuu",
			Repo:                map[string]string{"url": "https://foohub.com/repo.git", "branch": "fuu"},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Select() mismatch (-want +got):\n%s", diff)
	}
}

func TestSelectPreservesOrder(t *testing.T) {
	refs := []string{"refs/heads/z", "refs/tags/a", "refs/heads/team/m", "refs/heads/z"}
	got, err := Select(refs, nil)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(got) != len(refs) {
		t.Fatalf("expected %d contexts, got %d", len(refs), len(got))
	}
	for i, ctx := range got {
		if ctx.FullRefName != refs[i] {
			t.Errorf("context %d: full ref %q, want %q", i, ctx.FullRefName, refs[i])
		}
	}
	if got[2].SanitizedBranchName != "team_m" {
		t.Errorf("expected sanitized team_m, got %q", got[2].SanitizedBranchName)
	}
}

func TestSelectBuildsDescriptorPerBranch(t *testing.T) {
	var calls []string
	builder := DescriptorBuilderFunc(func(branch string) any {
		calls = append(calls, branch)
		return branch
	})
	if _, err := Select([]string{"refs/heads/a", "refs/heads/b/c"}, builder); err != nil {
		t.Fatalf("Select: %v", err)
	}
	if diff := cmp.Diff([]string{"a", "b/c"}, calls); diff != "" {
		t.Errorf("builder calls mismatch (-want +got):\n%s", diff)
	}
}

func TestSelectEmpty(t *testing.T) {
	got, err := Select(nil, nil)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil result, got %#v", got)
	}
}

// A malformed name anywhere in the input aborts the whole selection rather
// than skipping that entry.
func TestSelectFailsFastOnMalformedRef(t *testing.T) {
	for _, bad := range []string{"refs", "notarefs/x"} {
		t.Run(bad, func(t *testing.T) {
			got, err := Select([]string{"refs/heads/ok", bad, "refs/heads/later"}, nil)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if got != nil {
				t.Errorf("expected no partial result, got %#v", got)
			}
			if !errors.Is(err, ErrMalformedRef) {
				t.Errorf("expected errors.Is(err, ErrMalformedRef), got %v", err)
			}
			var mre *MalformedRefError
			if !errors.As(err, &mre) {
				t.Fatalf("expected *MalformedRefError, got %T", err)
			}
			if mre.Ref != bad {
				t.Errorf("error names %q, want %q", mre.Ref, bad)
			}
			if !strings.Contains(err.Error(), bad) {
				t.Errorf("error message %q does not mention %q", err.Error(), bad)
			}
		})
	}
}

func TestSelectStopsBuildingAfterMalformedRef(t *testing.T) {
	var calls int
	builder := DescriptorBuilderFunc(func(string) any {
		calls++
		return nil
	})
	_, _ = Select([]string{"refs/heads/a", "bad", "refs/heads/b"}, builder)
	if calls != 1 {
		t.Errorf("expected builder to run once before the failure, ran %d times", calls)
	}
}

func TestSelectIgnoresTrailingLineTerminator(t *testing.T) {
	got, err := Select([]string{"refs/heads/foo\n", "refs/heads/dev\r"}, nil)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	want := []BranchContext{
		{FullRefName: "refs/heads/foo\n", BranchName: "foo", SanitizedBranchName: "foo"},
		{FullRefName: "refs/heads/dev\r", BranchName: "dev", SanitizedBranchName: "dev"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Select() mismatch (-want +got):\n%s", diff)
	}
}
