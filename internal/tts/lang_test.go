package tts

import (
	"testing"

	"github.com/nganlinh4/voicepipe/internal/config"
)

func TestTargetLangCode(t *testing.T) {
	cases := []struct {
		text string
		want string
	}{
		{"Xin chào các bạn, hôm nay chúng ta cùng học tiếng Việt nhé", "vi"},
		{"안녕하세요 오늘 날씨가 정말 좋네요 같이 산책할까요", "ko"},
		{"今日はとても良い天気ですね、一緒に散歩しませんか", "ja"},
		{"The quick brown fox jumps over the lazy dog near the river bank", "en"},
	}
	for _, c := range cases {
		if got := TargetLangCode(c.text); got != c.want {
			t.Errorf("TargetLangCode(%q): got %q, want %q", c.text, got, c.want)
		}
	}
}

func TestTargetLangCode_FallsBackToEnglish(t *testing.T) {
	if got := TargetLangCode(""); got != "en" {
		t.Errorf("empty text: got %q, want en", got)
	}
	if got := TargetLangCode("123 456"); got != "en" {
		t.Errorf("digits only: got %q, want en", got)
	}
}

func TestInstructionForText_MatchesCondition(t *testing.T) {
	conditions := []config.LanguageCondition{
		{Code: "vie", Instruction: "Read with a northern Vietnamese accent."},
		{Code: "kor", Instruction: "Read in a formal register."},
	}

	got := InstructionForText(
		"Xin chào các bạn, hôm nay chúng ta cùng học tiếng Việt nhé", conditions)
	if got != "Read with a northern Vietnamese accent." {
		t.Errorf("Vietnamese text: got %q", got)
	}
}

func TestInstructionForText_CaseInsensitiveCode(t *testing.T) {
	conditions := []config.LanguageCondition{
		{Code: "VIE", Instruction: "accent hint"},
	}
	got := InstructionForText(
		"Xin chào các bạn, hôm nay chúng ta cùng học tiếng Việt nhé", conditions)
	if got != "accent hint" {
		t.Errorf("uppercase condition code should still match, got %q", got)
	}
}

func TestInstructionForText_NoMatch(t *testing.T) {
	conditions := []config.LanguageCondition{
		{Code: "kor", Instruction: "formal register"},
	}
	got := InstructionForText(
		"The quick brown fox jumps over the lazy dog near the river bank", conditions)
	if got != "" {
		t.Errorf("unmatched language should yield empty instruction, got %q", got)
	}
}

func TestInstructionForText_EmptyConditions(t *testing.T) {
	if got := InstructionForText("hello world, how are you doing today", nil); got != "" {
		t.Errorf("no conditions should yield empty instruction, got %q", got)
	}
}
