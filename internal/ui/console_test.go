package ui

import (
	"strings"
	"testing"
)

func TestFormatMessage_NoColorsWhenNotTerminal(t *testing.T) {
	console := &Console{useColors: false}

	message := console.formatMessage(StyleError, "something broke")
	if message != "something broke" {
		t.Errorf("Expected plain message without colors, got %q", message)
	}
}

func TestFormatMessage_ColorsApplied(t *testing.T) {
	console := &Console{useColors: true}

	tests := []struct {
		style ConsoleStyle
		color string
	}{
		{StyleError, colorRed + colorBold},
		{StyleWarning, colorYellow},
		{StyleSuccess, colorGreen},
		{StyleInfo, colorBlue},
		{StyleStage, colorCyan + colorBold},
	}

	for _, tt := range tests {
		message := console.formatMessage(tt.style, "msg")
		if !strings.HasPrefix(message, tt.color) || !strings.HasSuffix(message, colorReset) {
			t.Errorf("Style %d: expected %q wrapped in color codes, got %q", tt.style, "msg", message)
		}
	}

	if console.formatMessage(StyleNormal, "msg") != "msg" {
		t.Error("StyleNormal must not add color codes")
	}
}

func TestFormatErrorMessage(t *testing.T) {
	console := NewConsole()

	full := console.FormatErrorMessage("context line", "the cause", "try this")
	for _, want := range []string{"context line", "Cause: the cause", "Suggestion: try this"} {
		if !strings.Contains(full, want) {
			t.Errorf("Expected %q in formatted message, got %q", want, full)
		}
	}

	short := console.FormatErrorMessage("only context", "", "")
	if short != "only context" {
		t.Errorf("Expected bare context, got %q", short)
	}
}
