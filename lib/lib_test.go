package lib

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSplitOnce(t *testing.T) {
	type test struct {
		input string
		head  string
		tail  string
		err   bool
	}
	tests := []test{
		{"a", "", "", true},
		{"a=b", "a", "b", false},
		{"a=b=c", "a", "b=c", false},
		{"=b", "", "b", false},
	}
	for _, test := range tests {
		head, tail, err := SplitOnce(test.input, "=")
		if test.err {
			if err == nil {
				t.Errorf("\nexpected error for: %s", test.input)
				return
			}
			continue
		}
		if err != nil {
			t.Error(err)
			return
		}
		if head != test.head {
			t.Errorf("\ngot:\n%s\nwant:\n%s\n", head, test.head)
			return
		}
		if tail != test.tail {
			t.Errorf("\ngot:\n%s\nwant:\n%s\n", tail, test.tail)
			return
		}
	}
}

func TestIsDigit(t *testing.T) {
	type test struct {
		input  string
		output bool
	}
	tests := []test{
		{"512", true},
		{"0", true},
		{"", false},
		{"5a", false},
		{"-5", false},
	}
	for _, test := range tests {
		output := IsDigit(test.input)
		if output != test.output {
			t.Errorf("\ngot: %v want: %v for: %q", output, test.output, test.input)
			return
		}
	}
}

func TestPreviewString(t *testing.T) {
	if PreviewString(false) != "" {
		t.Error("expected empty string")
		return
	}
	if PreviewString(true) != "preview: " {
		t.Error("expected preview prefix")
		return
	}
}

func TestExists(t *testing.T) {
	dir := t.TempDir()
	pth := filepath.Join(dir, "f")
	if Exists(pth) {
		t.Error("expected missing")
		return
	}
	err := os.WriteFile(pth, []byte("x"), 0644)
	if err != nil {
		t.Error(err)
		return
	}
	if !Exists(pth) {
		t.Error("expected exists")
		return
	}
}

func TestConfirmRead(t *testing.T) {
	type test struct {
		input  string
		output bool
	}
	tests := []test{
		{"yes\n", true},
		{"YES\n", true},
		{"Yes\n", true},
		{"  yes  \n", true},
		{"yes", true},
		{"no\n", false},
		{"y\n", false},
		{"\n", false},
		{"", false},
		{"yess\n", false},
	}
	for _, test := range tests {
		output, err := confirmRead(strings.NewReader(test.input))
		if err != nil {
			t.Error(err)
			return
		}
		if output != test.output {
			t.Errorf("\ngot: %v want: %v for: %q", output, test.output, test.input)
			return
		}
	}
}
