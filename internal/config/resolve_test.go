package config

import "testing"

func TestResolveValue(t *testing.T) {
	t.Setenv("SQL2PYSPARK_TEST_SECRET", "s3cret")
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"literal", "sk-literal", "sk-literal"},
		{"dollar var", "$SQL2PYSPARK_TEST_SECRET", "s3cret"},
		{"braced var", "${SQL2PYSPARK_TEST_SECRET}", "s3cret"},
		{"command", "$(echo from-shell)", "from-shell"},
		{"trimmed", "  sk-literal  ", "sk-literal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveValue(tt.input)
			if err != nil {
				t.Fatalf("ResolveValue(%q): %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ResolveValue(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestResolveValueCommandFailure(t *testing.T) {
	if _, err := ResolveValue("$(exit 3)"); err == nil {
		t.Fatal("expected error from failing command")
	}
}

func TestOnePasswordArgs(t *testing.T) {
	args, err := onePasswordArgs("op://Private/OpenAI/credential?account=me.1password.com")
	if err != nil {
		t.Fatalf("onePasswordArgs: %v", err)
	}
	want := []string{"read", "op://Private/OpenAI/credential", "--account", "me.1password.com"}
	if len(args) != len(want) {
		t.Fatalf("args = %q", args)
	}
	for i := range want {
		if args[i] != want[i] {
			t.Errorf("args[%d] = %q, want %q", i, args[i], want[i])
		}
	}
}
