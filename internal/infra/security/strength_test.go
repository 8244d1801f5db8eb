package security

import "testing"

func TestEvaluatePasswordStrength(t *testing.T) {
	cases := []struct {
		name     string
		password string
		strong   bool
		score    int
		class    StrengthClass
	}{
		{"all rules", "TestPassword123!", true, 100, StrengthStrong},
		{"missing special", "TestPassword123", false, 90, StrengthStrong},
		{"missing digit and special", "TestPassword", false, 75, StrengthMedium},
		{"short but varied", "Tp1!", false, 75, StrengthMedium},
		{"lowercase only", "password", false, 50, StrengthMedium},
		{"digits only", "12345678", false, 40, StrengthWeak},
		{"empty", "", false, 0, StrengthWeak},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			report := EvaluatePasswordStrength(tc.password)
			if report.IsStrong != tc.strong {
				t.Fatalf("IsStrong = %v, want %v", report.IsStrong, tc.strong)
			}
			if report.Score != tc.score {
				t.Fatalf("Score = %d, want %d", report.Score, tc.score)
			}
			if report.Classification != tc.class {
				t.Fatalf("Classification = %s, want %s", report.Classification, tc.class)
			}
		})
	}
}

func TestEvaluatePasswordStrengthSuggestions(t *testing.T) {
	report := EvaluatePasswordStrength("password")
	if len(report.Suggestions) != 3 {
		t.Fatalf("expected 3 suggestions, got %v", report.Suggestions)
	}

	report = EvaluatePasswordStrength("TestPassword123!")
	for _, s := range report.Suggestions {
		switch s {
		case "use at least 8 characters", "add an uppercase letter",
			"add a lowercase letter", "add a digit", "add a special character":
			t.Fatalf("unexpected rule suggestion for strong password: %s", s)
		}
	}
}
