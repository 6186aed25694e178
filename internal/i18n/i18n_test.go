package i18n

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func initLang(t *testing.T, lang string) context.Context {
	t.Helper()
	if err := Init(lang); err != nil {
		t.Fatalf("Init(%q): %v", lang, err)
	}
	return WithLocalizer(context.Background(), NewLocalizer(lang))
}

func TestTranslateEnglish(t *testing.T) {
	ctx := initLang(t, "en")

	if got := T(ctx, "AppTitle"); got != "Exam Trainer" {
		t.Errorf("T(AppTitle) = %q, want 'Exam Trainer'", got)
	}
	if got := T(ctx, "ScoreComplete"); got != "The answer is complete and well structured" {
		t.Errorf("T(ScoreComplete) = %q", got)
	}
}

func TestTranslateRussian(t *testing.T) {
	ctx := initLang(t, "ru")

	if got := T(ctx, "ScoreTooShort"); got != "Ответ слишком короткий, не хватает объяснений" {
		t.Errorf("T(ScoreTooShort) = %q", got)
	}
	if got := T(ctx, "ScoreSuperficial"); got != "Ответ поверхностный, требуется объяснение" {
		t.Errorf("T(ScoreSuperficial) = %q", got)
	}
}

func TestPluralTranslation(t *testing.T) {
	ctx := initLang(t, "en")

	if got := Tp(ctx, "AnswersGiven", 1); got != "1 answer given." {
		t.Errorf("Tp(AnswersGiven, 1) = %q, want '1 answer given.'", got)
	}
	if got := Tp(ctx, "AnswersGiven", 5); got != "5 answers given." {
		t.Errorf("Tp(AnswersGiven, 5) = %q, want '5 answers given.'", got)
	}

	ctx = initLang(t, "ru")
	if got := Tp(ctx, "AnswersGiven", 3); got != "Дано 3 ответа." {
		t.Errorf("Tp(AnswersGiven, 3) = %q, want 'Дано 3 ответа.'", got)
	}
	if got := Tp(ctx, "AnswersGiven", 5); got != "Дано 5 ответов." {
		t.Errorf("Tp(AnswersGiven, 5) = %q, want 'Дано 5 ответов.'", got)
	}
}

func TestTemplateDataTranslation(t *testing.T) {
	ctx := initLang(t, "en")

	got := Td(ctx, "BlockLimitReached", map[string]any{"Block": "A"})
	if got != "Answer limit for block A reached" {
		t.Errorf("Td(BlockLimitReached, Block=A) = %q", got)
	}
}

func TestMissingKey(t *testing.T) {
	ctx := initLang(t, "en")

	if got := T(ctx, "NonExistentKey"); got != "NonExistentKey" {
		t.Errorf("T(NonExistentKey) = %q, want 'NonExistentKey'", got)
	}
}

func TestTAll(t *testing.T) {
	ctx := initLang(t, "en")

	got := TAll(ctx, []string{"SessionExpired", "NonExistentKey"})
	if len(got) != 2 || got[0] != "Time is up" || got[1] != "NonExistentKey" {
		t.Errorf("TAll = %v", got)
	}
}

func TestFallbackWithoutLocalizer(t *testing.T) {
	initLang(t, "ru")

	if got := T(context.Background(), "SessionExpired"); got != "Время вышло" {
		t.Errorf("T without localizer = %q, want default language text", got)
	}
}

func TestMiddlewareAcceptLanguage(t *testing.T) {
	if err := Init("en"); err != nil {
		t.Fatalf("Init: %v", err)
	}

	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"no header uses default", "", "Time is up"},
		{"russian preferred", "ru-RU,ru;q=0.9,en;q=0.5", "Время вышло"},
		{"unsupported falls back", "de-DE", "Time is up"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			h := Middleware("en")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = T(r.Context(), "SessionExpired")
			}))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Accept-Language", tt.header)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestInitRejectsBadTag(t *testing.T) {
	if err := Init("not a language!"); err == nil {
		t.Error("expected error for invalid language tag")
	}
}
