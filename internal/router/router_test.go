package router

import "testing"

func TestSelectModels_CodeTaskUsesTaskModels(t *testing.T) {
	r := New(StaticCredentials{"anthropic": true, "deepseek": true, "openai": true}, false)
	models := r.SelectModels("please debug this python function", ModeChat, 5, nil)
	if len(models) == 0 || models[0] != "claude-3-5-sonnet-20241022" {
		t.Errorf("SelectModels() = %v, want code task candidates starting with claude-3-5-sonnet-20241022", models)
	}
}

func TestSelectModels_FastModeBypassesTaskDetection(t *testing.T) {
	r := New(StaticCredentials{"openai": true, "anthropic": true, "groq": true}, false)
	models := r.SelectModels("please debug this python function", ModeFast, 5, nil)
	if len(models) == 0 || models[0] != "gpt-4o-mini" {
		t.Errorf("SelectModels() = %v, want fast-mode candidates", models)
	}
}

func TestSelectModels_ExcludeProvider(t *testing.T) {
	r := New(StaticCredentials{"anthropic": true, "openai": true, "deepseek": true}, false)
	models := r.SelectModels("hello there", ModeChat, 5, []string{"anthropic"})
	for _, m := range models {
		if ProviderFor(m) == "anthropic" {
			t.Errorf("SelectModels() returned excluded provider model %q", m)
		}
	}
}

func TestSelectModels_UnavailableFallsBackToGPT4o(t *testing.T) {
	r := New(StaticCredentials{"openai": true}, false)
	models := r.SelectModels("write me a poem about the sea", ModeChat, 5, nil)
	if len(models) != 1 || models[0] != "gpt-4o" {
		t.Errorf("SelectModels() = %v, want [gpt-4o]", models)
	}
}

func TestSelectModels_DevelopmentTreatsAllAvailable(t *testing.T) {
	r := New(StaticCredentials{}, true)
	models := r.SelectModels("hello", ModeChat, 5, nil)
	if len(models) == 0 {
		t.Error("SelectModels() in development mode returned empty")
	}
}

func TestSelectModels_TruncatesToMaxModels(t *testing.T) {
	r := New(StaticCredentials{"anthropic": true, "openai": true, "deepseek": true}, false)
	models := r.SelectModels("hello", ModeChat, 1, nil)
	if len(models) != 1 {
		t.Errorf("SelectModels() len = %d, want 1", len(models))
	}
}

func TestSelectModels_DegenerateFallbackDeterministic(t *testing.T) {
	r := New(StaticCredentials{}, false)
	m1 := r.SelectModels("hello", ModeChat, 5, nil)
	m2 := r.SelectModels("hello", ModeChat, 5, nil)
	if len(m1) != 1 || len(m2) != 1 || m1[0] != m2[0] {
		t.Errorf("degenerate fallback not deterministic: %v vs %v", m1, m2)
	}
}

func TestSelectModels_NonEmptyAndBounded(t *testing.T) {
	r := New(StaticCredentials{"openai": true, "anthropic": true}, false)
	modes := []Mode{ModeChat, ModeCode, ModeReasoning, ModeSearchRAG, ModeMultiModel, ModeFast, ModeCreative}
	for _, mode := range modes {
		models := r.SelectModels("some prompt here", mode, 3, nil)
		if len(models) == 0 {
			t.Errorf("mode %s: SelectModels() returned empty", mode)
		}
		if len(models) > 3 {
			t.Errorf("mode %s: SelectModels() returned %d > max_models=3", mode, len(models))
		}
	}
}

func TestProviderFor_UnknownModelDefaultsOpenAI(t *testing.T) {
	if ProviderFor("some-unknown-model") != "openai" {
		t.Error("ProviderFor() for unknown model should default to openai")
	}
}

func TestDetectTask_Math(t *testing.T) {
	if detectTask("solve this quadratic equation for x") != TaskMath {
		t.Error("expected TaskMath")
	}
}

func TestDetectTask_General(t *testing.T) {
	if detectTask("how's the weather today") != TaskGeneral {
		t.Error("expected TaskGeneral")
	}
}
