package domsnapshot

import (
	"strings"
	"testing"
)

func TestClean_RemovesScriptStyleAndComments(t *testing.T) {
	in := `
<body>
    <!-- build 42 -->
    <div id="main">Hello</div>
    <script>alert("hi")</script>
    <style>.x {}</style>
</body>`

	out := Clean(in, nil)

	if strings.Contains(out, "<script") || strings.Contains(out, "<style") {
		t.Errorf("script/style must be removed, got: %s", out)
	}
	if strings.Contains(out, "build 42") {
		t.Errorf("comments must be removed, got: %s", out)
	}
	if !strings.Contains(out, `id="main"`) {
		t.Errorf("regular elements must be kept, got: %s", out)
	}
}

func TestClean_KeepsTestIDsAndState(t *testing.T) {
	in := `<body>
<button data-testid="button-resume-production" data-tracking="x" disabled="" aria-disabled="true" onclick="go()" style="color:red">Retomar</button>
</body>`

	out := Clean(in, nil)

	for _, want := range []string{`data-testid="button-resume-production"`, `disabled=""`, `aria-disabled="true"`, "Retomar"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in %s", want, out)
		}
	}
	for _, unwanted := range []string{"data-tracking", "onclick", "style="} {
		if strings.Contains(out, unwanted) {
			t.Errorf("did not expect %q in %s", unwanted, out)
		}
	}
}

func TestClean_Truncates(t *testing.T) {
	in := "<body><p>" + strings.Repeat("a", 200) + "</p></body>"
	cfg := DefaultCleanConfig
	cfg.MaxOutputSize = 50

	out := Clean(in, &cfg)
	if !strings.HasSuffix(out, "<!-- truncated -->") {
		t.Errorf("expected truncation marker, got: %s", out)
	}
}

func TestClean_StartsWithBody(t *testing.T) {
	out := Clean("<html><head><title>x</title></head><body><h2>Causas de Parada</h2></body></html>", nil)
	if !strings.HasPrefix(out, "<body>") {
		t.Errorf("expected body root, got: %s", out)
	}
	if strings.Contains(out, "<title>") {
		t.Errorf("head content must not leak into snapshot: %s", out)
	}
}
