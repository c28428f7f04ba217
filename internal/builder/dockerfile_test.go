package builder

import (
	"strings"
	"testing"
	"time"

	"dockhand/pkg/recipe"
)

func testRecipe() *recipe.Recipe {
	rec := &recipe.Recipe{
		APIVersion: "v1",
		Kind:       "Recipe",
		Metadata:   recipe.Metadata{Name: "search-dashboard"},
		Spec: recipe.Spec{
			Source: recipe.Source{Path: "."},
			Image:  recipe.Image{Base: "python:3.11-slim"},
			Runtime: recipe.Runtime{
				Dirs: []string{"tokens", ".streamlit"},
			},
		},
	}
	rec.ApplyDefaults()
	return rec
}

func TestRenderDockerfile_LayerOrder(t *testing.T) {
	out := RenderDockerfile(testRecipe())

	// The manifest must be copied and installed before the source so that
	// code-only changes keep the dependency layer cached.
	ordered := []string{
		"FROM python:3.11-slim",
		"WORKDIR /app",
		"apt-get install -y --no-install-recommends curl",
		"COPY requirements.txt ./",
		"RUN pip install --no-cache-dir -r requirements.txt",
		"COPY . .",
		"RUN mkdir -p tokens .streamlit",
		"EXPOSE 8501",
		"HEALTHCHECK",
		`CMD ["python", "start.py"]`,
	}

	pos := -1
	for _, want := range ordered {
		idx := strings.Index(out, want)
		if idx < 0 {
			t.Fatalf("Rendered Dockerfile missing %q:\n%s", want, out)
		}
		if idx < pos {
			t.Errorf("Dockerfile instruction %q out of order:\n%s", want, out)
		}
		pos = idx
	}
}

func TestRenderDockerfile_Healthcheck(t *testing.T) {
	out := RenderDockerfile(testRecipe())

	if !strings.Contains(out, "--interval=30s --timeout=10s --start-period=1m0s --retries=3") {
		t.Errorf("Healthcheck parameters not rendered from recipe:\n%s", out)
	}
	if !strings.Contains(out, "curl -f http://localhost:${PORT:-8501}/_stcore/health || exit 1") {
		t.Errorf("Probe command must target the PORT override with an 8501 default:\n%s", out)
	}
}

func TestRenderDockerfile_CustomProbeCommand(t *testing.T) {
	rec := testRecipe()
	rec.Spec.Health.Command = "dockhand probe --port 8501"

	out := RenderDockerfile(rec)

	if strings.Contains(out, "apt-get install") {
		t.Errorf("Probe tool layer should be omitted when the probe command is overridden:\n%s", out)
	}
	if !strings.Contains(out, "CMD dockhand probe --port 8501 || exit 1") {
		t.Errorf("Custom probe command not rendered:\n%s", out)
	}
}

func TestRenderDockerfile_CustomEndpointAndPort(t *testing.T) {
	rec := testRecipe()
	rec.Spec.Runtime.Port = 9000
	rec.Spec.Health.Endpoint = "/healthz"
	rec.Spec.Health.Interval = 15 * time.Second

	out := RenderDockerfile(rec)

	if !strings.Contains(out, "EXPOSE 9000") {
		t.Errorf("Recipe port not exposed:\n%s", out)
	}
	if !strings.Contains(out, "${PORT:-9000}/healthz") {
		t.Errorf("Probe URL not built from recipe port and endpoint:\n%s", out)
	}
	if !strings.Contains(out, "--interval=15s") {
		t.Errorf("Custom interval not rendered:\n%s", out)
	}
}
