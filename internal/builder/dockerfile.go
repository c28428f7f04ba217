package builder

import (
	"fmt"
	"strings"

	"dockhand/pkg/recipe"
)

// probeToolLayer installs the network probe utility used by the image-side
// healthcheck and purges the package caches to keep the layer small.
const probeToolLayer = `RUN apt-get update && \
    apt-get install -y --no-install-recommends curl && \
    rm -rf /var/lib/apt/lists/*`

// ProbeCommand is the shell command the container engine runs as the
// healthcheck. The default shells out to curl so the PORT override is
// resolved at probe time, not at build time.
func ProbeCommand(rec *recipe.Recipe) string {
	if rec.Spec.Health.Command != "" {
		return rec.Spec.Health.Command
	}
	return fmt.Sprintf("curl -f http://localhost:${PORT:-%d}%s", rec.Spec.Runtime.Port, rec.Spec.Health.Endpoint)
}

// RenderDockerfile turns a recipe into Dockerfile content. The layer order is
// deliberate: the dependency manifest is copied and installed before the rest
// of the source so that code-only changes do not invalidate the dependency
// layer cache.
func RenderDockerfile(rec *recipe.Recipe) string {
	spec := &rec.Spec
	var b strings.Builder

	fmt.Fprintf(&b, "FROM %s\n\n", spec.Image.Base)
	fmt.Fprintf(&b, "WORKDIR %s\n\n", spec.Image.Workdir)

	probeCmd := ProbeCommand(rec)
	if spec.Health.Command == "" {
		b.WriteString(probeToolLayer)
		b.WriteString("\n\n")
	}

	fmt.Fprintf(&b, "COPY %s ./\n", spec.Image.Manifest)
	fmt.Fprintf(&b, "RUN pip install --no-cache-dir -r %s\n\n", spec.Image.Manifest)

	b.WriteString("COPY . .\n\n")

	if len(spec.Runtime.Dirs) > 0 {
		fmt.Fprintf(&b, "RUN mkdir -p %s\n\n", strings.Join(spec.Runtime.Dirs, " "))
	}

	fmt.Fprintf(&b, "EXPOSE %d\n\n", spec.Runtime.Port)

	fmt.Fprintf(&b, "HEALTHCHECK --interval=%s --timeout=%s --start-period=%s --retries=%d \\\n    CMD %s || exit 1\n\n",
		spec.Health.Interval, spec.Health.Timeout, spec.Health.StartPeriod, spec.Health.Retries, probeCmd)

	fmt.Fprintf(&b, "CMD [%s]\n", quoteJSONForm(spec.Runtime.Entrypoint))

	return b.String()
}

// quoteJSONForm renders an exec-form command list: "python", "start.py".
func quoteJSONForm(cmd []string) string {
	quoted := make([]string, len(cmd))
	for i, c := range cmd {
		quoted[i] = fmt.Sprintf("%q", c)
	}
	return strings.Join(quoted, ", ")
}
