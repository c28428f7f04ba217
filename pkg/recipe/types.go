package recipe

import "time"

// Recipe is the root object that holds the entire deployment configuration
// for a dockhand execution. It's populated by parsing the user's recipe
// YAML file.
type Recipe struct {
	APIVersion string   `yaml:"apiVersion" validate:"required"`
	Kind       string   `yaml:"kind" validate:"required,eq=Recipe"`
	Metadata   Metadata `yaml:"metadata" validate:"required"`
	Spec       Spec     `yaml:"spec" validate:"required"`
}

// Metadata contains deployment-level metadata.
type Metadata struct {
	Name        string            `yaml:"name" validate:"required"`
	Description string            `yaml:"description"`
	Labels      map[string]string `yaml:"labels,omitempty"`
}

// Spec contains the detailed specification of the deployment.
type Spec struct {
	Source  Source  `yaml:"source"`
	Image   Image   `yaml:"image"`
	Runtime Runtime `yaml:"runtime"`
	Health  Health  `yaml:"health"`
	Notify  *Notify `yaml:"notify,omitempty"`
}

// Source describes where the application payload comes from. Exactly one of
// Path or Git must be set; the parser enforces this.
type Source struct {
	Path string     `yaml:"path"`
	Git  *GitSource `yaml:"git,omitempty"`
}

// GitSource configures cloning the application source from a git remote.
type GitSource struct {
	URL string `yaml:"url" validate:"required,url"`
	Ref string `yaml:"ref"`
}

// Image describes the image layers to produce at build time.
type Image struct {
	Base     string `yaml:"base" validate:"required"`
	Workdir  string `yaml:"workdir"`
	Manifest string `yaml:"manifest"`
	Tag      string `yaml:"tag"`
}

// Runtime describes the container's runtime contract: the port the
// application listens on, directories it expects to be writable, the entry
// command, and extra environment.
type Runtime struct {
	Port       int               `yaml:"port" validate:"omitempty,min=1,max=65535"`
	Dirs       []string          `yaml:"dirs,omitempty"`
	Entrypoint []string          `yaml:"entrypoint,omitempty"`
	Env        map[string]string `yaml:"env,omitempty"`
	Volumes    []VolumeMount     `yaml:"volumes,omitempty"`
}

// VolumeMount binds a host path over one of the runtime directories when the
// operator wants its contents to persist across container restarts.
type VolumeMount struct {
	Host      string `yaml:"host" validate:"required"`
	Container string `yaml:"container" validate:"required"`
}

// Health configures the periodic health probe registered on the image and
// run by the out-of-process monitor.
type Health struct {
	Endpoint    string        `yaml:"endpoint"`
	Command     string        `yaml:"command"`
	Interval    time.Duration `yaml:"interval" validate:"omitempty,gt=0"`
	Timeout     time.Duration `yaml:"timeout" validate:"omitempty,gt=0"`
	StartPeriod time.Duration `yaml:"startPeriod" validate:"omitempty,gte=0"`
	Retries     int           `yaml:"retries" validate:"omitempty,min=1"`
}

// Notify configures optional deployment-status reporting on health
// transitions. Requires a git source so transitions can be attached to the
// deployed commit.
type Notify struct {
	Provider    string `yaml:"provider" validate:"required,oneof=gitlab"`
	URL         string `yaml:"url" validate:"required,url"`
	Project     string `yaml:"project" validate:"required"`
	Environment string `yaml:"environment" validate:"required"`
}

// Defaults for fields the recipe may omit. The port default matches the
// dashboard convention the health endpoint path comes from.
const (
	DefaultPort        = 8501
	DefaultWorkdir     = "/app"
	DefaultManifest    = "requirements.txt"
	DefaultEndpoint    = "/_stcore/health"
	DefaultInterval    = 30 * time.Second
	DefaultTimeout     = 10 * time.Second
	DefaultStartPeriod = 60 * time.Second
	DefaultRetries     = 3
)

// ApplyDefaults fills omitted fields with their documented defaults. It is
// called once by the parser after a successful unmarshal, so the rest of the
// program can treat the recipe as fully resolved.
func (r *Recipe) ApplyDefaults() {
	if r.Spec.Image.Workdir == "" {
		r.Spec.Image.Workdir = DefaultWorkdir
	}
	if r.Spec.Image.Manifest == "" {
		r.Spec.Image.Manifest = DefaultManifest
	}
	if r.Spec.Image.Tag == "" {
		r.Spec.Image.Tag = r.Metadata.Name + ":latest"
	}
	if r.Spec.Runtime.Port == 0 {
		r.Spec.Runtime.Port = DefaultPort
	}
	if len(r.Spec.Runtime.Entrypoint) == 0 {
		r.Spec.Runtime.Entrypoint = []string{"python", "start.py"}
	}
	if r.Spec.Health.Endpoint == "" {
		r.Spec.Health.Endpoint = DefaultEndpoint
	}
	if r.Spec.Health.Interval == 0 {
		r.Spec.Health.Interval = DefaultInterval
	}
	if r.Spec.Health.Timeout == 0 {
		r.Spec.Health.Timeout = DefaultTimeout
	}
	if r.Spec.Health.StartPeriod == 0 {
		r.Spec.Health.StartPeriod = DefaultStartPeriod
	}
	if r.Spec.Health.Retries == 0 {
		r.Spec.Health.Retries = DefaultRetries
	}
}
