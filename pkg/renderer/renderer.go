package renderer

import (
	"embed"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	libtemplate "github.com/slurmsync-project/slurmsync/pkg/lib/template"
	"github.com/slurmsync-project/slurmsync/pkg/models"
)

//go:embed templates/*.tmpl
var embeddedTemplates embed.FS

//go:embed assets/slurm.sh assets/slurm.csh
var embeddedAssets embed.FS

const (
	ArtifactMain   = "main"
	ArtifactGres   = "gres"
	ArtifactCgroup = "cgroup"
	ArtifactEnvSh  = "env-sh"
	ArtifactEnvCsh = "env-csh"
)

const (
	configMode = 0o644
	scriptMode = 0o755
)

// templateFuncs is the fixed function map available to templates, including
// operator-provided overrides. Everything in it is deterministic; anything
// time- or environment-dependent would break byte-stable re-renders.
var templateFuncs = template.FuncMap{
	"join":  strings.Join,
	"lower": strings.ToLower,
	"upper": strings.ToUpper,
}

type Params struct {
	// OutputDir receives the scheduler configuration files.
	OutputDir string
	// EnvDir receives the login-shell environment scripts.
	EnvDir string
	// TemplateDir optionally overrides the embedded templates. A template
	// file missing from the directory falls back to its embedded default.
	TemplateDir string
	// Owner/Group for the rendered configuration files. The environment
	// scripts are always root-owned.
	Owner string
	Group string
}

// Renderer turns a validated ClusterTopology into the full artifact set of a
// provisioning pass. Rendering is pure and total over any topology the
// parser accepted: all lookups and naming happen in the view builder, so a
// template execution failure indicates a broken template, not bad input.
type Renderer struct {
	params Params
}

func New(params Params) *Renderer {
	return &Renderer{params: params}
}

// Render produces one RenderedArtifact per output file, in a fixed order:
// main, gres, cgroup, env-sh, env-csh. The gres artifact is emitted even
// when empty of nodes so a topology that dropped its last GRES entry still
// replaces the stale file.
func (r *Renderer) Render(topology *models.ClusterTopology) ([]models.RenderedArtifact, error) {
	tv := buildTopologyView(topology)
	gv := buildGresView(topology, tv)

	main, err := r.renderTemplate("main.conf.tmpl", tv)
	if err != nil {
		return nil, err
	}
	gres, err := r.renderTemplate("gres.conf.tmpl", gv)
	if err != nil {
		return nil, err
	}
	cgroup, err := r.renderTemplate("cgroup.conf.tmpl", tv)
	if err != nil {
		return nil, err
	}

	artifacts := []models.RenderedArtifact{
		{
			Key:     ArtifactMain,
			Target:  filepath.Join(r.params.OutputDir, "slurm_cluster.conf"),
			Content: main,
			Owner:   r.params.Owner,
			Group:   r.params.Group,
			Mode:    configMode,
		},
		{
			Key:     ArtifactGres,
			Target:  filepath.Join(r.params.OutputDir, "slurm_cluster_gres.conf"),
			Content: gres,
			Owner:   r.params.Owner,
			Group:   r.params.Group,
			Mode:    configMode,
		},
		{
			Key:     ArtifactCgroup,
			Target:  filepath.Join(r.params.OutputDir, "cgroup.conf"),
			Content: cgroup,
			Owner:   r.params.Owner,
			Group:   r.params.Group,
			Mode:    configMode,
		},
	}

	// The environment scripts are copied verbatim, never rendered.
	for _, script := range []struct {
		key, asset string
	}{
		{ArtifactEnvSh, "slurm.sh"},
		{ArtifactEnvCsh, "slurm.csh"},
	} {
		content, err := embeddedAssets.ReadFile("assets/" + script.asset)
		if err != nil {
			return nil, NewRenderError("missing embedded asset %s: %s", script.asset, err.Error())
		}
		artifacts = append(artifacts, models.RenderedArtifact{
			Key:     script.key,
			Target:  filepath.Join(r.params.EnvDir, script.asset),
			Content: content,
			Owner:   "root",
			Group:   "root",
			Mode:    scriptMode,
		})
	}
	return artifacts, nil
}

func (r *Renderer) renderTemplate(name string, data any) ([]byte, error) {
	content, err := r.templateContent(name)
	if err != nil {
		return nil, err
	}
	executor, err := libtemplate.NewExecutor(name, content, templateFuncs)
	if err != nil {
		return nil, NewRenderError("bad template %s: %s", name, err.Error())
	}
	rendered, err := executor.Execute(data)
	if err != nil {
		return nil, NewRenderError("failed to render %s: %s", name, err.Error())
	}
	return rendered, nil
}

// templateContent prefers an override from the configured template
// directory and falls back to the embedded default.
func (r *Renderer) templateContent(name string) (string, error) {
	if r.params.TemplateDir != "" {
		override := filepath.Join(r.params.TemplateDir, name)
		content, err := os.ReadFile(override)
		if err == nil {
			return string(content), nil
		}
		if !os.IsNotExist(err) {
			return "", NewRenderError("failed to read template override %s: %s", override, err.Error())
		}
	}
	content, err := embeddedTemplates.ReadFile("templates/" + name)
	if err != nil {
		return "", NewRenderError("missing embedded template %s: %s", name, err.Error())
	}
	return string(content), nil
}
