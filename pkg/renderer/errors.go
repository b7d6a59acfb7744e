package renderer

import "github.com/slurmsync-project/slurmsync/pkg/models"

const RendererComponent = "Renderer"

// NewRenderError marks an internal invariant violation: rendering is total
// over parser-validated topologies, so hitting one of these means a broken
// template or embedded asset, not bad input.
func NewRenderError(format string, a ...any) *models.BaseError {
	return models.NewBaseError(format, a...).
		WithComponent(RendererComponent).
		WithCode(models.InternalError)
}
