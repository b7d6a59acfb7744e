package reconciler

import "github.com/slurmsync-project/slurmsync/pkg/models"

const ReconcilerComponent = "Reconciler"

func NewReconcileError(code models.ErrorCode, format string, a ...any) *models.BaseError {
	return models.NewBaseError(format, a...).
		WithComponent(ReconcilerComponent).
		WithCode(code)
}
