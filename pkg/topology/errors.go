package topology

import "github.com/slurmsync-project/slurmsync/pkg/models"

const ParserComponent = "Parser"

func NewParseError(code models.ErrorCode, format string, a ...any) *models.BaseError {
	return models.NewBaseError(format, a...).
		WithComponent(ParserComponent).
		WithCode(code)
}
