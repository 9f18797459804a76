package messagelog

import (
	"context"

	"github.com/bitiz/tirebot-go/internal/domain"
)

// Noop discards all transcript writes. Used when no database is
// configured.
type Noop struct{}

func (Noop) EnsureSession(context.Context, string, string) error { return nil }

func (Noop) AppendUser(context.Context, string, string) error { return nil }

func (Noop) AppendBot(context.Context, string, *domain.ChatResponse, string) error { return nil }
