package clickrace

import (
	"math/rand/v2"

	"github.com/clickrace/server/game/config"
)

// generateButtonSequence builds the shared target sequence for one round:
// cfg.ButtonCount rectangles of random size within [MinButtonSize,
// MaxButtonSize], positioned so they fit entirely inside the canvas.
func generateButtonSequence(cfg *config.Config) []ButtonPosition {
	buttons := make([]ButtonPosition, cfg.ButtonCount)
	span := cfg.MaxButtonSize - cfg.MinButtonSize + 1

	for i := range buttons {
		size := cfg.MinButtonSize + rand.IntN(span)
		buttons[i] = ButtonPosition{
			X:      rand.IntN(cfg.CanvasWidth - size),
			Y:      rand.IntN(cfg.CanvasHeight - size),
			Width:  size,
			Height: size,
		}
	}
	return buttons
}
