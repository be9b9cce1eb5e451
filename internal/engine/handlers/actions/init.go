package actions

import (
	"fmt"

	"raid-server/internal/domain"
	"raid-server/internal/engine/handlers"
	"raid-server/pkg/api"
)

// HandleInit - вход в бой. Имя уже применено сессией при join,
// хендлер только приветствует и триггерит первую отрисовку.
func HandleInit(ctx handlers.Context, p api.JoinPayload) (handlers.Result, error) {
	return handlers.Result{
		Msg:     fmt.Sprintf("%s вступает в бой.", ctx.Actor.Name),
		MsgType: domain.LogTypeInfo,
	}, nil
}
