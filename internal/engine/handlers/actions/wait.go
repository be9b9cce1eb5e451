package actions

import (
	"fmt"

	"raid-server/internal/domain"
	"raid-server/internal/engine/handlers"
)

func HandleWait(ctx handlers.Context) (handlers.Result, error) {
	if ctx.Actor.IsDead {
		return handlers.EmptyResult(), nil
	}
	return handlers.Result{
		Msg:     fmt.Sprintf("%s стоит на месте.", ctx.Actor.Name),
		MsgType: domain.LogTypeInfo,
		Private: true,
	}, nil
}
