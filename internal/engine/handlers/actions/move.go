package actions

import (
	"raid-server/internal/domain"
	"raid-server/internal/engine/handlers"
	"raid-server/internal/systems"
	"raid-server/pkg/api"
)

func HandleMove(ctx handlers.Context, p api.DirectionPayload) (handlers.Result, error) {
	if ctx.Actor.IsDead {
		return handlers.Result{Msg: "Мертвые не ходят.", MsgType: domain.LogTypeError, Private: true}, nil
	}

	res := systems.CalculateMove(ctx.Actor, p.Dx, p.Dy, ctx.Grid)

	if res.HasMoved {
		ctx.Actor.Pos = res.NewPos
		return handlers.Result{Moved: true}, nil
	}

	if res.IsEdge {
		return handlers.Result{Msg: "Край арены.", MsgType: domain.LogTypeError, Private: true}, nil
	}

	return handlers.EmptyResult(), nil
}
