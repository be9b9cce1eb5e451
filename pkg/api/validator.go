package api

import "errors"

// Ограничения полей INIT.
const (
	MaxNameLength    = 32
	MaxSessionLength = 64
)

// Validator - интерфейс, который могут реализовать DTO
type Validator interface {
	Validate() error
}

func (p DirectionPayload) Validate() error {
	if p.Dx == 0 && p.Dy == 0 {
		return errors.New("movement vector cannot be zero")
	}
	if p.Dx < -1 || p.Dx > 1 || p.Dy < -1 || p.Dy > 1 {
		return errors.New("movement step too large")
	}
	return nil
}

func (p JoinPayload) Validate() error {
	if len([]rune(p.Name)) > MaxNameLength {
		return errors.New("name is too long")
	}
	if len(p.Session) > MaxSessionLength {
		return errors.New("session id is too long")
	}
	return nil
}
