package systems

import (
	"fmt"

	"raid-server/internal/domain"
	"raid-server/pkg/logger"

	"github.com/sirupsen/logrus"
)

// HazardHit - итог попадания механики по игроку.
type HazardHit struct {
	Damage int
	Died   bool
	Msg    string
}

// ApplyHazardDamage наносит урон механики игроку, стоящему на опасной клетке.
func ApplyHazardDamage(p *domain.Player, mechanicName string, damage int) HazardHit {
	combatLogger := logger.Log.WithFields(logrus.Fields{
		"component": "combat_system",
		"player_id": p.ID,
		"mechanic":  mechanicName,
	})

	if p.IsDead {
		combatLogger.Debug("Hazard ignored: player is already dead.")
		return HazardHit{}
	}
	if damage < 0 {
		damage = 0
	}

	hpBefore := p.HP
	died := p.TakeDamage(damage)

	combatLogger.WithFields(logrus.Fields{
		"damage":    damage,
		"hp_before": hpBefore,
		"hp_after":  p.HP,
		"died":      died,
	}).Info("Hazard damage applied")

	logMsg := fmt.Sprintf("%s задевает %s на %d урона.", mechanicName, p.Name, damage)
	if died {
		logMsg += fmt.Sprintf(" %s погибает.", p.Name)
	}

	return HazardHit{Damage: damage, Died: died, Msg: logMsg}
}
