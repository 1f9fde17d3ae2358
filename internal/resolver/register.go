package resolver

import (
	"time"

	"github.com/hexgame/gamecore/internal/apperr"
	"github.com/hexgame/gamecore/internal/hexworld"
	"github.com/hexgame/gamecore/internal/session"
)

// RegisterMove implements spec.md §4.3's register_move. It never mutates
// its argument; on success it returns a new Session with the move added
// to registered_actions. now is the time the command executes, compared
// against the session's current round deadline so a command that loses
// the actor's select race against the round timer is rejected instead of
// silently registering an action for a round that has already ended.
func RegisterMove(s session.Session, rules Rules, userID hexworld.UserId, v hexworld.Vector, now time.Time) (session.Session, error) {
	pid, pc, err := checkAlivePlayer(s, userID, now)
	if err != nil {
		return s, err
	}
	if s.HasAction(pid, hexworld.ActionMove) {
		return s, apperr.ErrAlreadyRegistered
	}
	if remainingAP(s, rules, pid, pc) < rules.MoveCost {
		return s, apperr.ErrInsufficientActionPoints
	}

	next := s.Clone()
	next.RegisteredActions[pid] = append(next.RegisteredActions[pid], hexworld.MoveAction(pid, v))
	return next, nil
}

// RegisterAttack implements spec.md §4.3's register_attack.
func RegisterAttack(s session.Session, rules Rules, userID hexworld.UserId, targetID hexworld.PlayerId, now time.Time) (session.Session, error) {
	pid, pc, err := checkAlivePlayer(s, userID, now)
	if err != nil {
		return s, err
	}
	target, alive := s.World.PlayerCharacters[targetID]
	if !alive {
		return s, apperr.ErrTargetDead
	}
	if target.Position != pc.Position {
		return s, apperr.ErrTargetNotInSameHex
	}
	if s.HasAction(pid, hexworld.ActionAttack) {
		return s, apperr.ErrAlreadyRegistered
	}
	if remainingAP(s, rules, pid, pc) < rules.AttackCost {
		return s, apperr.ErrInsufficientActionPoints
	}

	next := s.Clone()
	next.RegisteredActions[pid] = append(next.RegisteredActions[pid], hexworld.AttackAction(pid, targetID))
	return next, nil
}

func checkAlivePlayer(s session.Session, userID hexworld.UserId, now time.Time) (hexworld.PlayerId, hexworld.PC, error) {
	if s.Status == session.Concluded {
		return 0, hexworld.PC{}, apperr.ErrSessionConcluded
	}
	if s.RoundEndTime != nil && !now.Before(*s.RoundEndTime) {
		return 0, hexworld.PC{}, apperr.ErrRoundEnded
	}
	pid, ok := s.PlayerByUserID(userID)
	if !ok {
		return 0, hexworld.PC{}, apperr.ErrNotAPlayer
	}
	pc, alive := s.World.PlayerCharacters[pid]
	if !alive {
		return 0, hexworld.PC{}, apperr.ErrPCDead
	}
	return pid, pc, nil
}

// remainingAP returns the player's current AP minus whatever is already
// committed to other actions registered this round, so that registering
// both a move and an attack in one round is gated by their combined cost
// (SPEC_FULL.md's resolution of the AP-economy Open Question).
func remainingAP(s session.Session, rules Rules, pid hexworld.PlayerId, pc hexworld.PC) int {
	spent := 0
	for _, a := range s.RegisteredActions[pid] {
		switch a.Kind {
		case hexworld.ActionMove:
			spent += rules.MoveCost
		case hexworld.ActionAttack:
			spent += rules.AttackCost
		}
	}
	return pc.ActionPoints - spent
}
