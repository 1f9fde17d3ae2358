package resolver

import (
	"sort"
	"time"

	"github.com/hexgame/gamecore/internal/eventlog"
	"github.com/hexgame/gamecore/internal/hexworld"
	"github.com/hexgame/gamecore/internal/session"
)

// Resolve applies one round of registered actions to s and returns the
// next Session: new round number, empty registered_actions, updated
// world, appended events, and possibly Status = Concluded. It is a pure
// function — the only side effect a caller should perform around it is
// persisting the result (internal/runtime does that).
//
// Phase order is fixed by spec.md §4.3: attacks, then moves, then kill
// resolution, AP regen, clearing actions, advancing the round, and the
// game-over check. Implementations adding new action kinds must extend
// this order rather than interleave it.
func Resolve(s session.Session, rules Rules, roundEndTime time.Time) session.Session {
	moves, attacks := partitionActions(s.RegisteredActions)

	world := s.World
	log := s.EventsLog

	world, log = resolveAttacks(world, log, s.Round, attacks, rules)
	world, log = resolveMoves(world, log, s.Round, moves)
	world = applyKills(world)
	world = regenActionPoints(world, rules)

	next := s.Clone()
	next.World = world
	next.EventsLog = log
	next.RegisteredActions = make(map[hexworld.PlayerId][]hexworld.RegisteredAction)
	next.Round = s.Round + 1
	t := roundEndTime
	next.RoundEndTime = &t

	if len(hexworld.AlivePlayerIDs(world)) < 2 {
		next.Status = session.Concluded
	}
	return next
}

func partitionActions(registered map[hexworld.PlayerId][]hexworld.RegisteredAction) (moves, attacks []hexworld.RegisteredAction) {
	var ids []hexworld.PlayerId
	for pid := range registered {
		ids = append(ids, pid)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, pid := range ids {
		for _, a := range registered[pid] {
			switch a.Kind {
			case hexworld.ActionMove:
				moves = append(moves, a)
			case hexworld.ActionAttack:
				attacks = append(attacks, a)
			}
		}
	}
	return moves, attacks
}

func resolveAttacks(world hexworld.World, log eventlog.Log, round int, attacks []hexworld.RegisteredAction, rules Rules) (hexworld.World, eventlog.Log) {
	sort.Slice(attacks, func(i, j int) bool { return attacks[i].PlayerID < attacks[j].PlayerID })

	world = world.Clone()
	for _, atk := range attacks {
		target, ok := world.PlayerCharacters[atk.TargetID]
		if !ok {
			continue // target already dead/removed; nothing to resolve
		}
		target.Health -= rules.AttackDamage
		world.PlayerCharacters[atk.TargetID] = target

		attacker, ok := world.PlayerCharacters[atk.PlayerID]
		if !ok {
			continue
		}
		visible := visibilitySet(hexworld.PCsAt(world, attacker.Position))
		log, _ = eventlog.Append(log, eventlog.Event{
			Round:    round,
			Kind:     eventlog.KindPCAttackedPC,
			PlayerID: atk.PlayerID,
			TargetID: atk.TargetID,
		}, visible)
	}
	return world, log
}

type move struct {
	playerID hexworld.PlayerId
	from     hexworld.Coord
	to       hexworld.Coord
}

func resolveMoves(world hexworld.World, log eventlog.Log, round int, actions []hexworld.RegisteredAction) (hexworld.World, eventlog.Log) {
	sort.Slice(actions, func(i, j int) bool { return actions[i].PlayerID < actions[j].PlayerID })

	preWorld := world
	var moves []move
	for _, a := range actions {
		pc, ok := preWorld.PlayerCharacters[a.PlayerID]
		if !ok {
			continue // dead/removed player; move is a no-op
		}
		to := hexworld.ApplyVector(pc.Position, a.Vector)
		world = hexworld.MovePC(world, a.PlayerID, to)
		moves = append(moves, move{playerID: a.PlayerID, from: pc.Position, to: to})
	}
	postWorld := world

	for _, m := range moves {
		leftWitnesses := diffPlayerSets(
			visibilitySet(hexworld.PCsAt(preWorld, m.from)),
			visibilitySet(hexworld.PCsAt(postWorld, m.to)),
		)
		if len(leftWitnesses) > 0 {
			log, _ = eventlog.Append(log, eventlog.Event{
				Round: round, Kind: eventlog.KindPCLeftHex,
				PlayerID: m.playerID, From: m.from, To: m.to,
			}, leftWitnesses)
		}
	}
	for _, m := range moves {
		enteredWitnesses := visibilitySet(hexworld.PCsAt(postWorld, m.to))
		log, _ = eventlog.Append(log, eventlog.Event{
			Round: round, Kind: eventlog.KindPCEnteredHex,
			PlayerID: m.playerID, From: m.from, To: m.to,
		}, enteredWitnesses)
	}

	return world, log
}

func applyKills(world hexworld.World) hexworld.World {
	world = world.Clone()
	for id, pc := range world.PlayerCharacters {
		if pc.Health <= 0 {
			world.DeadCharacters[id] = pc
			delete(world.PlayerCharacters, id)
		}
	}
	return world
}

func regenActionPoints(world hexworld.World, rules Rules) hexworld.World {
	world = world.Clone()
	for id, pc := range world.PlayerCharacters {
		pc.ActionPoints += rules.ActionPointRegen
		if pc.ActionPoints > rules.ActionPointCap {
			pc.ActionPoints = rules.ActionPointCap
		}
		world.PlayerCharacters[id] = pc
	}
	return world
}

func visibilitySet(pcs []hexworld.PC) map[hexworld.PlayerId]struct{} {
	m := make(map[hexworld.PlayerId]struct{}, len(pcs))
	for _, pc := range pcs {
		m[pc.PlayerID] = struct{}{}
	}
	return m
}

func diffPlayerSets(a, b map[hexworld.PlayerId]struct{}) map[hexworld.PlayerId]struct{} {
	out := make(map[hexworld.PlayerId]struct{})
	for p := range a {
		if _, in := b[p]; !in {
			out[p] = struct{}{}
		}
	}
	return out
}
