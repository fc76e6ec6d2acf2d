package duel

import "fmt"

// MoveKind is the class of action a contestant takes on their turn.
type MoveKind int

const (
	KindAttack MoveKind = iota
	KindDefend
)

func (k MoveKind) String() string {
	switch k {
	case KindAttack:
		return "attack"
	case KindDefend:
		return "defend"
	default:
		return fmt.Sprintf("MoveKind(%d)", int(k))
	}
}

// DefendHealPercent is the share of the template base HP restored by Defend.
const DefendHealPercent = 15

// MoveChoice is what the acting contestant asked for.
// Index selects from the contestant's move list and is only used by Attack.
type MoveChoice struct {
	Kind  MoveKind
	Index int
}

// Attack selects the move at index i.
func Attack(i int) MoveChoice { return MoveChoice{Kind: KindAttack, Index: i} }

// Defend heals the acting contestant.
func Defend() MoveChoice { return MoveChoice{Kind: KindDefend} }

// Effect is the outcome of one resolved move.
type Effect struct {
	Kind     MoveKind
	MoveName string
	Damage   int // HP actually removed from the defender
	Healed   int // HP actually restored to the actor
	ActorHP  int
	TargetHP int
}

// Resolve applies choice from actor to defender. It is deterministic and
// keeps both contestants' HP within [0, BaseHP]. An unknown kind or an
// out-of-range move index returns ErrInvalidMoveChoice and changes nothing.
func Resolve(actor, defender *Contestant, choice MoveChoice) (Effect, error) {
	switch choice.Kind {
	case KindAttack:
		moves := actor.Creature.Moves
		if choice.Index < 0 || choice.Index >= len(moves) {
			return Effect{}, ErrInvalidMoveChoice
		}
		move := moves[choice.Index]

		dmg := move.Damage
		if dmg < 0 {
			dmg = 0
		}
		if dmg > defender.HP {
			dmg = defender.HP
		}
		defender.HP -= dmg

		return Effect{
			Kind:     KindAttack,
			MoveName: move.Name,
			Damage:   dmg,
			ActorHP:  actor.HP,
			TargetHP: defender.HP,
		}, nil

	case KindDefend:
		heal := actor.BaseHP * DefendHealPercent / 100
		if actor.HP+heal > actor.BaseHP {
			heal = actor.BaseHP - actor.HP
		}
		if heal < 0 {
			heal = 0
		}
		actor.HP += heal

		return Effect{
			Kind:     KindDefend,
			Healed:   heal,
			ActorHP:  actor.HP,
			TargetHP: defender.HP,
		}, nil

	default:
		return Effect{}, ErrInvalidMoveChoice
	}
}
