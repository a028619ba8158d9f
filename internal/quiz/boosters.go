package quiz

import (
	"math/rand"
	"time"

	"github.com/partyquiz/server/internal/apierr"
)

// BoosterKind is one of the power-ups assigned to each player at game
// start. Behavior lives in a data-driven handler table rather than a type
// per kind - no runtime dispatch needed.
type BoosterKind string

const (
	BoosterNope     BoosterKind = "Nope"
	BoosterShield   BoosterKind = "Shield"
	BoosterWildcard BoosterKind = "Wildcard"
	BoosterLateLock BoosterKind = "LateLock"
)

// allBoosterKinds is the assignment pool, in a fixed order so assignment is
// deterministic under a seeded rand.
var allBoosterKinds = []BoosterKind{BoosterNope, BoosterShield, BoosterWildcard, BoosterLateLock}

// BoosterAssignment is the one-shot power-up a player holds for the game.
type BoosterAssignment struct {
	PlayerID string
	Kind     BoosterKind
	Used     bool
}

// Effect is the resolved, per-question consequence of an activated
// booster. The orchestrator's answering-time inspection and its outgoing
// personal-view broadcast both read this struct; no other booster-specific
// branching is needed anywhere outside this file.
type Effect struct {
	Source      BoosterKind
	ActivatorID string
	TargetID    string

	IsNoped          bool          // target may not submit this question
	ExtendedDeadline time.Duration // added to the activator's personal deadline
	CanChangeAnswer  bool          // activator may resubmit this question
}

// lateLockExtension is how much longer a LateLock holder's personal
// deadline runs past the room's phaseEndsUtc.
const lateLockExtension = 10 * time.Second

// boosterHandler is one row of the handler table: which phases the booster
// may be activated in, whether it needs a target, and how it resolves into
// an Effect.
type boosterHandler struct {
	kind           BoosterKind
	validPhases    map[Phase]bool
	requiresTarget bool
	apply          func(s *QuizGameState, activatorID, targetID string) (*Effect, error)
}

var answeringPhases = map[Phase]bool{
	PhaseAnswering:           true,
	PhaseDictionaryAnswering: true,
	PhaseRankingVoting:       true,
}

var boosterHandlers = map[BoosterKind]boosterHandler{
	BoosterNope: {
		kind:           BoosterNope,
		validPhases:    answeringPhases,
		requiresTarget: true,
		apply: func(s *QuizGameState, activatorID, targetID string) (*Effect, error) {
			if shieldActive(s, targetID) {
				return nil, apierr.New(apierr.BoosterBlockedByShield, "target is shielded")
			}
			return &Effect{Source: BoosterNope, ActivatorID: activatorID, TargetID: targetID, IsNoped: true}, nil
		},
	},
	BoosterShield: {
		kind:        BoosterShield,
		validPhases: answeringPhases,
		apply: func(s *QuizGameState, activatorID, _ string) (*Effect, error) {
			return &Effect{Source: BoosterShield, ActivatorID: activatorID, TargetID: activatorID}, nil
		},
	},
	BoosterWildcard: {
		kind:        BoosterWildcard,
		validPhases: answeringPhases,
		apply: func(s *QuizGameState, activatorID, _ string) (*Effect, error) {
			return &Effect{Source: BoosterWildcard, ActivatorID: activatorID, TargetID: activatorID, CanChangeAnswer: true}, nil
		},
	},
	BoosterLateLock: {
		kind:        BoosterLateLock,
		validPhases: answeringPhases,
		apply: func(s *QuizGameState, activatorID, _ string) (*Effect, error) {
			return &Effect{Source: BoosterLateLock, ActivatorID: activatorID, TargetID: activatorID, ExtendedDeadline: lateLockExtension}, nil
		},
	},
}

// shieldActive reports whether targetID has an active Shield effect this
// question, which blocks Nope (and would block Mirror, if assigned) from
// landing on them.
func shieldActive(s *QuizGameState, targetID string) bool {
	eff, ok := s.ActiveEffects[targetID]
	return ok && eff.Source == BoosterShield
}

// AssignBoosters hands each player one booster kind for the whole game,
// cycling through the pool in a shuffled order so no two games look alike
// under a seeded rand.Rand.
func AssignBoosters(s *QuizGameState, playerIDs []string, rng *rand.Rand) {
	order := append([]BoosterKind(nil), allBoosterKinds...)
	rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

	for i, id := range playerIDs {
		s.Boosters[id] = &BoosterAssignment{PlayerID: id, Kind: order[i%len(order)]}
	}
}

// ActivateBooster resolves activatorID's assigned booster against targetID
// (ignored for self-only boosters) for the current phase. A booster may be
// used at most once per game.
func ActivateBooster(s *QuizGameState, activatorID, targetID string, _ time.Time) (*Effect, error) {
	assignment, ok := s.Boosters[activatorID]
	if !ok {
		return nil, apierr.New(apierr.InvalidState, "player has no assigned booster")
	}
	if assignment.Used {
		return nil, apierr.New(apierr.InvalidState, "booster already used")
	}

	handler, ok := boosterHandlers[assignment.Kind]
	if !ok {
		return nil, apierr.New(apierr.InvalidState, "unknown booster kind")
	}
	if !handler.validPhases[s.Phase] {
		return nil, apierr.New(apierr.InvalidState, "booster not usable in this phase")
	}
	if handler.requiresTarget {
		if targetID == "" || targetID == activatorID {
			return nil, apierr.New(apierr.InvalidState, "booster requires a different target")
		}
		if _, exists := s.Scoreboard[targetID]; !exists {
			return nil, apierr.New(apierr.InvalidState, "target is not in this game")
		}
	}

	effect, err := handler.apply(s, activatorID, targetID)
	if err != nil {
		return nil, err
	}

	assignment.Used = true
	if s.ActiveEffects == nil {
		s.ActiveEffects = make(map[string]*Effect)
	}
	key := effect.TargetID
	if key == "" {
		key = activatorID
	}
	s.ActiveEffects[key] = effect
	return effect, nil
}

// personalDeadline returns playerID's effective phaseEndsUtc, extended by
// any active LateLock effect.
func (s *QuizGameState) personalDeadline(playerID string) time.Time {
	if eff, ok := s.ActiveEffects[playerID]; ok && eff.ExtendedDeadline > 0 {
		return s.PhaseEndsAt.Add(eff.ExtendedDeadline)
	}
	return s.PhaseEndsAt
}

// EffectiveDeadline returns the instant the current phase may actually
// advance: PhaseEndsAt, pushed out by the longest active personal-deadline
// extension. The orchestrator arms the room timer from this, not from
// PhaseEndsAt directly - otherwise the phase would flip away at the
// nominal deadline and a LateLock holder's late submission would bounce
// off the phase guard before their personal deadline was ever consulted.
func (s *QuizGameState) EffectiveDeadline() time.Time {
	deadline := s.PhaseEndsAt
	for _, eff := range s.ActiveEffects {
		if eff.ExtendedDeadline <= 0 {
			continue
		}
		if d := s.PhaseEndsAt.Add(eff.ExtendedDeadline); d.After(deadline) {
			deadline = d
		}
	}
	return deadline
}

// canChangeAnswer reports whether playerID holds an active Wildcard effect
// permitting a resubmission this question.
func (s *QuizGameState) canChangeAnswer(playerID string) bool {
	eff, ok := s.ActiveEffects[playerID]
	return ok && eff.CanChangeAnswer
}
