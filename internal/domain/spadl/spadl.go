// Package spadl defines the standardized action vocabulary (SPADL) shared by
// the labelers and the value formula.
package spadl

import (
	"fmt"
	"strings"
)

// ActionType identifies the kind of on-ball action.
type ActionType int

// Action types in SPADL id order.
const (
	Pass ActionType = iota
	Cross
	ThrowIn
	FreekickCrossed
	FreekickShort
	CornerCrossed
	CornerShort
	TakeOn
	Foul
	Tackle
	Interception
	Shot
	ShotPenalty
	ShotFreekick
	KeeperSave
	KeeperClaim
	KeeperPunch
	KeeperPickUp
	Clearance
	BadTouch
	NonAction
	Dribble
	Goalkick
)

var actionTypeNames = []string{
	"pass",
	"cross",
	"throw_in",
	"freekick_crossed",
	"freekick_short",
	"corner_crossed",
	"corner_short",
	"take_on",
	"foul",
	"tackle",
	"interception",
	"shot",
	"shot_penalty",
	"shot_freekick",
	"keeper_save",
	"keeper_claim",
	"keeper_punch",
	"keeper_pick_up",
	"clearance",
	"bad_touch",
	"non_action",
	"dribble",
	"goalkick",
}

// Result is the outcome of an action.
type Result int

// Results in SPADL id order.
const (
	Fail Result = iota
	Success
	Offside
	OwnGoal
	YellowCard
	RedCard
)

var resultNames = []string{"fail", "success", "offside", "owngoal", "yellow_card", "red_card"}

// Bodypart is the body part used to perform an action.
type Bodypart int

// Body parts in SPADL id order.
const (
	Foot Bodypart = iota
	Head
	Other
	HeadOther
	FootLeft
	FootRight
)

var bodypartNames = []string{"foot", "head", "other", "head/other", "foot_left", "foot_right"}

// ActionTypes returns the action type vocabulary in id order.
func ActionTypes() []string { return append([]string(nil), actionTypeNames...) }

// Results returns the result vocabulary in id order.
func Results() []string { return append([]string(nil), resultNames...) }

// Bodyparts returns the body part vocabulary in id order.
func Bodyparts() []string { return append([]string(nil), bodypartNames...) }

// Valid reports whether t belongs to the vocabulary.
func (t ActionType) Valid() bool { return t >= 0 && int(t) < len(actionTypeNames) }

// String returns the SPADL name of the action type.
func (t ActionType) String() string {
	if !t.Valid() {
		return fmt.Sprintf("action_type(%d)", int(t))
	}
	return actionTypeNames[t]
}

// IsShot reports whether t belongs to the shot family.
func (t ActionType) IsShot() bool {
	return t == Shot || t == ShotPenalty || t == ShotFreekick
}

// IsCorner reports whether t is a short or crossed corner.
func (t ActionType) IsCorner() bool {
	return t == CornerCrossed || t == CornerShort
}

// Valid reports whether r belongs to the vocabulary.
func (r Result) Valid() bool { return r >= 0 && int(r) < len(resultNames) }

// String returns the SPADL name of the result.
func (r Result) String() string {
	if !r.Valid() {
		return fmt.Sprintf("result(%d)", int(r))
	}
	return resultNames[r]
}

// Valid reports whether b belongs to the vocabulary.
func (b Bodypart) Valid() bool { return b >= 0 && int(b) < len(bodypartNames) }

// String returns the SPADL name of the body part.
func (b Bodypart) String() string {
	if !b.Valid() {
		return fmt.Sprintf("bodypart(%d)", int(b))
	}
	return bodypartNames[b]
}

// ParseActionType maps a SPADL action type name to its value.
func ParseActionType(name string) (ActionType, error) {
	i, ok := lookup(actionTypeNames, name)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownActionType, name)
	}
	return ActionType(i), nil
}

// ParseResult maps a SPADL result name to its value.
func ParseResult(name string) (Result, error) {
	i, ok := lookup(resultNames, name)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownResult, name)
	}
	return Result(i), nil
}

// ParseBodypart maps a SPADL body part name to its value.
func ParseBodypart(name string) (Bodypart, error) {
	i, ok := lookup(bodypartNames, name)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownBodypart, name)
	}
	return Bodypart(i), nil
}

func lookup(names []string, name string) (int, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range names {
		if n == name {
			return i, true
		}
	}
	return 0, false
}
