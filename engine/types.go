/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package engine

import (
	"fmt"
	"strconv"
)

// Category identifies which asset family an image index belongs to.
type Category string

const (
	Background Category = "background"
	AI         Category = "ai"
	Real       Category = "real"
)

func ParseCategory(s string) (Category, error) {
	switch Category(s) {
	case Background, AI, Real:
		return Category(s), nil
	}

	return "", fmt.Errorf("unknown image category %q", s)
}

// Side is the half of the screen an image is shown on.
type Side int

const (
	Left Side = iota
	Right
)

func (s Side) String() string {
	if s == Right {
		return "right"
	}

	return "left"
}

func (s Side) Other() Side {
	if s == Left {
		return Right
	}

	return Left
}

func ParseSide(s string) (Side, error) {
	switch s {
	case "left":
		return Left, nil
	case "right":
		return Right, nil
	}

	return Left, fmt.Errorf("invalid side %q", s)
}

// Mode is either a full game or a one-pair challenge reached via a shared link.
type Mode int

const (
	Normal Mode = iota
	SinglePair
)

func (m Mode) String() string {
	if m == SinglePair {
		return "single_pair"
	}

	return "normal"
}

type State int

const (
	Idle State = iota
	Loading
	Presenting
	Results
	Reviewing
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Presenting:
		return "presenting"
	case Results:
		return "results"
	case Reviewing:
		return "reviewing"
	}

	return "idle"
}

// ImageRef addresses one image inside the cache.
type ImageRef struct {
	Category Category `json:"category"`
	Index    int      `json:"index"`
}

func (r ImageRef) Path() string {
	return "/images/" + string(r.Category) + "/" + strconv.Itoa(r.Index)
}

func (r ImageRef) String() string {
	return string(r.Category) + "_" + strconv.Itoa(r.Index)
}

// PairAssignment is one round of a game. AISide is re-rolled on every presentation.
type PairAssignment struct {
	Position  int
	AIIndex   int
	RealIndex int
	AISide    Side
}

func (p PairAssignment) refs() (ImageRef, ImageRef) {
	return ImageRef{Category: AI, Index: p.AIIndex}, ImageRef{Category: Real, Index: p.RealIndex}
}

// RoundRecord is written once per answered pair and never mutated afterwards.
type RoundRecord struct {
	Position     int
	AISide       Side
	UserSelected Side
	WasCorrect   bool
	Left         ImageRef
	Right        ImageRef
	AIIndex      int
	RealIndex    int
}

// SharedPair is the single pair carried by a challenge link.
type SharedPair struct {
	AIIndex   int `json:"ai"`
	RealIndex int `json:"real"`
}
