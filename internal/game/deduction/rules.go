package deduction

import (
	"fmt"
	"time"
)

// RoundCapRule decides what reaching the round cap means.
type RoundCapRule string

const (
	// RoundCapContinue keeps playing past the cap; only the win checks end the game.
	RoundCapContinue RoundCapRule = "continue"
	// RoundCapCrewWins ends the game in the Crew's favour once a resolution
	// at or past the cap fails to decide it.
	RoundCapCrewWins RoundCapRule = "crew-wins"
)

// ParseRoundCapRule validates a configured rule name.
func ParseRoundCapRule(s string) (RoundCapRule, error) {
	switch r := RoundCapRule(s); r {
	case RoundCapContinue, RoundCapCrewWins:
		return r, nil
	}
	return "", fmt.Errorf("unknown round cap rule %q", s)
}

// Rules are the timing and limits of a match.
type Rules struct {
	ClueTime       time.Duration
	DiscussionTime time.Duration
	VotingTime     time.Duration
	TimerEvery     time.Duration

	RoundCap     int
	RoundCapRule RoundCapRule

	MaxClueLen int
	MaxChatLen int
}

func DefaultRules() Rules {
	return Rules{
		ClueTime:       60 * time.Second,
		DiscussionTime: 60 * time.Second,
		VotingTime:     30 * time.Second,
		TimerEvery:     time.Second,
		RoundCap:       3,
		RoundCapRule:   RoundCapContinue,
		MaxClueLen:     100,
		MaxChatLen:     200,
	}
}

// SaboteurCount is max(1, floor(n/5)).
func SaboteurCount(n int) int {
	return max(1, n/5)
}
