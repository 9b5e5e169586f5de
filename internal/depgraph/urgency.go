// Package depgraph computes the snapshot-derived fields of pending tasks:
// blocking relationships, dependents and urgency.
//
// Everything here is recomputed from scratch for each snapshot. Only
// pending tasks take part: a dependency on a completed (or unknown) task
// never blocks.
package depgraph

import (
	"math"
	"time"

	"github.com/taskdepot/td/internal/task"
)

// UrgencyConfig holds the coefficients of the urgency factors.
type UrgencyConfig struct {
	// Dependents scales log2(1 + number of dependents).
	Dependents float64

	// Blocked is added when the task is blocked.
	Blocked float64

	// ScheduledHigh and ScheduledLow bound the scheduled factor. It rises
	// linearly from low at scheduled-ScheduledActiveTime to high at the
	// scheduled time.
	ScheduledHigh       float64
	ScheduledLow        float64
	ScheduledActiveTime time.Duration

	// DueHigh bounds the due factor, which rises linearly from 0 at
	// due-DueTimePre to DueHigh at due+DueTimePost.
	DueHigh     float64
	DueTimePre  time.Duration
	DueTimePost time.Duration

	// Tags maps a tag to a bonus added when the task carries it. Matching
	// is hierarchical.
	Tags map[string]float64
}

// DefaultUrgencyConfig returns the coefficients used when none are
// configured.
func DefaultUrgencyConfig() UrgencyConfig {
	return UrgencyConfig{
		Dependents:          8.0,
		Blocked:             -5.0,
		ScheduledHigh:       5.0,
		ScheduledLow:        0.0,
		ScheduledActiveTime: 7 * 24 * time.Hour,
		DueHigh:             12.0,
		DueTimePre:          14 * 24 * time.Hour,
		DueTimePost:         7 * 24 * time.Hour,
		Tags:                map[string]float64{"next": 15.0},
	}
}

// Urgency returns the urgency of t at now from its current derived
// fields. Resolve must have run first for the dependents and blocked
// factors to mean anything.
func Urgency(t *task.Task, cfg UrgencyConfig, now time.Time) float64 {
	val := cfg.Dependents * math.Log2(1+float64(len(t.Dependents)))

	if t.Blocked {
		val += cfg.Blocked
	}

	if t.DateScheduled != nil {
		val += scheduledFactor(now.Sub(*t.DateScheduled), cfg)
	}

	if t.DateDue != nil {
		val += dueFactor(now.Sub(*t.DateDue), cfg)
	}

	for tag, bonus := range cfg.Tags {
		if t.HasTag(tag) {
			val += bonus
		}
	}

	return val
}

// scheduledFactor maps delta = now - scheduled onto [low, high].
func scheduledFactor(delta time.Duration, cfg UrgencyConfig) float64 {
	high, low := cfg.ScheduledHigh, cfg.ScheduledLow

	if cfg.ScheduledActiveTime <= 0 {
		if delta >= 0 {
			return high
		}
		return low
	}

	slope := (high - low) / cfg.ScheduledActiveTime.Seconds()
	return clamp(slope*delta.Seconds()+high, low, high)
}

// dueFactor maps delta = now - due onto [0, high].
func dueFactor(delta time.Duration, cfg UrgencyConfig) float64 {
	high := cfg.DueHigh
	window := cfg.DueTimePre + cfg.DueTimePost

	if window <= 0 {
		if delta >= 0 {
			return high
		}
		return 0
	}

	slope := high / window.Seconds()
	offset := cfg.DueTimePre.Seconds() * slope
	return clamp(slope*delta.Seconds()+offset, 0, high)
}

// clamp bounds v to [lo, hi]. lo wins when the bounds are inverted.
func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
