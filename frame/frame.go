// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package frame keeps the CPU from running ahead of the GPU.
// Every frame slot owns a fence and an expected value. Before a slot is
// reused the CPU blocks until the GPU has completed the value last
// signalled on that slot, only then the slot's command memory may be reset.
package frame

import (
	"context"
	"errors"
	"fmt"
)

// ErrNoSlots is returned when a Ring is created without fences.
var ErrNoSlots = errors.New("frame ring needs at least one fence")

// Fence is a monotonically increasing GPU completion counter.
type Fence interface {

	// Completed returns the last value the GPU has reached.
	Completed() uint64

	// Wait blocks until Completed is at least value
	// or the context is done.
	Wait(ctx context.Context, value uint64) error
}

// SignalFunc submits work for a slot and asks the GPU to
// set fence to value once that work is finished.
type SignalFunc func(slot int, fence Fence, value uint64) error

// NewRing creates a Ring with one slot per fence.
func NewRing(fences []Fence) (*Ring, error) {
	if len(fences) == 0 {
		return nil, ErrNoSlots
	}
	return &Ring{
		fences:  fences,
		values:  make([]uint64, len(fences)),
		pending: make([]uint64, len(fences)),
	}, nil
}

// Ring rotates over frame slots, one fence and expected value each.
// It is not safe for concurrent use, all calls are made from the render thread.
type Ring struct {
	fences []Fence

	// values holds the last value signalled per slot,
	// pending the one the next Signal will use.
	values  []uint64
	pending []uint64
	current int
}

// Len returns the number of slots.
func (r *Ring) Len() int {
	return len(r.fences)
}

// Current returns the slot the next frame is recorded into.
func (r *Ring) Current() int {
	return r.current
}

// Value returns the fence value last signalled on the slot.
func (r *Ring) Value(slot int) uint64 {
	return r.values[slot]
}

// Wait blocks until the GPU is done with the current slot and then
// bumps the slot's value, which the following Signal will use.
// Waiting twice without a Signal in between does not bump twice.
func (r *Ring) Wait(ctx context.Context) error {
	if err := r.waitSlot(ctx, r.current); err != nil {
		return err
	}
	r.pending[r.current] = r.values[r.current] + 1
	return nil
}

// Signal hands the current slot's fence and pending value to fn.
// The value only counts as signalled when fn succeeds.
func (r *Ring) Signal(fn SignalFunc) error {
	slot := r.current
	if r.pending[slot] <= r.values[slot] {
		return fmt.Errorf("frame slot %d signalled without waiting", slot)
	}
	if err := fn(slot, r.fences[slot], r.pending[slot]); err != nil {
		return err
	}
	r.values[slot] = r.pending[slot]
	return nil
}

// Advance moves on to the next slot.
func (r *Ring) Advance() {
	r.current = (r.current + 1) % len(r.fences)
}

// Drain waits for every slot's last signalled value.
func (r *Ring) Drain(ctx context.Context) error {
	for slot := range r.fences {
		if err := r.waitSlot(ctx, slot); err != nil {
			return err
		}
	}
	return nil
}

func (r *Ring) waitSlot(ctx context.Context, slot int) error {
	fence := r.fences[slot]
	if fence.Completed() >= r.values[slot] {
		return nil
	}
	if err := fence.Wait(ctx, r.values[slot]); err != nil {
		return fmt.Errorf("frame slot %d waiting for %d: %w", slot, r.values[slot], err)
	}
	return nil
}
