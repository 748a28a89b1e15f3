package _switch

import (
	"context"
	"sync"
	"time"

	"github.com/gurshaan17/2d-metaverse/backend/model"
	"github.com/rs/zerolog"
)

const (
	defaultFwdTimout = time.Second
)

// Switch implements transport-level broadcast groups. A connection may
// be a member of any number of groups at once (its chat space, its
// presence room and its video room commonly share one id, but nothing
// requires that). Group membership only affects delivery; room state
// lives in the registry.
type Switch struct {
	logger zerolog.Logger
	mx     *sync.RWMutex
	groups map[string]map[string]model.Wire
}

func NewSwitch(logger *zerolog.Logger) *Switch {
	return &Switch{
		logger: logger.With().Str("component", "switch").Logger(),
		mx:     &sync.RWMutex{},
		groups: make(map[string]map[string]model.Wire),
	}
}

// Join adds the connection's wire to a group, creating the group if
// absent. Idempotent for the same connection id.
func (sw *Switch) Join(group, connID string, wire model.Wire) {
	sw.mx.Lock()
	defer func() {
		sw.mx.Unlock()
		sw.logger.Debug().
			Str("group", group).
			Str("connID", connID).
			Msg("endpoint joined group")
	}()

	grp, ok := sw.groups[group]
	if !ok {
		grp = make(map[string]model.Wire)
		sw.groups[group] = grp
	}
	grp[connID] = wire
}

// Leave removes the connection from a group; empty groups are deleted.
func (sw *Switch) Leave(group, connID string) {
	sw.mx.Lock()
	defer func() {
		sw.mx.Unlock()
		sw.logger.Debug().
			Str("group", group).
			Str("connID", connID).
			Msg("endpoint left group")
	}()

	grp, ok := sw.groups[group]
	if !ok {
		return
	}
	delete(grp, connID)
	if len(grp) == 0 {
		delete(sw.groups, group)
	}
}

// Drop removes the connection from every group it is still a member of.
// Called once on disconnect so chat-only memberships cannot leak.
func (sw *Switch) Drop(connID string) {
	sw.mx.Lock()
	defer sw.mx.Unlock()

	for name, grp := range sw.groups {
		if _, ok := grp[connID]; !ok {
			continue
		}
		delete(grp, connID)
		if len(grp) == 0 {
			delete(sw.groups, name)
		}
	}
}

// Broadcast forwards ev to every group member except the connection
// named by except (pass "" to include everyone). Reports whether the
// event reached at least one endpoint.
func (sw *Switch) Broadcast(ctx context.Context, group, except string, ev model.Event) bool {
	logger := sw.logger.With().
		Str("group", group).
		Str("event", ev.Name).Logger()

	sw.mx.RLock()
	grp := sw.groups[group]
	wires := make(map[string]model.Wire, len(grp))
	for id, w := range grp {
		wires[id] = w
	}
	sw.mx.RUnlock()

	var sent bool
	for dst, wire := range wires {
		if dst == except {
			continue
		}
		evSent, canceled := send(ctx, ev, wire.TX, dst, &logger)
		if canceled {
			break
		}
		if evSent {
			sent = true
		}
	}
	if !sent {
		logger.Debug().Msg("broadcast did not reach anyone")
	}
	return sent
}

func send(ctx context.Context, ev model.Event, tx chan<- model.Event, dst string, logger *zerolog.Logger) (bool, bool) {
	var sent, canceled bool
	tCh := time.NewTimer(defaultFwdTimout)
	select {
	case <-ctx.Done():
		canceled = true
	case <-tCh.C:
		logger.Error().Str("dst", dst).Msg("dead endpoint")
	case tx <- ev:
		sent = true
	}
	tCh.Stop()
	return sent, canceled
}
