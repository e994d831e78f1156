package coordinator

import (
	"context"
	"fmt"

	"github.com/alexivanou/roamai/internal/events"
	"github.com/alexivanou/roamai/internal/model"
	"go.uber.org/zap"
)

// SetDiscovery toggles discovery mode; leaving it clears the selected POI
func (c *Coordinator) SetDiscovery(active bool) {
	c.mu.Lock()
	c.discovery = active
	if !active {
		c.poi = nil
	}
	c.mu.Unlock()
	c.publish(events.TypePOI)
}

// TapMap probes a point near the fixed map centre. x and y are the tap
// position relative to the viewport. The probe is returned in its pending
// shape; identification runs in the background.
func (c *Coordinator) TapMap(x, y float64) (model.POICandidate, error) {
	if x < 0 || x > 1 || y < 0 || y > 1 {
		return model.POICandidate{}, ErrInvalidTap
	}

	c.mu.Lock()
	switch {
	case c.closed:
		c.mu.Unlock()
		return model.POICandidate{}, ErrClosed
	case !c.discovery:
		c.mu.Unlock()
		return model.POICandidate{}, ErrNotDiscovering
	case c.center == nil:
		c.mu.Unlock()
		return model.POICandidate{}, ErrNoFix
	case !c.online:
		c.mu.Unlock()
		return model.POICandidate{}, ErrOffline
	}

	probe := model.NewProbe(model.Coordinate{
		Lat: c.center.Lat + c.jitter()*c.cfg.ProbeJitter,
		Lng: c.center.Lng + c.jitter()*c.cfg.ProbeJitter,
	})
	selected := probe
	c.poi = &selected
	c.identifying = true
	c.poiSeq++
	seq := c.poiSeq
	near := c.location
	c.spawnLocked(func(ctx context.Context) {
		c.identify(ctx, probe, near, seq)
	})
	c.mu.Unlock()

	c.publish(events.TypePOI)
	return probe, nil
}

// identify enriches the probe, falling back to a canned landmark on failure.
// A newer probe supersedes the result; a dismissed card is shown again.
func (c *Coordinator) identify(ctx context.Context, probe model.POICandidate, near model.LocationContext, seq uint64) {
	enrichment, err := c.gw.IdentifyPOI(ctx, probe, near)
	if err != nil {
		c.logger.Warn("POI identification failed",
			zap.Float64("lat", probe.Lat), zap.Float64("lng", probe.Lng), zap.Error(err))
		enrichment = model.FallbackEnrichment()
	}

	merged := probe.Merge(enrichment)

	c.mu.Lock()
	if seq != c.poiSeq {
		c.mu.Unlock()
		return
	}
	c.poi = &merged
	c.identifying = false
	c.mu.Unlock()

	c.publish(events.TypePOI)
}

// DismissPOI closes the POI card
func (c *Coordinator) DismissPOI() {
	c.mu.Lock()
	c.poi = nil
	c.mu.Unlock()
	c.publish(events.TypePOI)
}

// GoPOI closes the card and leaves discovery mode
func (c *Coordinator) GoPOI() {
	c.mu.Lock()
	c.poi = nil
	c.discovery = false
	c.mu.Unlock()
	c.publish(events.TypePOI)
}

// ExplorePOI opens a fresh chat about the selected POI
func (c *Coordinator) ExplorePOI() error {
	c.mu.Lock()
	if c.poi == nil {
		c.mu.Unlock()
		return ErrNoPOI
	}
	seed := fmt.Sprintf("Tell me more about %s in %s.", c.poi.Name, c.location.City)
	c.openChatLocked(seed, nil)
	c.mu.Unlock()

	c.publish(events.TypeChat)
	return nil
}
