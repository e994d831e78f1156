package coordinator

import (
	"context"
	"time"

	"github.com/alexivanou/roamai/internal/events"
	"github.com/alexivanou/roamai/internal/model"
	"github.com/alexivanou/roamai/internal/watcher"
	"go.uber.org/zap"
)

// Position feeds a position update from the device
func (c *Coordinator) Position(ctx context.Context, at model.Coordinate) error {
	return c.watcherErr(c.watcher.Position(ctx, at))
}

// PositionError feeds a geolocation failure from the device
func (c *Coordinator) PositionError(ctx context.Context, code int, message string) error {
	return c.watcherErr(c.watcher.PositionError(ctx, code, message))
}

// Connectivity feeds a network state change from the device
func (c *Coordinator) Connectivity(ctx context.Context, online bool) error {
	return c.watcherErr(c.watcher.Connectivity(ctx, online))
}

func (c *Coordinator) watcherErr(err error) error {
	if err == watcher.ErrClosed {
		return ErrClosed
	}
	return err
}

// sensorHandler adapts the coordinator to watcher callbacks
type sensorHandler struct {
	c *Coordinator
}

func (h sensorHandler) OnPosition(at model.Coordinate) {
	c := h.c
	c.mu.Lock()
	c.coords = &at
	if c.center == nil {
		center := at
		c.center = &center
	}
	c.denied = false

	if watcher.ShouldResolve(c.lastResolved, at, c.cfg.GeocodeThreshold) {
		resolved := at
		c.lastResolved = &resolved
		if c.online {
			c.startGeocodeLocked(at)
		} else {
			// offline: skip the call but stop showing progress
			c.location.IsLocating = false
		}
	}
	c.mu.Unlock()

	c.publish(events.TypeLocation)
}

func (h sensorHandler) OnPositionError(code int, message string) {
	c := h.c
	c.mu.Lock()
	c.location.IsLocating = false
	c.location.Error = model.LocationAccessDenied
	c.denied = true
	c.lastResolved = nil
	// results of a geocode issued before the failure are stale
	c.geocodeSeq++
	c.mu.Unlock()

	c.logger.Warn("Location unavailable", zap.Int("code", code), zap.String("message", message))
	c.publish(events.TypeLocation)
}

func (h sensorHandler) OnOnline() {
	c := h.c
	c.mu.Lock()
	c.online = true
	c.backOnline = true
	if c.backOnlineTimer != nil {
		c.backOnlineTimer.Stop()
	}
	c.backOnlineTimer = time.AfterFunc(c.cfg.BackOnlineWindow, c.hideBackOnline)
	if c.coords != nil && !c.denied {
		c.startGeocodeLocked(*c.coords)
	}
	c.mu.Unlock()

	c.logger.Info("Back online")
	c.publish(events.TypeConnectivity)
}

func (h sensorHandler) OnOffline() {
	c := h.c
	c.mu.Lock()
	c.online = false
	c.backOnline = false
	if c.backOnlineTimer != nil {
		c.backOnlineTimer.Stop()
	}
	c.mu.Unlock()

	c.logger.Info("Offline")
	c.publish(events.TypeConnectivity)
}

func (c *Coordinator) hideBackOnline() {
	c.mu.Lock()
	if c.closed || !c.backOnline {
		c.mu.Unlock()
		return
	}
	c.backOnline = false
	c.mu.Unlock()
	c.publish(events.TypeConnectivity)
}

// startGeocodeLocked issues a reverse-geocode; only the latest one is applied
func (c *Coordinator) startGeocodeLocked(at model.Coordinate) {
	c.geocodeSeq++
	seq := c.geocodeSeq
	c.spawnLocked(func(ctx context.Context) {
		c.resolve(ctx, at, seq)
	})
}

func (c *Coordinator) resolve(ctx context.Context, at model.Coordinate, seq uint64) {
	place, err := c.gw.ReverseGeocode(ctx, at)

	c.mu.Lock()
	if seq != c.geocodeSeq {
		c.mu.Unlock()
		c.logger.Debug("Dropping stale geocode", zap.Float64("lat", at.Lat), zap.Float64("lng", at.Lng))
		return
	}
	if err != nil {
		c.location.IsLocating = false
		c.mu.Unlock()
		c.logger.Warn("Reverse geocode failed", zap.Float64("lat", at.Lat), zap.Float64("lng", at.Lng), zap.Error(err))
		c.publish(events.TypeLocation)
		return
	}
	c.location = model.Resolved(place.City, place.Country)
	c.requestSuggestionsLocked(place.City, place.Country)
	c.mu.Unlock()

	c.logger.Info("Location resolved", zap.String("city", place.City), zap.String("country", place.Country))
	c.publish(events.TypeLocation)
}

// requestSuggestionsLocked fetches quick suggestions unless offline or
// already fetched or fetching for this city
func (c *Coordinator) requestSuggestionsLocked(city, country string) {
	if !c.online || city == c.suggestionCity || city == c.pendingCity {
		return
	}
	c.pendingCity = city
	c.suggestionsLoading = true
	c.spawnLocked(func(ctx context.Context) {
		c.fetchSuggestions(ctx, city, country)
	})
}

func (c *Coordinator) fetchSuggestions(ctx context.Context, city, country string) {
	list, err := c.gw.QuickSuggestions(ctx, city, country)

	c.mu.Lock()
	if c.pendingCity != city {
		c.mu.Unlock()
		return
	}
	c.pendingCity = ""
	c.suggestionsLoading = false
	if err == nil {
		if limit := c.cfg.SuggestionLimit; limit > 0 && len(list) > limit {
			list = list[:limit]
		}
		c.suggestions = list
		c.suggestionCity = city
	}
	c.mu.Unlock()

	if err != nil {
		c.logger.Warn("Quick suggestions failed", zap.String("city", city), zap.Error(err))
	}
	c.publish(events.TypeSuggestions)
}
