package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"stayhub/internal/domain/occupancy"
	"stayhub/internal/domain/property"
	"stayhub/internal/domain/shared/daterange"
)

type fixtureTargets struct {
	properties interface {
		Save(ctx context.Context, p property.Property) error
	}
	bookings interface {
		Save(ctx context.Context, b occupancy.Booking) error
	}
	blocks occupancy.BlockRepository
}

type fixtureFile struct {
	Properties []propertyFixture `json:"properties"`
	Bookings   []bookingFixture  `json:"bookings"`
	Blocks     []blockFixture    `json:"blocks"`
}

type propertyFixture struct {
	ID        int64             `json:"id"`
	Name      string            `json:"name"`
	RoomsSpec property.Document `json:"rooms_spec"`
	Layout    property.Document `json:"layout"`
}

type bookingFixture struct {
	ID          int64    `json:"id"`
	PropertyID  int64    `json:"property_id"`
	CheckIn     string   `json:"check_in"`
	CheckOut    string   `json:"check_out"`
	Status      string   `json:"status"`
	RoomCode    string   `json:"room_code"`
	GuestName   string   `json:"guest_name"`
	TotalAmount *float64 `json:"total_amount"`
}

type blockFixture struct {
	ID          int64  `json:"id"`
	PropertyID  int64  `json:"property_id"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	RoomCode    string `json:"room_code"`
	Source      string `json:"source"`
	BedsBlocked int    `json:"beds_blocked"`
}

// loadFixtures seeds the in-memory stores. Invalid entries are logged and skipped.
func loadFixtures(ctx context.Context, path string, to fixtureTargets, logger *slog.Logger) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Info("property fixtures file not found, skipping", "path", path)
			return nil
		}
		return fmt.Errorf("read fixtures: %w", err)
	}
	if len(data) == 0 {
		logger.Warn("property fixtures file empty", "path", path)
		return nil
	}
	var file fixtureFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("decode fixtures: %w", err)
	}

	for _, fx := range file.Properties {
		if fx.ID <= 0 {
			logger.Error("fixture invalid", "property_id", fx.ID, "error", occupancy.ErrPropertyMissing)
			continue
		}
		p := property.Property{ID: property.ID(fx.ID), Name: fx.Name, RoomsSpec: fx.RoomsSpec, Layout: fx.Layout}
		if err := to.properties.Save(ctx, p); err != nil {
			logger.Error("cannot store fixture property", "property_id", fx.ID, "error", err)
		}
	}

	for _, fx := range file.Bookings {
		stay, err := fixtureRange(fx.CheckIn, fx.CheckOut)
		if err != nil {
			logger.Error("fixture invalid", "booking_id", fx.ID, "error", err)
			continue
		}
		b := occupancy.Booking{
			ID:          fx.ID,
			PropertyID:  property.ID(fx.PropertyID),
			Stay:        stay,
			Status:      occupancy.BookingStatus(fx.Status),
			RoomCode:    fx.RoomCode,
			GuestName:   fx.GuestName,
			TotalAmount: fx.TotalAmount,
		}
		if err := to.bookings.Save(ctx, b); err != nil {
			logger.Error("cannot store fixture booking", "booking_id", fx.ID, "error", err)
		}
	}

	for _, fx := range file.Blocks {
		period, err := fixtureRange(fx.StartDate, fx.EndDate)
		if err != nil {
			logger.Error("fixture invalid", "block_id", fx.ID, "error", err)
			continue
		}
		block, err := occupancy.NewBlock(occupancy.PlaceParams{
			ID:          fx.ID,
			PropertyID:  property.ID(fx.PropertyID),
			Period:      period,
			RoomCode:    fx.RoomCode,
			Source:      fx.Source,
			BedsBlocked: fx.BedsBlocked,
		})
		if err != nil {
			logger.Error("fixture invalid", "block_id", fx.ID, "error", err)
			continue
		}
		if err := to.blocks.Save(ctx, block); err != nil {
			logger.Error("cannot store fixture block", "block_id", fx.ID, "error", err)
		}
	}

	logger.Info("property fixtures imported",
		"properties", len(file.Properties), "bookings", len(file.Bookings), "blocks", len(file.Blocks))
	return nil
}

func fixtureRange(start, end string) (daterange.DateRange, error) {
	s, err := daterange.ParseDate(start)
	if err != nil {
		return daterange.DateRange{}, err
	}
	e, err := daterange.ParseDate(end)
	if err != nil {
		return daterange.DateRange{}, err
	}
	return daterange.New(s, e)
}
