package domain

import "errors"

var (
	ErrNotFound = errors.New("not found")
	// ErrNoData is returned by history queries when nothing has been recorded
	// for a ticker yet.
	ErrNoData = errors.New("no recorded data")
	// ErrNoChannel is returned when a guild has no viable channel to post
	// alerts to.
	ErrNoChannel = errors.New("no alert channel available")
	// ErrAllBasesFailed is returned by the market-data client when every
	// configured API base was exhausted.
	ErrAllBasesFailed = errors.New("all API bases failed")
)
