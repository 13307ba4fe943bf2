package services

import "errors"

// Service errors
var (
	// Dataset errors
	ErrNoDataset   = errors.New("no player dataset loaded")
	ErrEmptySource = errors.New("dataset source path is empty")

	// League errors
	ErrLeagueNotFound = errors.New("league not found")
	ErrInvalidTier    = errors.New("invalid league tier")
)
