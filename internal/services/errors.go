package services

import (
	"errors"
	"fmt"
)

var (
	// ErrCampaignInactive covers unknown campaigns and campaigns outside their date window.
	ErrCampaignInactive = errors.New("campaign is not active")
	ErrCampaignNotFound = fmt.Errorf("%w: not found", ErrCampaignInactive)

	ErrSessionExpired      = errors.New("session expired")
	ErrDuplicateSubmission = errors.New("phone number already registered for this campaign")
	ErrAlreadySubmitted    = errors.New("scan already submitted")
	ErrScanNotFound        = errors.New("scan not found")

	ErrInvalidRewardStatus = errors.New("invalid reward status")
	ErrNotSubmitted        = errors.New("scan has no form submission")

	ErrInvalidDateRange = errors.New("start date must be on or before end date")
	ErrNotFound         = errors.New("record not found")
)

// ValidationError names the request field that failed validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
