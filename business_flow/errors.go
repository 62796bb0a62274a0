// Package businessflow contains the core business logic and use cases of the outreach engine
package businessflow

import (
	"errors"
	"fmt"

	"github.com/prbn021/seo-app/store"
)

// Business flow error constants
var (
	// Entity lookup errors
	ErrProjectNotFound  = store.ErrProjectNotFound
	ErrLeadNotFound     = store.ErrLeadNotFound
	ErrCampaignNotFound = store.ErrCampaignNotFound
	ErrDeliveryNotFound = store.ErrDeliveryNotFound

	// Campaign-related errors
	ErrCampaignHasNoProjects = errors.New("campaign has no associated projects")
	ErrInvalidChannel        = errors.New("invalid campaign channel")
	ErrInvalidSendTime       = errors.New("invalid step send time")

	// Lead-related errors
	ErrInvalidCrmStatus        = errors.New("invalid CRM status")
	ErrInvalidEngagementStatus = errors.New("invalid engagement status")
	ErrInvalidMoveDirection    = errors.New("move direction must be prev or next")
	ErrLeadUpdateRequired      = errors.New("at least one field must be provided for update")

	// Prospecting errors
	ErrKeywordRequired     = errors.New("keyword is required")
	ErrLeadProviderFailed  = errors.New("failed to generate leads")
	ErrLeadFinderNotConfig = errors.New("lead finder is not configured")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NewBusinessErrorf(code, message string, err error, args ...any) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: fmt.Sprintf(message, args...),
		Err:     err,
	}
}

func IsProjectNotFound(err error) bool {
	return errors.Is(err, ErrProjectNotFound)
}

func IsLeadNotFound(err error) bool {
	return errors.Is(err, ErrLeadNotFound)
}

func IsCampaignNotFound(err error) bool {
	return errors.Is(err, ErrCampaignNotFound)
}

func IsDeliveryNotFound(err error) bool {
	return errors.Is(err, ErrDeliveryNotFound)
}

func IsCampaignHasNoProjects(err error) bool {
	return errors.Is(err, ErrCampaignHasNoProjects)
}

func IsLeadProviderFailed(err error) bool {
	return errors.Is(err, ErrLeadProviderFailed)
}

// IsValidationError reports whether err was caused by invalid caller input
func IsValidationError(err error) bool {
	for _, target := range []error{
		ErrInvalidChannel,
		ErrInvalidSendTime,
		ErrInvalidCrmStatus,
		ErrInvalidEngagementStatus,
		ErrInvalidMoveDirection,
		ErrLeadUpdateRequired,
		ErrKeywordRequired,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsNotFound reports whether err is any entity lookup failure
func IsNotFound(err error) bool {
	return IsProjectNotFound(err) || IsLeadNotFound(err) || IsCampaignNotFound(err) || IsDeliveryNotFound(err)
}
