package domain

import (
	"strings"

	apperrors "github.com/spec-kit/coverage-service/pkg/util/errorutil"
)

// AppStatus is the escalation status vocabulary exposed to clients.
type AppStatus string

const (
	StatusSubmitted           AppStatus = "SUBMITTED"
	StatusUnderReview         AppStatus = "UNDER_REVIEW"
	StatusResolvedLaunched    AppStatus = "RESOLVED_LAUNCHED"
	StatusResolvedNotLaunched AppStatus = "RESOLVED_NOT_LAUNCHED"
	StatusResolvedWithdrawn   AppStatus = "RESOLVED_WITHDRAWN"
)

// StorageStatus is the escalation status vocabulary persisted in the
// escalation_status column type.
type StorageStatus string

const (
	StorageStatusOpen            StorageStatus = "OPEN"
	StorageStatusInReview        StorageStatus = "IN_REVIEW"
	StorageStatusAlignedLaunch   StorageStatus = "ALIGNED_LAUNCH"
	StorageStatusAlignedNoLaunch StorageStatus = "ALIGNED_NO_LAUNCH"
	StorageStatusWithdrawn       StorageStatus = "WITHDRAWN"
)

const resolvedPrefix = "RESOLVED_"

var appToStorage = map[AppStatus]StorageStatus{
	StatusSubmitted:           StorageStatusOpen,
	StatusUnderReview:         StorageStatusInReview,
	StatusResolvedLaunched:    StorageStatusAlignedLaunch,
	StatusResolvedNotLaunched: StorageStatusAlignedNoLaunch,
	StatusResolvedWithdrawn:   StorageStatusWithdrawn,
}

var storageToApp = invertStatuses(appToStorage)

func invertStatuses(in map[AppStatus]StorageStatus) map[StorageStatus]AppStatus {
	out := make(map[StorageStatus]AppStatus, len(in))
	for app, stored := range in {
		if _, dup := out[stored]; dup {
			panic("domain: status mapping is not injective for " + string(stored))
		}
		out[stored] = app
	}
	return out
}

// AppStatuses lists every application status in workflow order.
func AppStatuses() []AppStatus {
	return []AppStatus{
		StatusSubmitted,
		StatusUnderReview,
		StatusResolvedLaunched,
		StatusResolvedNotLaunched,
		StatusResolvedWithdrawn,
	}
}

// ToStorageStatus maps an application status to its persisted form.
func ToStorageStatus(s AppStatus) (StorageStatus, error) {
	stored, ok := appToStorage[s]
	if !ok {
		return "", apperrors.NewInvalidStatus(string(s))
	}
	return stored, nil
}

// ToAppStatus maps a persisted status back to the application vocabulary.
func ToAppStatus(s StorageStatus) (AppStatus, error) {
	app, ok := storageToApp[s]
	if !ok {
		return "", apperrors.NewInvalidStatus(string(s))
	}
	return app, nil
}

// ParseAppStatus normalizes raw input and validates it.
func ParseAppStatus(raw string) (AppStatus, error) {
	s := AppStatus(strings.ToUpper(strings.TrimSpace(raw)))
	if _, ok := appToStorage[s]; !ok {
		return "", apperrors.NewInvalidStatus(raw)
	}
	return s, nil
}

// Valid reports whether s belongs to the application vocabulary.
func (s AppStatus) Valid() bool {
	_, ok := appToStorage[s]
	return ok
}

// IsResolved reports whether s is one of the RESOLVED_* terminal states.
func (s AppStatus) IsResolved() bool {
	return s.Valid() && strings.HasPrefix(string(s), resolvedPrefix)
}

// IsLaunched reports whether s means the market was aligned to launch.
func (s AppStatus) IsLaunched() bool {
	return s == StatusResolvedLaunched
}
