package portal

import (
	"context"

	"sportscentre/internal/components/telemetry"
	"sportscentre/internal/portal/pages"

	"go.opentelemetry.io/otel/codes"
)

const (
	report_profile_load    = "profile.load"
	report_profile_binding = "profile.binding"
)

// User is the account holder's details.
type User = pages.Profile

// ProfileLoader reads the account holder's details.
type ProfileLoader struct {
	markup ProfilePage
	tel    telemetry.API
}

func NewProfileLoader(markup ProfilePage, tel telemetry.API) ProfileLoader {
	return ProfileLoader{
		markup: markup,
		tel:    telemetry.NewScopedAPI("profile", tel),
	}
}

// Profile binds the profile page's labelled blocks to User by label. Blocks are only bound by
// position when no label is recognized at all.
func (l ProfileLoader) Profile(ctx context.Context, s *Session) (User, error) {
	ctx, span := tracer.Start(ctx, "profile")
	defer span.End()

	s.mu.RLock()
	defer s.mu.RUnlock()

	body, err := s.get(ctx, "profile", pathProfile)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch profile")
		l.tel.ReportBroken(report_profile_load, err)
		return User{}, err
	}

	details, err := l.markup.ProfileDetails(body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse profile")
		l.tel.ReportBroken(report_profile_load, err)
		return User{}, err
	}

	user, binding, unbound := pages.BindProfile(details)
	if binding == pages.BindByPosition {
		l.tel.ReportWarning(report_profile_binding, "no label recognized, bound by position")
	}
	if len(unbound) > 0 {
		l.tel.ReportWarning(report_profile_binding, "unrecognized labels", unbound)
	}
	return user, nil
}
