package profile

import (
	"time"

	"github.com/khoahotran/career-path/internal/domain/profile"
)

type SourceHealth int

const (
	// SourceAvailable: the source answered with a row.
	SourceAvailable SourceHealth = iota
	// SourceMissing: the source answered and has no row.
	SourceMissing
	// SourceUnavailable: the source could not answer (network, driver,
	// corrupt entry).
	SourceUnavailable
)

func (h SourceHealth) String() string {
	switch h {
	case SourceAvailable:
		return "available"
	case SourceMissing:
		return "missing"
	default:
		return "unavailable"
	}
}

type Reading struct {
	Profile *profile.Profile
	Health  SourceHealth
	Err     error
}

type Origin string

const (
	OriginRemote  Origin = "remote"
	OriginCache   Origin = "cache"
	OriginSession Origin = "session"
	OriginMemory  Origin = "memory"
	OriginNone    Origin = "none"
)

// Decision is what resolution should do with the readings it got.
type Decision struct {
	Profile  *profile.Profile
	Origin   Origin
	Degraded bool
	Err      error

	WriteCache    bool
	StampRemote   bool
	CreateRemote  bool
	NotifyBackend bool
}

// Reconcile merges the remote store and cache readings for a session into one
// decision. held is the profile already in memory; it is kept as a degraded
// last resort when neither source can supply one. It does no I/O. The
// returned profile, if any, always carries the session user id.
func Reconcile(s *profile.Session, remote, cache Reading, held *profile.Profile, now time.Time) Decision {
	if remote.Health == SourceAvailable && !remote.Profile.BelongsTo(s) {
		remote = Reading{Health: SourceUnavailable, Err: profile.ErrIDMismatch}
	}
	cached := cache.Health == SourceAvailable && cache.Profile.BelongsTo(s)

	switch remote.Health {
	case SourceAvailable:
		p := remote.Profile.Clone()
		p.FillFromSession(s)
		p.LastSignIn = &now
		return Decision{
			Profile:     p,
			Origin:      OriginRemote,
			WriteCache:  true,
			StampRemote: true,
		}

	case SourceMissing:
		var p *profile.Profile
		origin := OriginSession
		if cached {
			p = cache.Profile.Clone()
			p.FillFromSession(s)
			p.LastSignIn = &now
			origin = OriginCache
		} else {
			p = profile.NewFromSession(s, now)
		}
		return Decision{
			Profile:       p,
			Origin:        origin,
			WriteCache:    true,
			CreateRemote:  true,
			NotifyBackend: true,
		}
	}

	if cached {
		return Decision{
			Profile:  cache.Profile.Clone(),
			Origin:   OriginCache,
			Degraded: true,
			Err:      remote.Err,
		}
	}
	if held.BelongsTo(s) {
		return Decision{
			Profile:  held.Clone(),
			Origin:   OriginMemory,
			Degraded: true,
			Err:      remote.Err,
		}
	}
	return Decision{Origin: OriginNone, Degraded: true, Err: remote.Err}
}
