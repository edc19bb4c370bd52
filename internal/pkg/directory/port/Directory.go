package directory

import "context"

// Directory resolves display data for members and expos. It feeds previews
// and room titles only; authorization never consults it.
type Directory interface {
	// MemberName returns the display name for a member, or a fallback
	// placeholder when the member is unknown.
	MemberName(ctx context.Context, memberID int64) (string, error)

	// ExpoTitle returns the exhibition title for an expo.
	ExpoTitle(ctx context.Context, expoID int64) (string, error)

	// AdminDisplayName returns an operator's public name for the given
	// admin code.
	AdminDisplayName(ctx context.Context, adminCode string) (string, error)
}
