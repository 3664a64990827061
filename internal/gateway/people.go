package gateway

import (
	"context"
	"fmt"
	"slices"

	"go.opentelemetry.io/otel/attribute"

	"github.com/nhle/sprintwithfriends/internal/model"
)

// ConnectedUserIDs returns the ids of the viewer's accepted connections.
func (l *Local) ConnectedUserIDs(ctx context.Context, viewer model.Identity) (_ []string, err error) {
	ctx, span := l.start(ctx, "ConnectedUserIDs", viewer)
	defer func() { finish(span, err) }()

	if err := requireViewer(viewer); err != nil {
		return nil, err
	}
	return l.store.ConnectedUserIDs(ctx, viewer.ID)
}

// ListConnections returns every connection the viewer is part of.
func (l *Local) ListConnections(ctx context.Context, viewer model.Identity) (_ []model.Connection, err error) {
	ctx, span := l.start(ctx, "ListConnections", viewer)
	defer func() { finish(span, err) }()

	if err := requireViewer(viewer); err != nil {
		return nil, err
	}
	return l.store.GetConnections(ctx, viewer.ID)
}

// GetProfiles returns public profiles for the viewer and their connections.
// Other ids are ignored.
func (l *Local) GetProfiles(ctx context.Context, viewer model.Identity, ids []string) (_ []model.Profile, err error) {
	ctx, span := l.start(ctx, "GetProfiles", viewer, attribute.Int("swf.requested", len(ids)))
	defer func() { finish(span, err) }()

	if err := requireViewer(viewer); err != nil {
		return nil, err
	}
	allowed, err := l.audience(ctx, viewer)
	if err != nil {
		return nil, err
	}
	ids = slices.DeleteFunc(slices.Clone(ids), func(id string) bool {
		return !slices.Contains(allowed, id)
	})
	return l.store.GetProfiles(ctx, ids)
}

// UpdateDisplayName renames the viewer.
func (l *Local) UpdateDisplayName(ctx context.Context, viewer model.Identity, name string) (_ *model.Profile, err error) {
	ctx, span := l.start(ctx, "UpdateDisplayName", viewer)
	defer func() { finish(span, err) }()

	if err := requireViewer(viewer); err != nil {
		return nil, err
	}
	if err := l.store.UpdateProfileName(ctx, viewer.ID, name); err != nil {
		return nil, fmt.Errorf("renaming %s: %w", viewer.ID, err)
	}
	return l.store.GetProfile(ctx, viewer.ID)
}
