package grants

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"permissions-manager/internal/db/repository"
	"permissions-manager/internal/domain"
	"permissions-manager/internal/service/security"
)

func TestGrantService_MutationsDropCachedDocument(t *testing.T) {
	f := newMaterializerFixture(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()

	memberRepo := repository.NewGroupUserRepo(f.writeDB)
	resolver := security.NewResolver(memberRepo, slog.Default())
	svc := NewGrantService(f.grantRepo, f.durRepo, f.appRepo, f.docRepo,
		resolver, domain.NopNotifier{}, slog.Default())
	admin := domain.Principal{UserID: 1, Email: "root@unity.test", IsAdmin: true}

	g, err := f.groupRepo.Create(ctx, &domain.Group{Name: "robotics"})
	require.NoError(t, err)
	app, err := f.appRepo.Create(ctx, &domain.Application{Name: "collector", GroupID: g.ID})
	require.NoError(t, err)
	dur, err := f.durRepo.Create(ctx, &domain.GrantDuration{GroupID: g.ID, Name: "hour", DurationSeconds: 3600})
	require.NoError(t, err)

	cacheDocument := func() {
		require.NoError(t, f.docRepo.Put(ctx, &domain.GrantDocument{
			ApplicationID: app.ID, Document: "<dds>cached</dds>", ETag: "AAAA",
			CompiledAt: time.Now().UTC(),
		}))
	}
	var notFound *domain.NotFoundError

	cacheDocument()
	grant, err := svc.Create(ctx, admin, domain.CreateApplicationGrantRequest{
		Name: "nightly", ApplicationID: app.ID, GroupID: g.ID,
		GrantDurationID: dur.ID, Subject: "CN=collector",
	})
	require.NoError(t, err)
	_, err = f.docRepo.Get(ctx, app.ID)
	require.ErrorAs(t, err, &notFound)

	cacheDocument()
	require.NoError(t, svc.Delete(ctx, admin, grant.ID))
	_, err = f.docRepo.Get(ctx, app.ID)
	require.ErrorAs(t, err, &notFound)
}
