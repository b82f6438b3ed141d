package grants

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"permissions-manager/internal/db"
	"permissions-manager/internal/db/repository"
	"permissions-manager/internal/domain"
)

type materializerFixture struct {
	materializer *Materializer

	writeDB   *sql.DB
	groupRepo *repository.GroupRepo
	topicRepo *repository.TopicRepo
	appRepo   *repository.ApplicationRepo
	permRepo  *repository.ApplicationPermissionRepo
	durRepo   *repository.GrantDurationRepo
	grantRepo *repository.ApplicationGrantRepo
	docRepo   *repository.GrantDocumentRepo
}

func newMaterializerFixture(t *testing.T, now time.Time) *materializerFixture {
	writeDB, _ := db.OpenTestSQLite(t)

	f := &materializerFixture{
		writeDB:   writeDB,
		groupRepo: repository.NewGroupRepo(writeDB),
		topicRepo: repository.NewTopicRepo(writeDB),
		appRepo:   repository.NewApplicationRepo(writeDB),
		permRepo:  repository.NewApplicationPermissionRepo(writeDB),
		durRepo:   repository.NewGrantDurationRepo(writeDB),
		grantRepo: repository.NewApplicationGrantRepo(writeDB),
		docRepo:   repository.NewGrantDocumentRepo(writeDB),
	}
	f.materializer = NewMaterializer(f.appRepo, f.permRepo, f.grantRepo, f.durRepo, f.docRepo, 1, slog.Default())
	f.materializer.now = func() time.Time { return now }
	return f
}

func TestMaterializer_WindowFromShortestDuration(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f := newMaterializerFixture(t, now)
	ctx := context.Background()

	g, err := f.groupRepo.Create(ctx, &domain.Group{Name: "robotics"})
	require.NoError(t, err)
	app, err := f.appRepo.Create(ctx, &domain.Application{Name: "collector", GroupID: g.ID})
	require.NoError(t, err)

	long, err := f.durRepo.Create(ctx, &domain.GrantDuration{GroupID: g.ID, Name: "long", DurationSeconds: 7200})
	require.NoError(t, err)
	short, err := f.durRepo.Create(ctx, &domain.GrantDuration{GroupID: g.ID, Name: "short", DurationSeconds: 3600})
	require.NoError(t, err)
	_, err = f.grantRepo.Create(ctx, &domain.ApplicationGrant{Name: "first", ApplicationID: app.ID, GroupID: g.ID, GrantDurationID: long.ID, Subject: "CN=a"})
	require.NoError(t, err)
	_, err = f.grantRepo.Create(ctx, &domain.ApplicationGrant{Name: "second", ApplicationID: app.ID, GroupID: g.ID, GrantDurationID: short.ID, Subject: "CN=b"})
	require.NoError(t, err)

	doc, err := f.materializer.Materialize(ctx, app.ID)
	require.NoError(t, err)

	start := now.Add(-5 * time.Minute)
	assert.Contains(t, doc.Document, "<not_before>"+start.Format(time.RFC3339)+"</not_before>")
	assert.Contains(t, doc.Document, "<not_after>"+start.Add(time.Hour).Format(time.RFC3339)+"</not_after>")
	assert.Len(t, doc.ETag, 32)
	assert.Equal(t, strings.ToUpper(doc.ETag), doc.ETag)
}

func TestMaterializer_NoGrantsZeroLengthWindow(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f := newMaterializerFixture(t, now)
	ctx := context.Background()

	g, err := f.groupRepo.Create(ctx, &domain.Group{Name: "robotics"})
	require.NoError(t, err)
	app, err := f.appRepo.Create(ctx, &domain.Application{Name: "collector", GroupID: g.ID})
	require.NoError(t, err)

	doc, err := f.materializer.Materialize(ctx, app.ID)
	require.NoError(t, err)

	start := now.Add(-5 * time.Minute).Format(time.RFC3339)
	assert.Contains(t, doc.Document, "<not_before>"+start+"</not_before>")
	assert.Contains(t, doc.Document, "<not_after>"+start+"</not_after>")
}

func TestMaterializer_PermissionsBecomePublishAndSubscribe(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f := newMaterializerFixture(t, now)
	ctx := context.Background()

	g, err := f.groupRepo.Create(ctx, &domain.Group{Name: "robotics"})
	require.NoError(t, err)
	topic, err := f.topicRepo.Create(ctx, &domain.Topic{Name: "telemetry", Kind: domain.TopicKindB, GroupID: g.ID})
	require.NoError(t, err)
	app, err := f.appRepo.Create(ctx, &domain.Application{Name: "collector", GroupID: g.ID})
	require.NoError(t, err)

	// Readable and writable: the permission appears on both sides, each
	// with its own partition list.
	_, err = f.permRepo.Create(ctx, &domain.ApplicationPermission{
		ApplicationID:   app.ID,
		TopicID:         topic.ID,
		CanRead:         true,
		CanWrite:        true,
		ReadPartitions:  []string{"in"},
		WritePartitions: []string{"out"},
	})
	require.NoError(t, err)

	doc, err := f.materializer.Materialize(ctx, app.ID)
	require.NoError(t, err)

	canonical := fmt.Sprintf("B.%d.telemetry", g.ID)
	assert.Contains(t, doc.Document, "<publish>")
	assert.Contains(t, doc.Document, "<subscribe>")
	assert.Contains(t, doc.Document, "<topic>"+canonical+"</topic>")
	assert.Contains(t, doc.Document, "<partition>out</partition>")
	assert.Contains(t, doc.Document, "<partition>in</partition>")
	assert.Contains(t, doc.Document, fmt.Sprintf(`<grant name="application_%d">`, app.ID))
	assert.Contains(t, doc.Document, fmt.Sprintf("CN=%d,GN=collector,SN=%d", app.ID, g.ID))

	// The cached copy is what Fetch returns.
	cached, err := f.materializer.Fetch(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.ETag, cached.ETag)
}
