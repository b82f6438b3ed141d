package grants

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"permissions-manager/internal/domain"
)

// outerWindowSkew backdates the document's not_before so that clients with
// slightly slow clocks accept a freshly issued document.
const outerWindowSkew = 5 * time.Minute

// Materializer turns an application's stored permissions and grants into a
// cached permission document.
type Materializer struct {
	apps      domain.ApplicationRepository
	perms     domain.ApplicationPermissionRepository
	grants    domain.ApplicationGrantRepository
	durations domain.GrantDurationRepository
	docs      domain.GrantDocumentRepository
	domainID  int64
	logger    *slog.Logger

	now func() time.Time
}

func NewMaterializer(apps domain.ApplicationRepository, perms domain.ApplicationPermissionRepository, grants domain.ApplicationGrantRepository, durations domain.GrantDurationRepository, docs domain.GrantDocumentRepository, domainID int64, logger *slog.Logger) *Materializer {
	return &Materializer{
		apps:      apps,
		perms:     perms,
		grants:    grants,
		durations: durations,
		docs:      docs,
		domainID:  domainID,
		logger:    logger,
		now:       time.Now,
	}
}

// Materialize compiles and caches the application's permission document,
// returning the stored result.
func (m *Materializer) Materialize(ctx context.Context, applicationID int64) (*domain.GrantDocument, error) {
	app, err := m.apps.GetByID(ctx, applicationID)
	if err != nil {
		return nil, err
	}

	in, err := m.buildInput(ctx, app)
	if err != nil {
		return nil, err
	}
	document, err := Compile(in)
	if err != nil {
		m.logger.Error("grant compilation failed", "application_id", applicationID, "error", err)
		return nil, err
	}

	sum := md5.Sum([]byte(document))
	doc := &domain.GrantDocument{
		ApplicationID: applicationID,
		Document:      document,
		ETag:          strings.ToUpper(hex.EncodeToString(sum[:])),
		CompiledAt:    m.now().UTC(),
	}
	if err := m.docs.Put(ctx, doc); err != nil {
		return nil, err
	}
	m.logger.Debug("grant document materialized", "application_id", applicationID, "etag", doc.ETag)
	return doc, nil
}

// Fetch returns the cached document, materializing on first access.
func (m *Materializer) Fetch(ctx context.Context, applicationID int64) (*domain.GrantDocument, error) {
	doc, err := m.docs.Get(ctx, applicationID)
	if err == nil {
		return doc, nil
	}
	return m.Materialize(ctx, applicationID)
}

func (m *Materializer) buildInput(ctx context.Context, app *domain.Application) (CompileInput, error) {
	grantList, err := m.grants.ListByApplication(ctx, app.ID)
	if err != nil {
		return CompileInput{}, err
	}
	resolved, err := m.perms.ListResolved(ctx, app.ID)
	if err != nil {
		return CompileInput{}, err
	}

	start, end, err := m.outerWindow(ctx, grantList)
	if err != nil {
		return CompileInput{}, err
	}

	in := CompileInput{
		ApplicationID: app.ID,
		Subject:       subjectName(app),
		DomainID:      m.domainID,
		ValidStart:    formatInstant(start),
		ValidEnd:      formatInstant(end),
	}

	for _, rp := range resolved {
		entry := PubSubEntry{
			Topics:     []string{rp.Topic.CanonicalName()},
			ValidStart: in.ValidStart,
			ValidEnd:   in.ValidEnd,
		}
		if rp.Permission.ValidStart != nil && rp.Permission.ValidEnd != nil {
			entry.ValidStart = formatInstant(*rp.Permission.ValidStart)
			entry.ValidEnd = formatInstant(*rp.Permission.ValidEnd)
		}
		if rp.Permission.CanWrite {
			pub := entry
			pub.Partitions = rp.Permission.WritePartitions
			in.Publishes = append(in.Publishes, pub)
		}
		if rp.Permission.CanRead {
			sub := entry
			sub.Partitions = rp.Permission.ReadPartitions
			in.Subscribes = append(in.Subscribes, sub)
		}
	}
	return in, nil
}

// outerWindow computes the document's validity: now(UTC) minus the clock
// skew through the shortest of the application's grant durations. An
// application with no grants gets a zero-length window.
func (m *Materializer) outerWindow(ctx context.Context, grantList []domain.ApplicationGrant) (time.Time, time.Time, error) {
	start := m.now().UTC().Add(-outerWindowSkew)
	if len(grantList) == 0 {
		return start, start, nil
	}

	var min int64 = -1
	for _, g := range grantList {
		d, err := m.durations.GetByID(ctx, g.GrantDurationID)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		if min < 0 || d.DurationSeconds < min {
			min = d.DurationSeconds
		}
	}
	return start, start.Add(time.Duration(min) * time.Second), nil
}

func subjectName(app *domain.Application) string {
	name := strings.ReplaceAll(app.Name, ",", `\,`)
	return fmt.Sprintf("CN=%d,GN=%s,SN=%d", app.ID, name, app.GroupID)
}

func formatInstant(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
