package service_test

import (
	"context"
	"database/sql"
	"sort"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/remvault/remvault/internal/domain"
	"github.com/remvault/remvault/internal/events"
	"github.com/remvault/remvault/internal/store"
	"github.com/stretchr/testify/require"
)

// newTxDB returns a sqlmock database that tolerates any number of
// transactions. Service tests exercise real store logic through in-memory
// fakes; the database only has to hand out transactions.
func newTxDB(t *testing.T) *sql.DB {
	t.Helper()

	db, dbMock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	dbMock.MatchExpectationsInOrder(false)
	for i := 0; i < 32; i++ {
		dbMock.ExpectBegin()
		dbMock.ExpectCommit()
		dbMock.ExpectRollback()
	}
	return db
}

// fakeRemStore is an in-memory RemStore keyed by (user, slug).
type fakeRemStore struct {
	rems map[uuid.UUID]*domain.Rem
}

func newFakeRemStore() *fakeRemStore {
	return &fakeRemStore{rems: make(map[uuid.UUID]*domain.Rem)}
}

func (f *fakeRemStore) Create(ctx context.Context, rem *domain.Rem) error {
	for _, existing := range f.rems {
		if existing.UserID == rem.UserID && existing.Slug == rem.Slug && existing.DeletedAt == nil {
			return store.ErrSlugExists
		}
	}
	clone := *rem
	f.rems[rem.ID] = &clone
	return nil
}

func (f *fakeRemStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Rem, error) {
	rem, ok := f.rems[id]
	if !ok {
		return nil, store.ErrRemNotFound
	}
	clone := *rem
	return &clone, nil
}

func (f *fakeRemStore) GetBySlug(ctx context.Context, userID uuid.UUID, slug string) (*domain.Rem, error) {
	for _, rem := range f.rems {
		if rem.UserID == userID && rem.Slug == slug && rem.DeletedAt == nil {
			clone := *rem
			return &clone, nil
		}
	}
	return nil, store.ErrRemNotFound
}

func (f *fakeRemStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Rem, error) {
	var out []*domain.Rem
	for _, rem := range f.rems {
		if rem.UserID == userID && rem.DeletedAt == nil {
			clone := *rem
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out, nil
}

func (f *fakeRemStore) Update(ctx context.Context, rem *domain.Rem) error {
	existing, ok := f.rems[rem.ID]
	if !ok || existing.DeletedAt != nil {
		return store.ErrRemNotFound
	}
	clone := *rem
	clone.UpdatedAt = time.Now().UTC()
	f.rems[rem.ID] = &clone
	return nil
}

func (f *fakeRemStore) Delete(ctx context.Context, id uuid.UUID) error {
	existing, ok := f.rems[id]
	if !ok || existing.DeletedAt != nil {
		return store.ErrRemNotFound
	}
	now := time.Now().UTC()
	existing.DeletedAt = &now
	return nil
}

func (f *fakeRemStore) WithTx(tx *sql.Tx) store.RemStore { return f }

// fakeScheduleStore is an in-memory ScheduleStore keyed by (user, rem).
type fakeScheduleStore struct {
	schedules map[uuid.UUID]*domain.RemSchedule // keyed by rem ID
}

func newFakeScheduleStore() *fakeScheduleStore {
	return &fakeScheduleStore{schedules: make(map[uuid.UUID]*domain.RemSchedule)}
}

func (f *fakeScheduleStore) Create(ctx context.Context, schedule *domain.RemSchedule) error {
	clone := *schedule
	f.schedules[schedule.RemID] = &clone
	return nil
}

func (f *fakeScheduleStore) Get(ctx context.Context, userID, remID uuid.UUID) (*domain.RemSchedule, error) {
	schedule, ok := f.schedules[remID]
	if !ok || schedule.UserID != userID {
		return nil, store.ErrScheduleNotFound
	}
	clone := *schedule
	return &clone, nil
}

func (f *fakeScheduleStore) GetForUpdate(ctx context.Context, userID, remID uuid.UUID) (*domain.RemSchedule, error) {
	return f.Get(ctx, userID, remID)
}

func (f *fakeScheduleStore) Update(ctx context.Context, schedule *domain.RemSchedule) error {
	if _, ok := f.schedules[schedule.RemID]; !ok {
		return store.ErrScheduleNotFound
	}
	clone := *schedule
	f.schedules[schedule.RemID] = &clone
	return nil
}

func (f *fakeScheduleStore) GetNextDue(ctx context.Context, userID uuid.UUID, now time.Time) (*domain.RemSchedule, error) {
	var best *domain.RemSchedule
	for _, schedule := range f.schedules {
		if schedule.UserID != userID || schedule.NextReviewAt.After(now) {
			continue
		}
		if best == nil || schedule.NextReviewAt.Before(best.NextReviewAt) {
			best = schedule
		}
	}
	if best == nil {
		return nil, store.ErrScheduleNotFound
	}
	clone := *best
	return &clone, nil
}

func (f *fakeScheduleStore) CountDue(ctx context.Context, userID uuid.UUID, now time.Time) (int, error) {
	count := 0
	for _, schedule := range f.schedules {
		if schedule.UserID == userID && !schedule.NextReviewAt.After(now) {
			count++
		}
	}
	return count, nil
}

func (f *fakeScheduleStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.RemSchedule, error) {
	var out []*domain.RemSchedule
	for _, schedule := range f.schedules {
		if schedule.UserID == userID {
			clone := *schedule
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NextReviewAt.Before(out[j].NextReviewAt) })
	return out, nil
}

func (f *fakeScheduleStore) Delete(ctx context.Context, userID, remID uuid.UUID) error {
	schedule, ok := f.schedules[remID]
	if !ok || schedule.UserID != userID {
		return store.ErrScheduleNotFound
	}
	delete(f.schedules, remID)
	return nil
}

func (f *fakeScheduleStore) WithTx(tx *sql.Tx) store.ScheduleStore { return f }

// fakeLinkStore is an in-memory LinkStore.
type fakeLinkStore struct {
	links []store.Link
}

func newFakeLinkStore() *fakeLinkStore {
	return &fakeLinkStore{}
}

func (f *fakeLinkStore) ReplaceForSlug(ctx context.Context, userID uuid.UUID, fromSlug string, toSlugs []string) error {
	_ = f.DeleteForSlug(ctx, userID, fromSlug)
	for _, target := range toSlugs {
		f.links = append(f.links, store.Link{UserID: userID, FromSlug: fromSlug, ToSlug: target})
	}
	return nil
}

func (f *fakeLinkStore) Backlinks(ctx context.Context, userID uuid.UUID, slug string) ([]string, error) {
	var out []string
	for _, link := range f.links {
		if link.UserID == userID && link.ToSlug == slug {
			out = append(out, link.FromSlug)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (f *fakeLinkStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]store.Link, error) {
	var out []store.Link
	for _, link := range f.links {
		if link.UserID == userID {
			out = append(out, link)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].FromSlug != out[j].FromSlug {
			return out[i].FromSlug < out[j].FromSlug
		}
		return out[i].ToSlug < out[j].ToSlug
	})
	return out, nil
}

func (f *fakeLinkStore) DeleteForSlug(ctx context.Context, userID uuid.UUID, fromSlug string) error {
	kept := f.links[:0]
	for _, link := range f.links {
		if !(link.UserID == userID && link.FromSlug == fromSlug) {
			kept = append(kept, link)
		}
	}
	f.links = kept
	return nil
}

func (f *fakeLinkStore) WithTx(tx *sql.Tx) store.LinkStore { return f }

// outbound returns the sorted targets of a source slug.
func (f *fakeLinkStore) outbound(userID uuid.UUID, fromSlug string) []string {
	var out []string
	for _, link := range f.links {
		if link.UserID == userID && link.FromSlug == fromSlug {
			out = append(out, link.ToSlug)
		}
	}
	sort.Strings(out)
	return out
}

// fakeChatStore is an in-memory ChatStore.
type fakeChatStore struct {
	chats map[uuid.UUID]*domain.Chat
}

func newFakeChatStore() *fakeChatStore {
	return &fakeChatStore{chats: make(map[uuid.UUID]*domain.Chat)}
}

func (f *fakeChatStore) Create(ctx context.Context, chat *domain.Chat) error {
	clone := *chat
	f.chats[chat.ID] = &clone
	return nil
}

func (f *fakeChatStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Chat, error) {
	chat, ok := f.chats[id]
	if !ok {
		return nil, store.ErrChatNotFound
	}
	clone := *chat
	return &clone, nil
}

func (f *fakeChatStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Chat, error) {
	var out []*domain.Chat
	for _, chat := range f.chats {
		if chat.UserID == userID {
			clone := *chat
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeChatStore) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.ChatStatus) error {
	chat, ok := f.chats[id]
	if !ok {
		return store.ErrChatNotFound
	}
	chat.Status = status
	chat.UpdatedAt = time.Now().UTC()
	return nil
}

func (f *fakeChatStore) WithTx(tx *sql.Tx) store.ChatStore { return f }

// recordingEmitter captures emitted task request events.
type recordingEmitter struct {
	events []*events.TaskRequestEvent
	err    error
}

func (r *recordingEmitter) EmitEvent(ctx context.Context, event *events.TaskRequestEvent) error {
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, event)
	return nil
}
