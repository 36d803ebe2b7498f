package sync

import (
	"context"
	"log"
	"time"

	"github.com/steveyegge/syncpad/internal/model"
	"github.com/steveyegge/syncpad/internal/remote"
	"github.com/steveyegge/syncpad/internal/store"
)

// NewTaskCollection binds the tasks collection of the local store and
// the remote backend into a reconcilable Collection.
func NewTaskCollection(s *store.TaskStore, c *remote.Client, logger *log.Logger) Collection {
	return NewReconciler[*model.Task]("tasks", taskLocal{s}, taskRemote{c}, logger)
}

// NewNoteCollection binds the notes collection.
func NewNoteCollection(s *store.NoteStore, c *remote.Client, logger *log.Logger) Collection {
	return NewReconciler[*model.Note]("notes", noteLocal{s}, noteRemote{c}, logger)
}

type taskLocal struct {
	store *store.TaskStore
}

func (a taskLocal) List(ctx context.Context) ([]*model.Task, error) {
	return a.store.GetAll(ctx)
}

func (a taskLocal) Materialize(ctx context.Context, rec *model.Task) (int64, error) {
	return a.store.Materialize(ctx, rec)
}

func (a taskLocal) Overwrite(ctx context.Context, rec *model.Task) error {
	return a.store.Overwrite(ctx, rec)
}

func (a taskLocal) MarkSynced(ctx context.Context, localID int64, remoteID string, at time.Time) error {
	return a.store.MarkSynced(ctx, localID, remoteID, at)
}

type taskRemote struct {
	client *remote.Client
}

func (a taskRemote) FullList(ctx context.Context) ([]*model.Task, error) {
	recs, err := a.client.ListTasks(ctx)
	if err != nil {
		return nil, err
	}
	tasks := make([]*model.Task, 0, len(recs))
	for _, rec := range recs {
		tasks = append(tasks, rec.ToModel())
	}
	return tasks, nil
}

func (a taskRemote) Create(ctx context.Context, rec *model.Task) (string, error) {
	created, err := a.client.CreateTask(ctx, remote.TaskToWire(rec))
	if err != nil {
		return "", err
	}
	return created.ID, nil
}

func (a taskRemote) Update(ctx context.Context, rec *model.Task) error {
	_, err := a.client.UpdateTask(ctx, rec.RemoteID, remote.TaskToWire(rec))
	return err
}

type noteLocal struct {
	store *store.NoteStore
}

func (a noteLocal) List(ctx context.Context) ([]*model.Note, error) {
	return a.store.GetAll(ctx)
}

func (a noteLocal) Materialize(ctx context.Context, rec *model.Note) (int64, error) {
	return a.store.Materialize(ctx, rec)
}

func (a noteLocal) Overwrite(ctx context.Context, rec *model.Note) error {
	return a.store.Overwrite(ctx, rec)
}

func (a noteLocal) MarkSynced(ctx context.Context, localID int64, remoteID string, at time.Time) error {
	return a.store.MarkSynced(ctx, localID, remoteID, at)
}

type noteRemote struct {
	client *remote.Client
}

func (a noteRemote) FullList(ctx context.Context) ([]*model.Note, error) {
	recs, err := a.client.ListNotes(ctx)
	if err != nil {
		return nil, err
	}
	notes := make([]*model.Note, 0, len(recs))
	for _, rec := range recs {
		notes = append(notes, rec.ToModel())
	}
	return notes, nil
}

func (a noteRemote) Create(ctx context.Context, rec *model.Note) (string, error) {
	created, err := a.client.CreateNote(ctx, remote.NoteToWire(rec))
	if err != nil {
		return "", err
	}
	return created.ID, nil
}

func (a noteRemote) Update(ctx context.Context, rec *model.Note) error {
	_, err := a.client.UpdateNote(ctx, rec.RemoteID, remote.NoteToWire(rec))
	return err
}
