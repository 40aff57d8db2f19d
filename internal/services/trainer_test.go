package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/repsnrecord/apiserver/internal/store"
	"github.com/repsnrecord/apiserver/types"
)

type fakeLinks struct {
	links     map[string]string // client -> trainer
	upserts   []string
	clientIDs []string
}

func newFakeLinks() *fakeLinks {
	return &fakeLinks{links: make(map[string]string)}
}

func (f *fakeLinks) ListClients(_ context.Context, trainerID string) ([]types.TrainerClient, error) {
	var clients []types.TrainerClient
	for client, trainer := range f.links {
		if trainer == trainerID {
			clients = append(clients, types.TrainerClient{TrainerID: trainer, ClientID: client, Status: types.LinkStatusActive})
		}
	}
	return clients, nil
}

func (f *fakeLinks) ActiveTrainerFor(_ context.Context, clientID string) (string, error) {
	trainer, ok := f.links[clientID]
	if !ok {
		return "", store.ErrNotFound
	}
	return trainer, nil
}

func (f *fakeLinks) Upsert(_ context.Context, trainerID, clientID string) (types.TrainerClient, error) {
	f.links[clientID] = trainerID
	f.upserts = append(f.upserts, trainerID+"->"+clientID)
	return types.TrainerClient{TrainerID: trainerID, ClientID: clientID, Status: types.LinkStatusActive}, nil
}

func (f *fakeLinks) Deactivate(_ context.Context, trainerID, clientID string) error {
	delete(f.links, clientID)
	return nil
}

func (f *fakeLinks) ClientIDs(_ context.Context, trainerID string) ([]string, error) {
	return f.clientIDs, nil
}

type fakePermStore struct {
	defaults []string
	rows     map[string]types.TrainerPermission
}

func newFakePermStore() *fakePermStore {
	return &fakePermStore{rows: make(map[string]types.TrainerPermission)}
}

func (f *fakePermStore) Get(_ context.Context, clientID, trainerID string) (types.TrainerPermission, error) {
	if perm, ok := f.rows[clientID+"|"+trainerID]; ok {
		return perm, nil
	}
	return types.TrainerPermission{
		TrainerID:   trainerID,
		ClientID:    clientID,
		AllowExport: types.DefaultAllowExport,
		AllowPhotos: types.DefaultAllowPhotos,
	}, nil
}

func (f *fakePermStore) List(_ context.Context, clientID, trainerID string) ([]types.TrainerPermission, error) {
	return nil, nil
}

func (f *fakePermStore) Set(_ context.Context, clientID, trainerID string, allowExport, allowPhotos bool) (types.TrainerPermission, error) {
	perm := types.TrainerPermission{TrainerID: trainerID, ClientID: clientID, AllowExport: allowExport, AllowPhotos: allowPhotos}
	f.rows[clientID+"|"+trainerID] = perm
	return perm, nil
}

func (f *fakePermStore) EnsureDefaults(_ context.Context, clientID, trainerID string) error {
	f.defaults = append(f.defaults, clientID+"|"+trainerID)
	return nil
}

func (f *fakePermStore) Delete(_ context.Context, clientID, trainerID string) error {
	delete(f.rows, clientID+"|"+trainerID)
	return nil
}

type fakeConnections struct {
	requests map[int]types.ConnectionRequest
	statuses map[int]string
	pending  []string
	created  []types.ConnectionRequest
}

func newFakeConnections() *fakeConnections {
	return &fakeConnections{
		requests: make(map[int]types.ConnectionRequest),
		statuses: make(map[int]string),
	}
}

func (f *fakeConnections) ListSent(_ context.Context, _ string) ([]types.ConnectionRequest, error) {
	return nil, nil
}

func (f *fakeConnections) ListPendingReceived(_ context.Context, _ string) ([]types.ConnectionRequest, error) {
	return nil, nil
}

func (f *fakeConnections) HasPending(_ context.Context, fromUserID, toUserID string) (bool, error) {
	for _, req := range f.created {
		if req.FromUserID == fromUserID && req.ToUserID == toUserID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeConnections) Create(_ context.Context, req types.ConnectionRequest) error {
	f.created = append(f.created, req)
	return nil
}

func (f *fakeConnections) GetForRecipient(_ context.Context, requestID int, toUserID string) (types.ConnectionRequest, error) {
	req, ok := f.requests[requestID]
	if !ok || req.ToUserID != toUserID {
		return types.ConnectionRequest{}, store.ErrNotFound
	}
	return req, nil
}

func (f *fakeConnections) SetStatus(_ context.Context, requestID int, status string) error {
	f.statuses[requestID] = status
	return nil
}

func (f *fakeConnections) PendingRecipientIDs(_ context.Context, _ string) ([]string, error) {
	return f.pending, nil
}

type fakeShares struct {
	created []types.SharedExport
}

func (f *fakeShares) Create(_ context.Context, export types.SharedExport) error {
	f.created = append(f.created, export)
	return nil
}

func (f *fakeShares) ListInbox(_ context.Context, _ string, _ int) ([]types.SharedExport, error) {
	return f.created, nil
}

func (f *fakeShares) MarkRead(_ context.Context, _ int, _ string) error {
	return nil
}

type fakeShareWorkouts struct {
	workouts   []types.Workout
	lastFilter types.WorkoutFilter
	lastLimit  int
}

func (f *fakeShareWorkouts) ListRecent(_ context.Context, _ string, limit int) ([]types.Workout, error) {
	if limit < len(f.workouts) {
		return f.workouts[:limit], nil
	}
	return f.workouts, nil
}

func (f *fakeShareWorkouts) ListBounded(_ context.Context, filter types.WorkoutFilter, limit int) ([]types.Workout, error) {
	f.lastFilter = filter
	f.lastLimit = limit
	return f.workouts, nil
}

func (f *fakeShareWorkouts) CountByUser(_ context.Context, _ string) (int, error) {
	return len(f.workouts), nil
}

type fakePhotoCount struct{ count int }

func (f *fakePhotoCount) CountByUser(_ context.Context, _ string) (int, error) {
	return f.count, nil
}

type fakeSearch struct{ ids []string }

func (f *fakeSearch) UserIDs(_ context.Context, _ string) ([]string, error) {
	return f.ids, nil
}

type trainerFixture struct {
	svc      *TrainerService
	links    *fakeLinks
	perms    *fakePermStore
	conns    *fakeConnections
	share    *fakeShares
	workouts *fakeShareWorkouts
}

func newTrainerFixture(roles map[string]string) *trainerFixture {
	f := &trainerFixture{
		links:    newFakeLinks(),
		perms:    newFakePermStore(),
		conns:    newFakeConnections(),
		share:    &fakeShares{},
		workouts: &fakeShareWorkouts{workouts: []types.Workout{{Date: "2025-11-25", ExerciseName: "Bench"}}},
	}
	f.svc = NewTrainerService(
		f.links,
		&fakeRoles{roles: roles},
		f.perms,
		f.conns,
		f.share,
		f.workouts,
		&fakePhotoCount{count: 2},
		&fakeSearch{},
		nil,
	)
	return f
}

func TestClientsRequiresTrainerRole(t *testing.T) {
	f := newTrainerFixture(nil)

	_, err := f.svc.Clients(context.Background(), "u1")
	if !errors.Is(err, ErrNotATrainer) {
		t.Fatalf("expected ErrNotATrainer, got %v", err)
	}
}

func TestAddClientSeedsDefaultPermissions(t *testing.T) {
	f := newTrainerFixture(map[string]string{"t1": types.RoleTrainer})

	link, err := f.svc.AddClient(context.Background(), "t1", "c1")
	if err != nil {
		t.Fatalf("AddClient: %v", err)
	}
	if link.TrainerID != "t1" || link.ClientID != "c1" {
		t.Errorf("link = %+v", link)
	}
	if len(f.perms.defaults) != 1 || f.perms.defaults[0] != "c1|t1" {
		t.Errorf("defaults = %v, want [c1|t1]", f.perms.defaults)
	}
}

func TestRequestConnectionRejectsSelfAndDuplicates(t *testing.T) {
	f := newTrainerFixture(nil)
	ctx := context.Background()

	if err := f.svc.RequestConnection(ctx, "u1", "u1", ""); !errors.Is(err, ErrSelfConnection) {
		t.Fatalf("self request: expected ErrSelfConnection, got %v", err)
	}

	if err := f.svc.RequestConnection(ctx, "u1", "u2", "hi"); err != nil {
		t.Fatalf("first request: %v", err)
	}
	if err := f.svc.RequestConnection(ctx, "u1", "u2", "again"); !errors.Is(err, ErrDuplicateRequest) {
		t.Fatalf("duplicate: expected ErrDuplicateRequest, got %v", err)
	}
}

func TestRespondToRequestAcceptFromTrainer(t *testing.T) {
	f := newTrainerFixture(map[string]string{"t1": types.RoleTrainer})
	f.conns.requests[7] = types.ConnectionRequest{
		ID:         7,
		FromUserID: "t1",
		ToUserID:   "c1",
		FromRole:   types.RoleTrainer,
		Status:     types.RequestStatusPending,
	}

	if err := f.svc.RespondToRequest(context.Background(), "c1", 7, true); err != nil {
		t.Fatalf("RespondToRequest: %v", err)
	}

	if f.conns.statuses[7] != types.RequestStatusAccepted {
		t.Errorf("status = %q, want accepted", f.conns.statuses[7])
	}
	if trainer := f.links.links["c1"]; trainer != "t1" {
		t.Errorf("link trainer = %q, want t1", trainer)
	}
	if len(f.perms.defaults) != 1 || f.perms.defaults[0] != "c1|t1" {
		t.Errorf("defaults = %v, want [c1|t1]", f.perms.defaults)
	}
}

func TestRespondToRequestAcceptFromClient(t *testing.T) {
	// A client-initiated request accepted by a trainer links the pair the
	// other way round.
	f := newTrainerFixture(map[string]string{"t1": types.RoleTrainer})
	f.conns.requests[8] = types.ConnectionRequest{
		ID:         8,
		FromUserID: "c1",
		ToUserID:   "t1",
		FromRole:   types.RoleUser,
		Status:     types.RequestStatusPending,
	}

	if err := f.svc.RespondToRequest(context.Background(), "t1", 8, true); err != nil {
		t.Fatalf("RespondToRequest: %v", err)
	}
	if trainer := f.links.links["c1"]; trainer != "t1" {
		t.Errorf("link trainer = %q, want t1", trainer)
	}
}

func TestRespondToRequestDeclineIsTerminal(t *testing.T) {
	f := newTrainerFixture(nil)
	f.conns.requests[9] = types.ConnectionRequest{
		ID:         9,
		FromUserID: "t1",
		ToUserID:   "c1",
		FromRole:   types.RoleTrainer,
		Status:     types.RequestStatusPending,
	}

	if err := f.svc.RespondToRequest(context.Background(), "c1", 9, false); err != nil {
		t.Fatalf("decline: %v", err)
	}
	if f.conns.statuses[9] != types.RequestStatusDeclined {
		t.Errorf("status = %q, want declined", f.conns.statuses[9])
	}
	if len(f.links.upserts) != 0 {
		t.Errorf("links created on decline: %v", f.links.upserts)
	}

	f.conns.requests[9] = types.ConnectionRequest{
		ID:       9,
		ToUserID: "c1",
		Status:   types.RequestStatusDeclined,
	}
	if err := f.svc.RespondToRequest(context.Background(), "c1", 9, true); !errors.Is(err, ErrRequestResolved) {
		t.Fatalf("expected ErrRequestResolved, got %v", err)
	}
}

func TestShareRequiresTrainer(t *testing.T) {
	f := newTrainerFixture(nil)

	err := f.svc.Share(context.Background(), "c1", "", "look at my gains")
	if !errors.Is(err, ErrNoTrainer) {
		t.Fatalf("expected ErrNoTrainer, got %v", err)
	}
}

func TestShareFreezesSummary(t *testing.T) {
	f := newTrainerFixture(nil)
	f.links.links["c1"] = "t1"

	if err := f.svc.Share(context.Background(), "c1", "", "progress!"); err != nil {
		t.Fatalf("Share: %v", err)
	}

	if len(f.share.created) != 1 {
		t.Fatalf("shares = %d, want 1", len(f.share.created))
	}
	share := f.share.created[0]
	if share.FromUserID != "c1" || share.ToUserID != "t1" {
		t.Errorf("share addressing = %+v", share)
	}
	if share.ExportType != "progress" {
		t.Errorf("export type = %q, want progress", share.ExportType)
	}
	summary := string(share.DataSummary)
	if !strings.Contains(summary, `"totalWorkouts":1`) || !strings.Contains(summary, `"totalPhotos":2`) {
		t.Errorf("summary = %s", summary)
	}
}

func TestClientWorkoutsRequiresTrainerRoleExactly(t *testing.T) {
	f := newTrainerFixture(map[string]string{"a1": types.RoleAdmin})
	f.links.links["c1"] = "a1"

	_, err := f.svc.ClientWorkouts(context.Background(), "a1", "c1", "", "")
	if !errors.Is(err, ErrNotATrainer) {
		t.Fatalf("expected ErrNotATrainer, got %v", err)
	}
}

func TestClientWorkoutsRequiresActiveLink(t *testing.T) {
	f := newTrainerFixture(map[string]string{"t1": types.RoleTrainer, "t2": types.RoleTrainer})

	_, err := f.svc.ClientWorkouts(context.Background(), "t1", "c1", "", "")
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("unlinked client: expected ErrForbidden, got %v", err)
	}

	f.links.links["c1"] = "t2"
	_, err = f.svc.ClientWorkouts(context.Background(), "t1", "c1", "", "")
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("another trainer's client: expected ErrForbidden, got %v", err)
	}
}

func TestClientWorkoutsRequiresExportGrant(t *testing.T) {
	f := newTrainerFixture(map[string]string{"t1": types.RoleTrainer})
	f.links.links["c1"] = "t1"
	f.perms.rows["c1|t1"] = types.TrainerPermission{TrainerID: "t1", ClientID: "c1", AllowExport: false}

	_, err := f.svc.ClientWorkouts(context.Background(), "t1", "c1", "", "")
	if !errors.Is(err, ErrExportNotPermitted) {
		t.Fatalf("expected ErrExportNotPermitted, got %v", err)
	}
}

func TestClientWorkoutsBoundsAndLimit(t *testing.T) {
	f := newTrainerFixture(map[string]string{"t1": types.RoleTrainer})
	f.links.links["c1"] = "t1"

	workouts, err := f.svc.ClientWorkouts(context.Background(), "t1", "c1", "2025-11-01", "2025-11-30")
	if err != nil {
		t.Fatalf("ClientWorkouts: %v", err)
	}
	if len(workouts) != 1 {
		t.Errorf("workouts = %d, want 1", len(workouts))
	}
	want := types.WorkoutFilter{UserID: "c1", StartDate: "2025-11-01", EndDate: "2025-11-30"}
	if f.workouts.lastFilter != want {
		t.Errorf("filter = %+v, want %+v", f.workouts.lastFilter, want)
	}
	if f.workouts.lastLimit != 100 {
		t.Errorf("limit = %d, want 100", f.workouts.lastLimit)
	}
}

func TestSearchUsersExclusions(t *testing.T) {
	f := newTrainerFixture(nil)
	f.links.clientIDs = []string{"client1"}
	f.conns.pending = []string{"pending1"}
	search := &fakeSearch{ids: []string{"t1", "client1", "pending1", "fresh1"}}
	f.svc.search = search

	results, err := f.svc.SearchUsers(context.Background(), "t1", "use")
	if err != nil {
		t.Fatalf("SearchUsers: %v", err)
	}
	if len(results) != 1 || results[0] != "fresh1" {
		t.Errorf("results = %v, want [fresh1]", results)
	}
}

func TestSearchUsersQueryTooShort(t *testing.T) {
	f := newTrainerFixture(nil)

	_, err := f.svc.SearchUsers(context.Background(), "t1", "  ab ")
	if !errors.Is(err, ErrQueryTooShort) {
		t.Fatalf("expected ErrQueryTooShort, got %v", err)
	}
}
