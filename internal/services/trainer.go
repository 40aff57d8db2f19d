package services

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/repsnrecord/apiserver/internal/mq"
	"github.com/repsnrecord/apiserver/internal/store"
	"github.com/repsnrecord/apiserver/types"
)

// Shortest query accepted by user search. Shorter strings match too much of
// the id space to be useful.
const minSearchLength = 3

// Most workout entries returned to a trainer viewing a client's log.
const clientWorkoutsLimit = 100

var (
	ErrSelfConnection   = errors.New("cannot send a connection request to yourself")
	ErrDuplicateRequest = errors.New("a pending request already exists for this user")
	ErrRequestResolved  = errors.New("request has already been responded to")
	ErrQueryTooShort    = errors.New("search query must be at least 3 characters")
)

// TrainerLinkStore defines persistence operations on trainer-client links.
type TrainerLinkStore interface {
	ListClients(ctx context.Context, trainerID string) ([]types.TrainerClient, error)
	ActiveTrainerFor(ctx context.Context, clientID string) (string, error)
	Upsert(ctx context.Context, trainerID, clientID string) (types.TrainerClient, error)
	Deactivate(ctx context.Context, trainerID, clientID string) error
	ClientIDs(ctx context.Context, trainerID string) ([]string, error)
}

// PermissionStore defines persistence operations on permission rows.
type PermissionStore interface {
	Get(ctx context.Context, clientID, trainerID string) (types.TrainerPermission, error)
	List(ctx context.Context, clientID, trainerID string) ([]types.TrainerPermission, error)
	Set(ctx context.Context, clientID, trainerID string, allowExport, allowPhotos bool) (types.TrainerPermission, error)
	EnsureDefaults(ctx context.Context, clientID, trainerID string) error
	Delete(ctx context.Context, clientID, trainerID string) error
}

// ConnectionStore defines persistence operations on connection requests.
type ConnectionStore interface {
	ListSent(ctx context.Context, userID string) ([]types.ConnectionRequest, error)
	ListPendingReceived(ctx context.Context, userID string) ([]types.ConnectionRequest, error)
	HasPending(ctx context.Context, fromUserID, toUserID string) (bool, error)
	Create(ctx context.Context, req types.ConnectionRequest) error
	GetForRecipient(ctx context.Context, requestID int, toUserID string) (types.ConnectionRequest, error)
	SetStatus(ctx context.Context, requestID int, status string) error
	PendingRecipientIDs(ctx context.Context, fromUserID string) ([]string, error)
}

// ShareStore defines persistence operations on shared progress snapshots.
type ShareStore interface {
	Create(ctx context.Context, export types.SharedExport) error
	ListInbox(ctx context.Context, trainerID string, limit int) ([]types.SharedExport, error)
	MarkRead(ctx context.Context, id int, trainerID string) error
}

// ShareWorkoutReader supplies the workout data for share snapshots and
// trainer client views.
type ShareWorkoutReader interface {
	ListRecent(ctx context.Context, userID string, limit int) ([]types.Workout, error)
	ListBounded(ctx context.Context, filter types.WorkoutFilter, limit int) ([]types.Workout, error)
	CountByUser(ctx context.Context, userID string) (int, error)
}

// PhotoCounter supplies the photo count frozen into share snapshots.
type PhotoCounter interface {
	CountByUser(ctx context.Context, userID string) (int, error)
}

// UserSearcher resolves a free-text query to matching user ids.
type UserSearcher interface {
	UserIDs(ctx context.Context, q string) ([]string, error)
}

// TrainerService encapsulates the trainer-client relationship use-cases:
// client rosters, consent flags, connection requests, and the share inbox.
type TrainerService struct {
	links       TrainerLinkStore
	roles       RoleReader
	permissions PermissionStore
	connections ConnectionStore
	shares      ShareStore
	workouts    ShareWorkoutReader
	photos      PhotoCounter
	search      UserSearcher
	notifier    *mq.Notifier
}

func NewTrainerService(
	links TrainerLinkStore,
	roles RoleReader,
	permissions PermissionStore,
	connections ConnectionStore,
	shares ShareStore,
	workouts ShareWorkoutReader,
	photos PhotoCounter,
	search UserSearcher,
	notifier *mq.Notifier,
) *TrainerService {
	return &TrainerService{
		links:       links,
		roles:       roles,
		permissions: permissions,
		connections: connections,
		shares:      shares,
		workouts:    workouts,
		photos:      photos,
		search:      search,
		notifier:    notifier,
	}
}

func (s *TrainerService) requireTrainer(ctx context.Context, userID string) error {
	role, err := s.roles.Get(ctx, userID)
	if err != nil {
		return err
	}
	if role != types.RoleTrainer && role != types.RoleAdmin {
		return ErrNotATrainer
	}
	return nil
}

// Clients returns the trainer's active roster.
func (s *TrainerService) Clients(ctx context.Context, trainerID string) ([]types.TrainerClient, error) {
	if err := s.requireTrainer(ctx, trainerID); err != nil {
		return nil, err
	}
	return s.links.ListClients(ctx, trainerID)
}

// AddClient links a client to the trainer's roster, reactivating a previously
// removed link. The default permission row is created alongside so the pair is
// always resolvable.
func (s *TrainerService) AddClient(ctx context.Context, trainerID, clientID string) (types.TrainerClient, error) {
	if err := s.requireTrainer(ctx, trainerID); err != nil {
		return types.TrainerClient{}, err
	}
	link, err := s.links.Upsert(ctx, trainerID, clientID)
	if err != nil {
		return types.TrainerClient{}, err
	}
	if err := s.permissions.EnsureDefaults(ctx, clientID, trainerID); err != nil {
		return types.TrainerClient{}, err
	}
	return link, nil
}

// RemoveClient deactivates the link. Permission rows survive removal so a
// re-added client keeps their previous consent choices.
func (s *TrainerService) RemoveClient(ctx context.Context, trainerID, clientID string) error {
	if err := s.requireTrainer(ctx, trainerID); err != nil {
		return err
	}
	return s.links.Deactivate(ctx, trainerID, clientID)
}

// HasTrainer reports whether the client has an active trainer, and who.
func (s *TrainerService) HasTrainer(ctx context.Context, clientID string) (bool, string, error) {
	trainerID, err := s.links.ActiveTrainerFor(ctx, clientID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, "", nil
		}
		return false, "", err
	}
	return true, trainerID, nil
}

// Permission resolves the consent flags one trainer holds for one client.
func (s *TrainerService) Permission(ctx context.Context, clientID, trainerID string) (types.TrainerPermission, error) {
	return s.permissions.Get(ctx, clientID, trainerID)
}

// Permissions lists the client's permission rows, optionally filtered to one
// trainer.
func (s *TrainerService) Permissions(ctx context.Context, clientID, trainerID string) ([]types.TrainerPermission, error) {
	return s.permissions.List(ctx, clientID, trainerID)
}

// SetPermission records the client's consent choices for a trainer. Callers
// must ensure clientID is the authenticated user; consent is never set on
// someone else's behalf.
func (s *TrainerService) SetPermission(ctx context.Context, clientID, trainerID string, allowExport, allowPhotos bool) (types.TrainerPermission, error) {
	return s.permissions.Set(ctx, clientID, trainerID, allowExport, allowPhotos)
}

// RevokePermission deletes the row, reverting the pair to the defaults.
func (s *TrainerService) RevokePermission(ctx context.Context, clientID, trainerID string) error {
	return s.permissions.Delete(ctx, clientID, trainerID)
}

// RequestConnection sends a pending connection request. At most one pending
// request may exist per (sender, recipient) pair.
func (s *TrainerService) RequestConnection(ctx context.Context, fromUserID, toUserID, message string) error {
	if fromUserID == toUserID {
		return ErrSelfConnection
	}
	pending, err := s.connections.HasPending(ctx, fromUserID, toUserID)
	if err != nil {
		return err
	}
	if pending {
		return ErrDuplicateRequest
	}
	fromRole, err := s.roles.Get(ctx, fromUserID)
	if err != nil {
		return err
	}
	return s.connections.Create(ctx, types.ConnectionRequest{
		FromUserID: fromUserID,
		ToUserID:   toUserID,
		FromRole:   fromRole,
		Message:    message,
	})
}

// SentRequests returns every request the user has sent.
func (s *TrainerService) SentRequests(ctx context.Context, userID string) ([]types.ConnectionRequest, error) {
	return s.connections.ListSent(ctx, userID)
}

// PendingRequests returns pending requests awaiting the user's response.
func (s *TrainerService) PendingRequests(ctx context.Context, userID string) ([]types.ConnectionRequest, error) {
	return s.connections.ListPendingReceived(ctx, userID)
}

// RespondToRequest accepts or declines a pending request addressed to the
// recipient. Acceptance establishes the trainer-client link, oriented by the
// sender's role, and seeds the default permission row.
func (s *TrainerService) RespondToRequest(ctx context.Context, recipientID string, requestID int, accept bool) error {
	req, err := s.connections.GetForRecipient(ctx, requestID, recipientID)
	if err != nil {
		return err
	}
	if req.Status != types.RequestStatusPending {
		return ErrRequestResolved
	}

	status := types.RequestStatusDeclined
	if accept {
		status = types.RequestStatusAccepted
	}
	if err := s.connections.SetStatus(ctx, requestID, status); err != nil {
		return err
	}
	if !accept {
		return nil
	}

	trainerID, clientID := req.FromUserID, req.ToUserID
	if req.FromRole != types.RoleTrainer {
		trainerID, clientID = req.ToUserID, req.FromUserID
	}
	if _, err := s.links.Upsert(ctx, trainerID, clientID); err != nil {
		return err
	}
	if err := s.permissions.EnsureDefaults(ctx, clientID, trainerID); err != nil {
		return err
	}

	if err := s.notifier.Notify(ctx, mq.Event{
		Type:       mq.EventConnectionAccepted,
		FromUserID: recipientID,
		ToUserID:   req.FromUserID,
	}); err != nil {
		slog.WarnContext(ctx, "publish connection notification", "error", err)
	}
	return nil
}

// Share freezes a summary of the client's current progress and delivers it to
// their trainer's inbox. Clients without a trainer cannot share.
func (s *TrainerService) Share(ctx context.Context, clientID, exportType, message string) error {
	trainerID, err := s.links.ActiveTrainerFor(ctx, clientID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNoTrainer
		}
		return err
	}

	workoutCount, err := s.workouts.CountByUser(ctx, clientID)
	if err != nil {
		return err
	}
	photoCount, err := s.photos.CountByUser(ctx, clientID)
	if err != nil {
		return err
	}
	recent, err := s.workouts.ListRecent(ctx, clientID, 5)
	if err != nil {
		return err
	}
	summary, err := json.Marshal(types.ShareSummary{
		TotalWorkouts:  workoutCount,
		TotalPhotos:    photoCount,
		RecentWorkouts: recent,
		SharedAt:       time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	if exportType == "" {
		exportType = "progress"
	}
	if err := s.shares.Create(ctx, types.SharedExport{
		FromUserID:  clientID,
		ToUserID:    trainerID,
		ExportType:  exportType,
		Message:     message,
		DataSummary: summary,
	}); err != nil {
		return err
	}

	if err := s.notifier.Notify(ctx, mq.Event{
		Type:       mq.EventShareCreated,
		FromUserID: clientID,
		ToUserID:   trainerID,
	}); err != nil {
		slog.WarnContext(ctx, "publish share notification", "error", err)
	}
	return nil
}

// ClientWorkouts returns an assigned client's workout log for their trainer.
// The caller must hold the trainer role exactly, the link must be active, and
// the client must have granted the export permission.
func (s *TrainerService) ClientWorkouts(ctx context.Context, trainerID, clientID, startDate, endDate string) ([]types.Workout, error) {
	role, err := s.roles.Get(ctx, trainerID)
	if err != nil {
		return nil, err
	}
	if role != types.RoleTrainer {
		return nil, ErrNotATrainer
	}

	current, err := s.links.ActiveTrainerFor(ctx, clientID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrForbidden
		}
		return nil, err
	}
	if current != trainerID {
		return nil, ErrForbidden
	}

	perm, err := s.permissions.Get(ctx, clientID, trainerID)
	if err != nil {
		return nil, err
	}
	if !perm.AllowExport {
		return nil, ErrExportNotPermitted
	}

	return s.workouts.ListBounded(ctx, types.WorkoutFilter{
		UserID:    clientID,
		StartDate: startDate,
		EndDate:   endDate,
	}, clientWorkoutsLimit)
}

// Inbox returns the trainer's most recent received snapshots.
func (s *TrainerService) Inbox(ctx context.Context, trainerID string, limit int) ([]types.SharedExport, error) {
	if err := s.requireTrainer(ctx, trainerID); err != nil {
		return nil, err
	}
	return s.shares.ListInbox(ctx, trainerID, limit)
}

// MarkRead marks one inbox snapshot as read.
func (s *TrainerService) MarkRead(ctx context.Context, trainerID string, id int) error {
	return s.shares.MarkRead(ctx, id, trainerID)
}

// SearchUsers finds candidate users for a connection request, excluding the
// requester, their existing clients, and anyone they already have a pending
// request to.
func (s *TrainerService) SearchUsers(ctx context.Context, requesterID, q string) ([]string, error) {
	q = strings.TrimSpace(q)
	if len(q) < minSearchLength {
		return nil, ErrQueryTooShort
	}

	ids, err := s.search.UserIDs(ctx, q)
	if err != nil {
		return nil, err
	}

	exclude := map[string]bool{requesterID: true}
	clients, err := s.links.ClientIDs(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	for _, id := range clients {
		exclude[id] = true
	}
	pending, err := s.connections.PendingRecipientIDs(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	for _, id := range pending {
		exclude[id] = true
	}

	results := make([]string, 0, len(ids))
	for _, id := range ids {
		if !exclude[id] {
			results = append(results, id)
		}
	}
	return results, nil
}
