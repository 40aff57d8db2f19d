package store

import (
	"context"
	"errors"
	"time"

	"github.com/repsnrecord/apiserver/types"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const workoutCollection = "workoutdays"

// WorkoutRepository handles persistence for workout entries in the
// document store.
type WorkoutRepository struct {
	coll *mongo.Collection
}

func NewWorkoutRepository(db *mongo.Database) *WorkoutRepository {
	return &WorkoutRepository{coll: db.Collection(workoutCollection)}
}

// workoutDoc is the stored shape; _id is an ObjectID in the collection but
// exposed to callers as its hex form.
type workoutDoc struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	UserID       string             `bson:"userId"`
	Date         string             `bson:"date"`
	ExerciseName string             `bson:"exerciseName"`
	Sets         int                `bson:"sets"`
	Reps         int                `bson:"reps"`
	Weight       float64            `bson:"weight"`
	Notes        string             `bson:"notes,omitempty"`
	Intensity    int                `bson:"intensity,omitempty"`
	CreatedAt    time.Time          `bson:"createdAt,omitempty"`
}

func (d workoutDoc) toWorkout() types.Workout {
	return types.Workout{
		ID:           d.ID.Hex(),
		UserID:       d.UserID,
		Date:         d.Date,
		ExerciseName: d.ExerciseName,
		Sets:         d.Sets,
		Reps:         d.Reps,
		Weight:       d.Weight,
		Notes:        d.Notes,
		Intensity:    d.Intensity,
		CreatedAt:    d.CreatedAt,
	}
}

func filterQuery(filter types.WorkoutFilter) bson.M {
	query := bson.M{"userId": filter.UserID}
	if filter.StartDate != "" || filter.EndDate != "" {
		dateRange := bson.M{}
		if filter.StartDate != "" {
			dateRange["$gte"] = filter.StartDate
		}
		if filter.EndDate != "" {
			dateRange["$lte"] = filter.EndDate
		}
		query["date"] = dateRange
	}
	return query
}

// List returns matching entries, newest date first.
func (r *WorkoutRepository) List(ctx context.Context, filter types.WorkoutFilter) ([]types.Workout, error) {
	return r.list(ctx, filterQuery(filter), bson.D{{Key: "date", Value: -1}}, 0)
}

// ListBounded returns matching entries, newest date first, capped at limit.
func (r *WorkoutRepository) ListBounded(ctx context.Context, filter types.WorkoutFilter, limit int) ([]types.Workout, error) {
	return r.list(ctx, filterQuery(filter), bson.D{{Key: "date", Value: -1}}, int64(limit))
}

// ListAsc returns matching entries in ascending date order, as required by
// the streak walk.
func (r *WorkoutRepository) ListAsc(ctx context.Context, filter types.WorkoutFilter) ([]types.Workout, error) {
	return r.list(ctx, filterQuery(filter), bson.D{{Key: "date", Value: 1}}, 0)
}

// ListRecent returns the user's latest entries by date then insert order.
func (r *WorkoutRepository) ListRecent(ctx context.Context, userID string, limit int) ([]types.Workout, error) {
	sort := bson.D{{Key: "date", Value: -1}, {Key: "createdAt", Value: -1}}
	return r.list(ctx, bson.M{"userId": userID}, sort, int64(limit))
}

func (r *WorkoutRepository) list(ctx context.Context, query bson.M, sort bson.D, limit int64) ([]types.Workout, error) {
	opts := options.Find().SetSort(sort)
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cursor, err := r.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var workouts []types.Workout
	for cursor.Next(ctx) {
		var doc workoutDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		workouts = append(workouts, doc.toWorkout())
	}
	return workouts, cursor.Err()
}

// Create inserts a new entry and returns it with its assigned id.
func (r *WorkoutRepository) Create(ctx context.Context, workout types.Workout) (types.Workout, error) {
	doc := workoutDoc{
		UserID:       workout.UserID,
		Date:         workout.Date,
		ExerciseName: workout.ExerciseName,
		Sets:         workout.Sets,
		Reps:         workout.Reps,
		Weight:       workout.Weight,
		Notes:        workout.Notes,
		Intensity:    workout.Intensity,
		CreatedAt:    time.Now(),
	}
	result, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		return types.Workout{}, err
	}
	if id, ok := result.InsertedID.(primitive.ObjectID); ok {
		doc.ID = id
	}
	return doc.toWorkout(), nil
}

// UpsertByDate overwrites the entry for a (user, date) pair or creates it.
// This is the legacy one-entry-per-day logging path.
func (r *WorkoutRepository) UpsertByDate(ctx context.Context, workout types.Workout) (types.Workout, error) {
	query := bson.M{"userId": workout.UserID, "date": workout.Date}
	update := bson.M{
		"$set": bson.M{
			"exerciseName": workout.ExerciseName,
			"sets":         workout.Sets,
			"reps":         workout.Reps,
			"weight":       workout.Weight,
			"notes":        workout.Notes,
			"intensity":    workout.Intensity,
		},
		"$setOnInsert": bson.M{
			"userId":    workout.UserID,
			"date":      workout.Date,
			"createdAt": time.Now(),
		},
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var doc workoutDoc
	if err := r.coll.FindOneAndUpdate(ctx, query, update, opts).Decode(&doc); err != nil {
		return types.Workout{}, err
	}
	return doc.toWorkout(), nil
}

// Delete removes an entry by its hex id.
func (r *WorkoutRepository) Delete(ctx context.Context, id string) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	result, err := r.coll.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// CountByUser returns the user's total entry count.
func (r *WorkoutRepository) CountByUser(ctx context.Context, userID string) (int, error) {
	count, err := r.coll.CountDocuments(ctx, bson.M{"userId": userID})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, nil
		}
		return 0, err
	}
	return int(count), nil
}
