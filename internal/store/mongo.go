package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ahmetk3436/promptdesk/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	collUsers         = "users"
	collConversations = "conversations"
	collPrompts       = "prompts"
	collStatusChecks  = "status_checks"
)

type userDoc struct {
	ID             string    `bson:"id"`
	Email          string    `bson:"email"`
	Username       string    `bson:"username"`
	HashedPassword string    `bson:"hashed_password"`
	IsActive       bool      `bson:"is_active"`
	CreatedAt      time.Time `bson:"created_at"`
}

type conversationDoc struct {
	ID         string    `bson:"id"`
	UserID     string    `bson:"user_id"`
	Title      string    `bson:"title"`
	IsPinned   bool      `bson:"is_pinned"`
	IsArchived bool      `bson:"is_archived"`
	CreatedAt  time.Time `bson:"created_at"`
	UpdatedAt  time.Time `bson:"updated_at"`
}

type promptDoc struct {
	ID             string                 `bson:"id"`
	UserID         string                 `bson:"user_id"`
	ConversationID string                 `bson:"conversation_id"`
	Content        string                 `bson:"content"`
	Response       *string                `bson:"response"`
	Phase          *string                `bson:"phase,omitempty"`
	Generation     *models.GenerationInfo `bson:"generation,omitempty"`
	CreatedAt      time.Time              `bson:"created_at"`
	UpdatedAt      time.Time              `bson:"updated_at"`
}

type statusCheckDoc struct {
	ID         string    `bson:"id"`
	ClientName string    `bson:"client_name"`
	Timestamp  time.Time `bson:"timestamp"`
}

// MongoStore implements Store on MongoDB collections.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

func NewMongoStore(client *mongo.Client, dbName string) *MongoStore {
	return &MongoStore{client: client, db: client.Database(dbName)}
}

// EnsureIndexes creates the indexes the queries rely on. Safe to call repeatedly.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		collUsers: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		collConversations: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "updated_at", Value: -1}}},
		},
		collPrompts: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "conversation_id", Value: 1}, {Key: "created_at", Value: 1}}},
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		collStatusChecks: {
			{Keys: bson.D{{Key: "timestamp", Value: -1}}},
		},
	}
	for coll, idx := range indexes {
		if _, err := s.db.Collection(coll).Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("create %s indexes: %w", coll, err)
		}
	}
	return nil
}

func (s *MongoStore) SavePrompt(ctx context.Context, p *models.Prompt, title string) error {
	convs := s.db.Collection(collConversations)
	filter := bson.M{"user_id": p.UserID, "id": p.ConversationID}
	update := bson.M{
		"$set": bson.M{"updated_at": p.CreatedAt},
		"$setOnInsert": bson.M{
			"title":       title,
			"is_pinned":   false,
			"is_archived": false,
			"created_at":  p.CreatedAt,
		},
	}
	res, err := convs.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("upsert conversation: %w", err)
	}

	doc := promptDoc{
		ID:             p.ID,
		UserID:         p.UserID,
		ConversationID: p.ConversationID,
		Content:        p.Content,
		Response:       p.Response,
		Phase:          p.Phase,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
	if info, ok := p.GenerationInfo(); ok {
		doc.Generation = &info
	}
	if _, err := s.db.Collection(collPrompts).InsertOne(ctx, doc); err != nil {
		// A conversation created for this turn must not outlive it.
		if res.UpsertedCount == 1 {
			if _, delErr := convs.DeleteOne(context.WithoutCancel(ctx), filter); delErr != nil {
				return errors.Join(fmt.Errorf("insert prompt: %w", err), fmt.Errorf("remove conversation: %w", delErr))
			}
		}
		return fmt.Errorf("insert prompt: %w", err)
	}

	var conv conversationDoc
	if err := convs.FindOne(ctx, filter).Decode(&conv); err != nil {
		return fmt.Errorf("load conversation: %w", err)
	}
	p.Title = conv.Title
	p.IsPinned = conv.IsPinned
	p.IsArchived = conv.IsArchived
	return nil
}

func (s *MongoStore) History(ctx context.Context, userID, conversationID string) ([]models.HistoryEntry, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}}).
		SetProjection(bson.M{"_id": 0, "content": 1, "response": 1})
	cur, err := s.db.Collection(collPrompts).Find(ctx, bson.M{"user_id": userID, "conversation_id": conversationID}, opts)
	if err != nil {
		return nil, err
	}
	var docs []promptDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}

	history := make([]models.HistoryEntry, 0, len(docs))
	for _, d := range docs {
		e := models.HistoryEntry{Content: d.Content}
		if d.Response != nil {
			e.Response = *d.Response
		}
		history = append(history, e)
	}
	return history, nil
}

func (s *MongoStore) ListPrompts(ctx context.Context, userID, conversationID string, skip, limit int) ([]models.Prompt, error) {
	filter := bson.M{"user_id": userID}
	order := -1
	if conversationID != "" {
		filter["conversation_id"] = conversationID
		order = 1
	}
	if limit == 0 {
		return []models.Prompt{}, nil
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: order}}).
		SetSkip(int64(skip)).
		SetLimit(int64(limit))

	cur, err := s.db.Collection(collPrompts).Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var docs []promptDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	return s.hydrate(ctx, userID, docs)
}

func (s *MongoStore) GetPrompt(ctx context.Context, userID, id string) (*models.Prompt, error) {
	var doc promptDoc
	err := s.db.Collection(collPrompts).FindOne(ctx, bson.M{"id": id, "user_id": userID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	prompts, err := s.hydrate(ctx, userID, []promptDoc{doc})
	if err != nil {
		return nil, err
	}
	return &prompts[0], nil
}

// hydrate converts prompt documents and copies in their conversations' title and flags.
func (s *MongoStore) hydrate(ctx context.Context, userID string, docs []promptDoc) ([]models.Prompt, error) {
	ids := make([]string, 0, len(docs))
	seen := make(map[string]bool)
	for _, d := range docs {
		if !seen[d.ConversationID] {
			seen[d.ConversationID] = true
			ids = append(ids, d.ConversationID)
		}
	}

	convByID := make(map[string]conversationDoc, len(ids))
	if len(ids) > 0 {
		cur, err := s.db.Collection(collConversations).Find(ctx, bson.M{"user_id": userID, "id": bson.M{"$in": ids}})
		if err != nil {
			return nil, err
		}
		var convs []conversationDoc
		if err := cur.All(ctx, &convs); err != nil {
			return nil, err
		}
		for _, c := range convs {
			convByID[c.ID] = c
		}
	}

	out := make([]models.Prompt, 0, len(docs))
	for _, d := range docs {
		p := models.Prompt{
			ID:             d.ID,
			UserID:         d.UserID,
			ConversationID: d.ConversationID,
			Content:        d.Content,
			Response:       d.Response,
			Phase:          d.Phase,
			CreatedAt:      d.CreatedAt,
			UpdatedAt:      d.UpdatedAt,
		}
		if d.Generation != nil {
			p.SetGeneration(*d.Generation)
		}
		if c, ok := convByID[d.ConversationID]; ok {
			p.Title = c.Title
			p.IsPinned = c.IsPinned
			p.IsArchived = c.IsArchived
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *MongoStore) DeletePrompt(ctx context.Context, userID, id string) error {
	var doc promptDoc
	err := s.db.Collection(collPrompts).FindOneAndDelete(ctx, bson.M{"id": id, "user_id": userID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	remaining, err := s.db.Collection(collPrompts).CountDocuments(ctx,
		bson.M{"user_id": userID, "conversation_id": doc.ConversationID},
		options.Count().SetLimit(1))
	if err != nil {
		return err
	}
	if remaining == 0 {
		_, err = s.db.Collection(collConversations).DeleteOne(ctx, bson.M{"user_id": userID, "id": doc.ConversationID})
	}
	return err
}

func (s *MongoStore) ListConversations(ctx context.Context, userID string, filter ConversationFilter) ([]models.ConversationSummary, error) {
	if filter.Limit == 0 {
		return []models.ConversationSummary{}, nil
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"user_id": userID}}},
		{{Key: "$sort", Value: bson.M{"created_at": 1}}},
		{{Key: "$group", Value: bson.M{
			"_id":           "$conversation_id",
			"message_count": bson.M{"$sum": 1},
			"preview":       bson.M{"$last": "$content"},
			"last_updated":  bson.M{"$max": "$updated_at"},
		}}},
		{{Key: "$lookup", Value: bson.M{
			"from": collConversations,
			"let":  bson.M{"cid": "$_id"},
			"pipeline": bson.A{
				bson.M{"$match": bson.M{
					"user_id": userID,
					"$expr":   bson.M{"$eq": bson.A{"$id", "$$cid"}},
				}},
			},
			"as": "conversation",
		}}},
		{{Key: "$unwind", Value: "$conversation"}},
	}
	if filter.Archived != nil {
		pipeline = append(pipeline, bson.D{{Key: "$match", Value: bson.M{"conversation.is_archived": *filter.Archived}}})
	}
	pipeline = append(pipeline,
		bson.D{{Key: "$addFields", Value: bson.M{
			"updated_at": bson.M{"$max": bson.A{"$conversation.updated_at", "$last_updated"}},
		}}},
		bson.D{{Key: "$sort", Value: bson.M{"updated_at": -1}}},
		bson.D{{Key: "$limit", Value: filter.Limit}},
	)

	cur, err := s.db.Collection(collPrompts).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	var rows []struct {
		ID           string          `bson:"_id"`
		MessageCount int64           `bson:"message_count"`
		Preview      string          `bson:"preview"`
		UpdatedAt    time.Time       `bson:"updated_at"`
		Conversation conversationDoc `bson:"conversation"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}

	out := make([]models.ConversationSummary, 0, len(rows))
	for _, r := range rows {
		out = append(out, models.ConversationSummary{
			ID:           r.ID,
			Title:        r.Conversation.Title,
			Preview:      r.Preview,
			UpdatedAt:    r.UpdatedAt,
			MessageCount: r.MessageCount,
			IsPinned:     r.Conversation.IsPinned,
			IsArchived:   r.Conversation.IsArchived,
		})
	}
	return out, nil
}

func (s *MongoStore) UpdateConversation(ctx context.Context, userID, conversationID string, patch models.ConversationPatch, now time.Time) (int64, error) {
	count, err := s.db.Collection(collPrompts).CountDocuments(ctx, bson.M{"user_id": userID, "conversation_id": conversationID})
	if err != nil {
		return 0, err
	}
	if count == 0 {
		return 0, ErrNotFound
	}

	set := bson.M{"updated_at": now}
	if patch.Title != nil {
		set["title"] = *patch.Title
	}
	if patch.IsPinned != nil {
		set["is_pinned"] = *patch.IsPinned
	}
	if patch.IsArchived != nil {
		set["is_archived"] = *patch.IsArchived
	}
	_, err = s.db.Collection(collConversations).UpdateOne(ctx,
		bson.M{"user_id": userID, "id": conversationID},
		bson.M{"$set": set})
	if err != nil {
		return 0, err
	}

	_, err = s.db.Collection(collPrompts).UpdateMany(ctx,
		bson.M{"user_id": userID, "conversation_id": conversationID},
		bson.M{"$set": bson.M{"updated_at": now}})
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (s *MongoStore) DeleteConversations(ctx context.Context, userID string, conversationIDs []string) error {
	if len(conversationIDs) == 0 {
		return nil
	}
	if _, err := s.db.Collection(collPrompts).DeleteMany(ctx,
		bson.M{"user_id": userID, "conversation_id": bson.M{"$in": conversationIDs}}); err != nil {
		return err
	}
	_, err := s.db.Collection(collConversations).DeleteMany(ctx,
		bson.M{"user_id": userID, "id": bson.M{"$in": conversationIDs}})
	return err
}

func (s *MongoStore) CreateUser(ctx context.Context, u *models.User) error {
	_, err := s.db.Collection(collUsers).InsertOne(ctx, userDoc{
		ID:             u.ID,
		Email:          u.Email,
		Username:       u.Username,
		HashedPassword: u.HashedPassword,
		IsActive:       u.IsActive,
		CreatedAt:      u.CreatedAt,
	})
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicateEmail
	}
	return err
}

func (s *MongoStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return s.findUser(ctx, bson.M{"id": id})
}

func (s *MongoStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findUser(ctx, bson.M{"email": email})
}

func (s *MongoStore) findUser(ctx context.Context, filter bson.M) (*models.User, error) {
	var d userDoc
	err := s.db.Collection(collUsers).FindOne(ctx, filter).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &models.User{
		ID:             d.ID,
		Email:          d.Email,
		Username:       d.Username,
		HashedPassword: d.HashedPassword,
		IsActive:       d.IsActive,
		CreatedAt:      d.CreatedAt,
	}, nil
}

func (s *MongoStore) UpdateUserPassword(ctx context.Context, id, hashedPassword string) error {
	res, err := s.db.Collection(collUsers).UpdateOne(ctx,
		bson.M{"id": id},
		bson.M{"$set": bson.M{"hashed_password": hashedPassword}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) CreateStatusCheck(ctx context.Context, sc *models.StatusCheck) error {
	_, err := s.db.Collection(collStatusChecks).InsertOne(ctx, statusCheckDoc{
		ID:         sc.ID,
		ClientName: sc.ClientName,
		Timestamp:  sc.Timestamp,
	})
	return err
}

func (s *MongoStore) ListStatusChecks(ctx context.Context, skip, limit int) ([]models.StatusCheck, error) {
	if limit == 0 {
		return []models.StatusCheck{}, nil
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetSkip(int64(skip)).
		SetLimit(int64(limit))
	cur, err := s.db.Collection(collStatusChecks).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	var docs []statusCheckDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]models.StatusCheck, 0, len(docs))
	for _, d := range docs {
		out = append(out, models.StatusCheck{ID: d.ID, ClientName: d.ClientName, Timestamp: d.Timestamp})
	}
	return out, nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
