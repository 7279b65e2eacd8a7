package db

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"kb-analyzer/pkg/domain"
)

// MongoStore implements ArticleStore on MongoDB. Rows use UUID string ids so
// they are interchangeable with Supabase rows.
type MongoStore struct {
	mongoClient *mongo.Client
	articles    *mongo.Collection
	analyses    *mongo.Collection
	now         func() time.Time
}

// NewMongoStore connects to the given MongoDB database.
func NewMongoStore(ctx context.Context, connectionString, databaseName string) (*MongoStore, error) {
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(connectionString))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := mongoClient.Ping(ctx, nil); err != nil {
		_ = mongoClient.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	database := mongoClient.Database(databaseName)
	return &MongoStore{
		mongoClient: mongoClient,
		articles:    database.Collection(ArticlesTable),
		analyses:    database.Collection(AnalysesTable),
		now:         time.Now,
	}, nil
}

// Close closes the MongoDB connection.
func (s *MongoStore) Close(ctx context.Context) error {
	if s.mongoClient == nil {
		return nil
	}
	return s.mongoClient.Disconnect(ctx)
}

func (s *MongoStore) CreateArticle(ctx context.Context, article domain.NewArticle) (domain.StoredArticle, error) {
	now := s.now().UTC()
	row := newArticleRow(article, now)
	row.ID = uuid.NewString()
	row.CreatedAt = &now
	row.UpdatedAt = &now

	if _, err := s.articles.InsertOne(ctx, row); err != nil {
		return domain.StoredArticle{}, fmt.Errorf("insert article: %w", err)
	}
	return row, nil
}

func (s *MongoStore) UpdateArticle(ctx context.Context, id string, updates map[string]any) (domain.StoredArticle, error) {
	now := s.now().UTC()
	set := bson.M{}
	for k, v := range updates {
		if k == "id" || k == "_id" {
			continue
		}
		set[k] = v
	}
	set["last_updated"] = now
	set["updated_at"] = now

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var row domain.StoredArticle
	err := s.articles.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&row)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.StoredArticle{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return domain.StoredArticle{}, fmt.Errorf("update article %s: %w", id, err)
	}
	return row, nil
}

func (s *MongoStore) GetArticle(ctx context.Context, id string) (domain.StoredArticle, error) {
	var row domain.StoredArticle
	err := s.articles.FindOne(ctx, bson.M{"_id": id}).Decode(&row)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.StoredArticle{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return domain.StoredArticle{}, fmt.Errorf("get article %s: %w", id, err)
	}
	return row, nil
}

func (s *MongoStore) ListArticles(ctx context.Context, filter ArticleFilter) ([]domain.StoredArticle, error) {
	opts := options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}})
	return s.findArticles(ctx, mongoFilter(filter), opts)
}

func (s *MongoStore) DeleteArticle(ctx context.Context, id string) (bool, error) {
	res, err := s.articles.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, fmt.Errorf("delete article %s: %w", id, err)
	}
	return res.DeletedCount > 0, nil
}

func (s *MongoStore) SearchArticles(ctx context.Context, query string) ([]domain.StoredArticle, error) {
	return s.findArticles(ctx, searchFilter(query), options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}}))
}

// RelatedArticles returns other articles sharing at least one tag with id.
func (s *MongoStore) RelatedArticles(ctx context.Context, id string) ([]domain.StoredArticle, error) {
	article, err := s.GetArticle(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(article.Tags) == 0 {
		return []domain.StoredArticle{}, nil
	}

	filter := bson.M{"_id": bson.M{"$ne": id}, "tags": bson.M{"$in": article.Tags}}
	return s.findArticles(ctx, filter, options.Find().SetLimit(5))
}

func (s *MongoStore) findArticles(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]domain.StoredArticle, error) {
	cursor, err := s.articles.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query articles: %w", err)
	}
	defer cursor.Close(ctx)

	rows := []domain.StoredArticle{}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}
	return rows, nil
}

func (s *MongoStore) StoreAnalysis(ctx context.Context, articleID string, data any) (domain.StoredAnalysis, error) {
	now := s.now().UTC()
	row := domain.StoredAnalysis{
		ID:           uuid.NewString(),
		ArticleID:    articleID,
		AnalysisData: data,
		CreatedAt:    &now,
	}
	if _, err := s.analyses.InsertOne(ctx, row); err != nil {
		return domain.StoredAnalysis{}, fmt.Errorf("insert analysis for %s: %w", articleID, err)
	}
	return row, nil
}

func (s *MongoStore) ListAnalyses(ctx context.Context, articleID string) ([]domain.StoredAnalysis, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := s.analyses.Find(ctx, bson.M{"article_id": articleID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query analyses: %w", err)
	}
	defer cursor.Close(ctx)

	rows := []domain.StoredAnalysis{}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}
	return rows, nil
}

// mongoFilter translates an ArticleFilter into a query document.
func mongoFilter(f ArticleFilter) bson.M {
	filter := bson.M{}
	if f.Version != "" {
		filter["version"] = f.Version
	}
	if f.Type != "" {
		filter["type"] = f.Type
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if len(f.Tags) > 0 {
		filter["tags"] = bson.M{"$all": f.Tags}
	}
	return filter
}

// searchFilter matches query case-insensitively in title or content.
func searchFilter(query string) bson.M {
	pattern := regexMatch(regexp.QuoteMeta(query))
	return bson.M{"$or": bson.A{
		bson.M{"title": pattern},
		bson.M{"content": pattern},
	}}
}

func regexMatch(pattern string) bson.M {
	return bson.M{"$regex": pattern, "$options": "i"}
}
