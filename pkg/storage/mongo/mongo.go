package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"blog/pkg/models"
	"blog/pkg/storage"
)

const (
	usersCollection = "users"
	blogsCollection = "blogs"
)

type Storage struct {
	client *mongo.Client
	dbName string
}

func New(ctx context.Context, conf *Config) (*Storage, error) {
	client, err := mongo.Connect(ctx, conf.Options())
	if err != nil {
		return nil, err
	}

	s := Storage{client: client, dbName: conf.DBName}
	for _, name := range []string{usersCollection, blogsCollection} {
		if err := s.createCollection(ctx, name); err != nil {
			client.Disconnect(ctx)
			return nil, err
		}
	}
	if err := s.createIndexes(ctx); err != nil {
		client.Disconnect(ctx)
		return nil, err
	}

	return &s, nil
}

func (s *Storage) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *Storage) Close(ctx context.Context) {
	s.client.Disconnect(ctx)
}

func (s *Storage) database() *mongo.Database {
	return s.client.Database(s.dbName)
}

func (s *Storage) users() *mongo.Collection {
	return s.database().Collection(usersCollection)
}

func (s *Storage) blogs() *mongo.Collection {
	return s.database().Collection(blogsCollection)
}

// CreateUser inserts a new user. The email is normalized before insertion and must be unique,
// both a lookup and the unique index on email report ErrUserExists.
func (s *Storage) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	user = storage.PrepareUser(user)

	cnt, err := s.users().CountDocuments(ctx, bson.M{"email": user.Email})
	if err != nil {
		return models.User{}, err
	}
	if cnt > 0 {
		return models.User{}, fmt.Errorf("%w: %s", storage.ErrUserExists, user.Email)
	}

	_, err = s.users().InsertOne(ctx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return models.User{}, fmt.Errorf("%w: %s", storage.ErrUserExists, user.Email)
		}
		return models.User{}, err
	}

	return user, nil
}

func (s *Storage) UserByEmail(ctx context.Context, email string) (models.User, error) {
	return s.findUser(ctx, bson.M{"email": storage.NormalizeEmail(email)})
}

func (s *Storage) UserByID(ctx context.Context, id primitive.ObjectID) (models.User, error) {
	return s.findUser(ctx, bson.M{"_id": id})
}

func (s *Storage) findUser(ctx context.Context, filter bson.M) (models.User, error) {
	var user models.User
	err := s.users().FindOne(ctx, filter).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.User{}, storage.ErrUserNotFound
		}
		return models.User{}, err
	}

	return user, nil
}

func (s *Storage) CreateBlog(ctx context.Context, blog models.Blog) (models.Blog, error) {
	blog = storage.PrepareBlog(blog)

	_, err := s.blogs().InsertOne(ctx, blog)
	if err != nil {
		return models.Blog{}, err
	}

	return blog, nil
}

// Blogs returns all blogs newest first with the blog authors resolved.
func (s *Storage) Blogs(ctx context.Context) ([]models.Blog, error) {
	return s.findBlogs(ctx, bson.M{})
}

// BlogsByAuthor returns the blogs of one author newest first with the author resolved.
func (s *Storage) BlogsByAuthor(ctx context.Context, authorID primitive.ObjectID) ([]models.Blog, error) {
	return s.findBlogs(ctx, bson.M{"author._id": authorID})
}

func (s *Storage) findBlogs(ctx context.Context, filter bson.M) ([]models.Blog, error) {
	opts := options.Find().SetSort(bson.D{
		{Key: "createdAt", Value: -1},
		{Key: "_id", Value: -1},
	})

	cur, err := s.blogs().Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}

	blogs := []models.Blog{}
	if err := cur.All(ctx, &blogs); err != nil {
		return nil, err
	}

	if err := s.resolve(ctx, blogs, false); err != nil {
		return nil, err
	}

	return blogs, nil
}

// Blog returns a single blog with the blog, comment and reply authors resolved.
func (s *Storage) Blog(ctx context.Context, id primitive.ObjectID) (models.Blog, error) {
	var blog models.Blog
	err := s.blogs().FindOne(ctx, bson.M{"_id": id}).Decode(&blog)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Blog{}, storage.ErrBlogNotFound
		}
		return models.Blog{}, err
	}

	blogs := []models.Blog{blog}
	if err := s.resolve(ctx, blogs, true); err != nil {
		return models.Blog{}, err
	}

	return blogs[0], nil
}

// UpdateBlog sets the non-empty fields of upd and returns the updated blog.
func (s *Storage) UpdateBlog(ctx context.Context, id primitive.ObjectID, upd models.BlogUpdate) (models.Blog, error) {
	set := bson.M{}
	if upd.Title != "" {
		set["title"] = upd.Title
	}
	if upd.Description != "" {
		set["description"] = upd.Description
	}
	if upd.Image != "" {
		set["image"] = upd.Image
	}

	var blog models.Blog
	var err error
	if len(set) == 0 {
		err = s.blogs().FindOne(ctx, bson.M{"_id": id}).Decode(&blog)
	} else {
		opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
		err = s.blogs().FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&blog)
	}
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Blog{}, storage.ErrBlogNotFound
		}
		return models.Blog{}, err
	}

	blogs := []models.Blog{blog}
	if err := s.resolve(ctx, blogs, false); err != nil {
		return models.Blog{}, err
	}

	return blogs[0], nil
}

func (s *Storage) DeleteBlog(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.blogs().DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return storage.ErrBlogNotFound
	}

	return nil
}

// AddComment prepends a comment to the blog's comments in a single update
// and returns the resulting comments.
func (s *Storage) AddComment(ctx context.Context, blogID primitive.ObjectID, comment models.Comment) ([]models.Comment, error) {
	comment = storage.PrepareComment(comment)

	update := bson.M{"$push": bson.M{"comments": bson.M{
		"$each":     []models.Comment{comment},
		"$position": 0,
	}}}
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{"comments": 1})

	var blog models.Blog
	err := s.blogs().FindOneAndUpdate(ctx, bson.M{"_id": blogID}, update, opts).Decode(&blog)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, storage.ErrBlogNotFound
		}
		return nil, err
	}

	return blog.Comments, nil
}

// AddReply prepends a reply to the replies of one comment in a single update
// and returns the resulting replies of that comment.
func (s *Storage) AddReply(ctx context.Context, blogID, commentID primitive.ObjectID, reply models.Reply) ([]models.Reply, error) {
	reply = storage.PrepareReply(reply)

	filter := bson.M{"_id": blogID, "comments._id": commentID}
	update := bson.M{"$push": bson.M{"comments.$.replies": bson.M{
		"$each":     []models.Reply{reply},
		"$position": 0,
	}}}
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{"comments": 1})

	var blog models.Blog
	err := s.blogs().FindOneAndUpdate(ctx, filter, update, opts).Decode(&blog)
	if err != nil {
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, err
		}

		cnt, err := s.blogs().CountDocuments(ctx, bson.M{"_id": blogID})
		if err != nil {
			return nil, err
		}
		if cnt == 0 {
			return nil, storage.ErrBlogNotFound
		}
		return nil, storage.ErrCommentNotFound
	}

	for _, c := range blog.Comments {
		if c.ID == commentID {
			return c.Replies, nil
		}
	}

	return nil, storage.ErrCommentNotFound
}

// resolve looks up the users referenced by the blogs with a single query and fills in
// their email and profile image.
func (s *Storage) resolve(ctx context.Context, blogs []models.Blog, deep bool) error {
	ids := storage.AuthorIDs(blogs, deep)
	if len(ids) == 0 {
		return nil
	}

	opts := options.Find().SetProjection(bson.M{"email": 1, "profileImage": 1})
	cur, err := s.users().Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, opts)
	if err != nil {
		return err
	}

	var users []models.User
	if err := cur.All(ctx, &users); err != nil {
		return err
	}

	byID := make(map[primitive.ObjectID]models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	storage.Resolve(blogs, byID, deep)

	return nil
}

// createCollection creates a collection with the given name in the database if it doesn't already exist.
func (s *Storage) createCollection(ctx context.Context, collName string) error {
	collExists, err := collectionExists(ctx, s.database(), collName)
	if err != nil {
		return err
	}

	if !collExists {
		err := s.database().CreateCollection(ctx, collName)
		if err != nil {
			return err
		}
	}

	return nil
}

func (s *Storage) createIndexes(ctx context.Context) error {
	_, err := s.users().Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create users index: %w", err)
	}

	_, err = s.blogs().Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "author._id", Value: 1}, {Key: "createdAt", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create blogs index: %w", err)
	}

	return nil
}

// collectionExists checks if a collection with the given name exists in the database.
func collectionExists(ctx context.Context, db *mongo.Database, collName string) (bool, error) {
	names, err := db.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return false, fmt.Errorf("failed to list collection names: %w", err)
	}

	for _, name := range names {
		if name == collName {
			return true, nil
		}
	}

	return false, nil
}
