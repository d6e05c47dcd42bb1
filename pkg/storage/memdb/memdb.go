package memdb

import (
	"context"
	"fmt"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"blog/pkg/models"
	"blog/pkg/storage"
)

// Store is an in-memory Storage used in development mode and in tests.
// Returned values never share memory with the stored documents.
type Store struct {
	mu     sync.Mutex
	users  map[primitive.ObjectID]models.User
	emails map[string]primitive.ObjectID
	blogs  map[primitive.ObjectID]models.Blog
}

func New() *Store {
	db := Store{
		users:  make(map[primitive.ObjectID]models.User),
		emails: make(map[string]primitive.ObjectID),
		blogs:  make(map[primitive.ObjectID]models.Blog),
	}

	return &db
}

func (db *Store) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	user = storage.PrepareUser(user)

	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.emails[user.Email]; ok {
		return models.User{}, fmt.Errorf("%w: %s", storage.ErrUserExists, user.Email)
	}
	db.users[user.ID] = user
	db.emails[user.Email] = user.ID

	return user, nil
}

func (db *Store) UserByEmail(ctx context.Context, email string) (models.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	id, ok := db.emails[storage.NormalizeEmail(email)]
	if !ok {
		return models.User{}, storage.ErrUserNotFound
	}

	return db.users[id], nil
}

func (db *Store) UserByID(ctx context.Context, id primitive.ObjectID) (models.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	user, ok := db.users[id]
	if !ok {
		return models.User{}, storage.ErrUserNotFound
	}

	return user, nil
}

func (db *Store) CreateBlog(ctx context.Context, blog models.Blog) (models.Blog, error) {
	blog = storage.PrepareBlog(blog)

	db.mu.Lock()
	defer db.mu.Unlock()

	db.blogs[blog.ID] = cloneBlog(blog)

	return blog, nil
}

func (db *Store) Blogs(ctx context.Context) ([]models.Blog, error) {
	return db.filterBlogs(func(models.Blog) bool { return true }), nil
}

func (db *Store) BlogsByAuthor(ctx context.Context, authorID primitive.ObjectID) ([]models.Blog, error) {
	return db.filterBlogs(func(b models.Blog) bool { return b.Author.ID == authorID }), nil
}

func (db *Store) filterBlogs(match func(models.Blog) bool) []models.Blog {
	db.mu.Lock()
	defer db.mu.Unlock()

	blogs := make([]models.Blog, 0, len(db.blogs))
	for _, b := range db.blogs {
		if match(b) {
			blogs = append(blogs, cloneBlog(b))
		}
	}

	storage.SortNewestFirst(blogs)
	storage.Resolve(blogs, db.users, false)

	return blogs
}

func (db *Store) Blog(ctx context.Context, id primitive.ObjectID) (models.Blog, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	b, ok := db.blogs[id]
	if !ok {
		return models.Blog{}, storage.ErrBlogNotFound
	}

	blogs := []models.Blog{cloneBlog(b)}
	storage.Resolve(blogs, db.users, true)

	return blogs[0], nil
}

func (db *Store) UpdateBlog(ctx context.Context, id primitive.ObjectID, upd models.BlogUpdate) (models.Blog, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	b, ok := db.blogs[id]
	if !ok {
		return models.Blog{}, storage.ErrBlogNotFound
	}

	if upd.Title != "" {
		b.Title = upd.Title
	}
	if upd.Description != "" {
		b.Description = upd.Description
	}
	if upd.Image != "" {
		b.Image = upd.Image
	}
	db.blogs[id] = b

	blogs := []models.Blog{cloneBlog(b)}
	storage.Resolve(blogs, db.users, false)

	return blogs[0], nil
}

func (db *Store) DeleteBlog(ctx context.Context, id primitive.ObjectID) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.blogs[id]; !ok {
		return storage.ErrBlogNotFound
	}
	delete(db.blogs, id)

	return nil
}

func (db *Store) AddComment(ctx context.Context, blogID primitive.ObjectID, comment models.Comment) ([]models.Comment, error) {
	comment = storage.PrepareComment(comment)

	db.mu.Lock()
	defer db.mu.Unlock()

	b, ok := db.blogs[blogID]
	if !ok {
		return nil, storage.ErrBlogNotFound
	}

	b.Comments = append([]models.Comment{comment}, b.Comments...)
	db.blogs[blogID] = b

	return cloneBlog(b).Comments, nil
}

func (db *Store) AddReply(ctx context.Context, blogID, commentID primitive.ObjectID, reply models.Reply) ([]models.Reply, error) {
	reply = storage.PrepareReply(reply)

	db.mu.Lock()
	defer db.mu.Unlock()

	b, ok := db.blogs[blogID]
	if !ok {
		return nil, storage.ErrBlogNotFound
	}

	b = cloneBlog(b)
	for i := range b.Comments {
		c := &b.Comments[i]
		if c.ID != commentID {
			continue
		}
		c.Replies = append([]models.Reply{reply}, c.Replies...)
		db.blogs[blogID] = b

		replies := make([]models.Reply, len(c.Replies))
		copy(replies, c.Replies)
		return replies, nil
	}

	return nil, storage.ErrCommentNotFound
}

func cloneBlog(b models.Blog) models.Blog {
	comments := make([]models.Comment, len(b.Comments))
	for i, c := range b.Comments {
		replies := make([]models.Reply, len(c.Replies))
		copy(replies, c.Replies)
		c.Replies = replies
		comments[i] = c
	}
	b.Comments = comments

	return b
}
