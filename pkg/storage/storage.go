package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"blog/pkg/models"
)

var (
	ErrConnectDB       = fmt.Errorf("unable to establish DB connection")
	ErrDBNotResponding = fmt.Errorf("DB not responding")

	ErrUserExists      = fmt.Errorf("user already exists")
	ErrUserNotFound    = fmt.Errorf("user not found")
	ErrBlogNotFound    = fmt.Errorf("blog not found")
	ErrCommentNotFound = fmt.Errorf("comment not found")
)

type Storage interface {
	CreateUser(ctx context.Context, user models.User) (models.User, error)
	UserByEmail(ctx context.Context, email string) (models.User, error)
	UserByID(ctx context.Context, id primitive.ObjectID) (models.User, error)

	CreateBlog(ctx context.Context, blog models.Blog) (models.Blog, error)
	Blogs(ctx context.Context) ([]models.Blog, error)
	BlogsByAuthor(ctx context.Context, authorID primitive.ObjectID) ([]models.Blog, error)
	Blog(ctx context.Context, id primitive.ObjectID) (models.Blog, error)
	UpdateBlog(ctx context.Context, id primitive.ObjectID, upd models.BlogUpdate) (models.Blog, error)
	DeleteBlog(ctx context.Context, id primitive.ObjectID) error

	AddComment(ctx context.Context, blogID primitive.ObjectID, comment models.Comment) ([]models.Comment, error)
	AddReply(ctx context.Context, blogID, commentID primitive.ObjectID, reply models.Reply) ([]models.Reply, error)
}

// Now returns the current time in UTC with the millisecond precision of the document store.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// NormalizeEmail makes email lookups case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// PrepareUser fills the generated fields of a user that is about to be inserted.
func PrepareUser(user models.User) models.User {
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = Now()
	}
	user.Email = NormalizeEmail(user.Email)
	return user
}

// PrepareBlog fills the generated fields of a blog that is about to be inserted.
func PrepareBlog(blog models.Blog) models.Blog {
	if blog.ID.IsZero() {
		blog.ID = primitive.NewObjectID()
	}
	if blog.CreatedAt.IsZero() {
		blog.CreatedAt = Now()
	}
	if blog.Comments == nil {
		blog.Comments = []models.Comment{}
	}
	blog.Author = models.Author{ID: blog.Author.ID}
	return blog
}

// PrepareComment fills the generated fields of a comment that is about to be inserted.
// Replies is never nil so that replies can be pushed onto the stored array.
func PrepareComment(comment models.Comment) models.Comment {
	if comment.ID.IsZero() {
		comment.ID = primitive.NewObjectID()
	}
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = Now()
	}
	if comment.Replies == nil {
		comment.Replies = []models.Reply{}
	}
	comment.Author = models.Author{ID: comment.Author.ID}
	return comment
}

// PrepareReply fills the generated fields of a reply that is about to be inserted.
func PrepareReply(reply models.Reply) models.Reply {
	if reply.ID.IsZero() {
		reply.ID = primitive.NewObjectID()
	}
	if reply.CreatedAt.IsZero() {
		reply.CreatedAt = Now()
	}
	reply.Author = models.Author{ID: reply.Author.ID}
	return reply
}

// SortNewestFirst orders blogs by creation time descending. Blogs created within the same
// millisecond are ordered by ID, which grows monotonically within a process.
func SortNewestFirst(blogs []models.Blog) {
	sort.SliceStable(blogs, func(i, j int) bool {
		if !blogs[i].CreatedAt.Equal(blogs[j].CreatedAt) {
			return blogs[i].CreatedAt.After(blogs[j].CreatedAt)
		}
		return blogs[i].ID.Hex() > blogs[j].ID.Hex()
	})
}

// AuthorIDs collects the distinct user references of the given blogs. With deep set,
// comment and reply authors are included as well.
func AuthorIDs(blogs []models.Blog, deep bool) []primitive.ObjectID {
	seen := make(map[primitive.ObjectID]struct{})
	var ids []primitive.ObjectID
	add := func(id primitive.ObjectID) {
		if id.IsZero() {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	for _, b := range blogs {
		add(b.Author.ID)
		if !deep {
			continue
		}
		for _, c := range b.Comments {
			add(c.Author.ID)
			for _, r := range c.Replies {
				add(r.Author.ID)
			}
		}
	}

	return ids
}

// Resolve replaces author references with the current data of the referenced users.
// References to unknown users are left as bare IDs.
func Resolve(blogs []models.Blog, users map[primitive.ObjectID]models.User, deep bool) {
	resolve := func(a *models.Author) {
		if u, ok := users[a.ID]; ok {
			a.Email = u.Email
			a.ProfileImage = u.ProfileImage
		}
	}

	for i := range blogs {
		resolve(&blogs[i].Author)
		if !deep {
			continue
		}
		for j := range blogs[i].Comments {
			c := &blogs[i].Comments[j]
			resolve(&c.Author)
			for k := range c.Replies {
				resolve(&c.Replies[k].Author)
			}
		}
	}
}
