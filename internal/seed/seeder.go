package seed

import (
	"log"

	"gorm.io/gorm"

	"github.com/mifthebest/hw05-final/internal/models"
)

// Seeder populates the database with a coherent demo data set: users,
// groups, posts with comments, and a follow mesh between the users.
type Seeder struct {
	db      *gorm.DB
	factory *Factory
}

// Options controls how much data the seeder generates.
type Options struct {
	Users    int
	Groups   int
	Posts    int
	Comments int
}

// DefaultOptions returns a data set large enough to exercise pagination.
func DefaultOptions() Options {
	return Options{Users: 20, Groups: 5, Posts: 150, Comments: 300}
}

func NewSeeder(db *gorm.DB) (*Seeder, error) {
	factory, err := NewFactory(db)
	if err != nil {
		return nil, err
	}
	return &Seeder{db: db, factory: factory}, nil
}

// ClearAll removes every seeded table's rows, children first.
func (s *Seeder) ClearAll() error {
	for _, model := range []interface{}{
		&models.Comment{},
		&models.Follow{},
		&models.Post{},
		&models.Group{},
		&models.User{},
	} {
		if err := s.db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
			return err
		}
	}
	return nil
}

// SeedAll fills the database per the options.
func (s *Seeder) SeedAll(opts Options) error {
	users := make([]*models.User, 0, opts.Users)
	for i := 0; i < opts.Users; i++ {
		user, err := s.factory.CreateUser()
		if err != nil {
			return err
		}
		users = append(users, user)
	}
	log.Printf("seeded %d users (password %q)", len(users), DefaultPassword)

	groups := make([]*models.Group, 0, opts.Groups)
	for i := 0; i < opts.Groups; i++ {
		group, err := s.factory.CreateGroup()
		if err != nil {
			return err
		}
		groups = append(groups, group)
	}
	log.Printf("seeded %d groups", len(groups))

	posts := make([]*models.Post, 0, opts.Posts)
	for i := 0; i < opts.Posts; i++ {
		author := users[s.factory.rand.Intn(len(users))]
		// Roughly a third of posts stay outside any group.
		var group *models.Group
		if s.factory.rand.Intn(3) != 0 {
			group = groups[s.factory.rand.Intn(len(groups))]
		}
		post, err := s.factory.CreatePost(author, group)
		if err != nil {
			return err
		}
		posts = append(posts, post)
	}
	log.Printf("seeded %d posts", len(posts))

	for i := 0; i < opts.Comments; i++ {
		post := posts[s.factory.rand.Intn(len(posts))]
		author := users[s.factory.rand.Intn(len(users))]
		if _, err := s.factory.CreateComment(post, author); err != nil {
			return err
		}
	}
	log.Printf("seeded %d comments", opts.Comments)

	// Every user follows a handful of others.
	follows := 0
	for _, user := range users {
		for i := 0; i < 3; i++ {
			author := users[s.factory.rand.Intn(len(users))]
			if author.ID == user.ID {
				continue
			}
			if err := s.factory.CreateFollow(user, author); err != nil {
				return err
			}
			follows++
		}
	}
	log.Printf("seeded %d follow edges", follows)

	return nil
}
